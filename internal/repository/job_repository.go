package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/gorm"
)

// JobRepository is the durable backing of the job queue. Claims use a
// conditional update so that concurrent workers never process the same job
// twice, without holding row locks across the claim.
type JobRepository interface {
	// Enqueue inserts the job. When the job carries a dedupe key and a queued
	// job with the same key exists, that job's payload is replaced instead
	// and the existing id is returned on the passed job.
	Enqueue(job *model.Job) error

	// FetchNext claims the oldest runnable job of the given kind, moving it
	// to active and incrementing its attempt counter. Returns nil when no
	// job is runnable.
	FetchNext(kind string) (*model.Job, error)

	// RequeueStranded moves jobs left active by an interrupted process back
	// to queued so they are claimed again. Called once on worker startup,
	// before any new claim. The interrupted attempt stays counted.
	RequeueStranded() (int64, error)

	Update(job *model.Job) error
	FindByID(id uint) (*model.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Enqueue(job *model.Job) error {
	if job.NextRunAt.IsZero() {
		job.NextRunAt = time.Now()
	}
	job.Status = model.JobQueued

	if job.DedupeKey != nil {
		var existing model.Job
		err := r.db.Where("dedupe_key = ? AND status = ?", *job.DedupeKey, model.JobQueued).
			First(&existing).Error
		switch {
		case err == nil:
			res := r.db.Model(&model.Job{}).
				Where("id = ? AND status = ?", existing.ID, model.JobQueued).
				Updates(map[string]any{"payload": job.Payload, "next_run_at": job.NextRunAt})
			if res.Error != nil {
				return fmt.Errorf("%w: replace queued job: %v", apperr.ErrStorage, res.Error)
			}
			if res.RowsAffected == 1 {
				job.ID = existing.ID
				return nil
			}
			// The queued job was claimed between the read and the write;
			// fall through and insert a fresh one.
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("%w: dedupe lookup: %v", apperr.ErrStorage, err)
		}
	}

	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("%w: enqueue job: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (r *jobRepository) FetchNext(kind string) (*model.Job, error) {
	var job model.Job
	err := r.db.
		Where("kind = ? AND status = ? AND next_run_at <= ?", kind, model.JobQueued, time.Now()).
		Order("id ASC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch next job: %v", apperr.ErrStorage, err)
	}

	res := r.db.Model(&model.Job{}).
		Where("id = ? AND status = ?", job.ID, model.JobQueued).
		Updates(map[string]any{"status": model.JobActive, "attempts": job.Attempts + 1})
	if res.Error != nil {
		return nil, fmt.Errorf("%w: claim job %d: %v", apperr.ErrStorage, job.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Another worker claimed it first.
		return nil, nil
	}

	job.Status = model.JobActive
	job.Attempts++
	return &job, nil
}

func (r *jobRepository) RequeueStranded() (int64, error) {
	res := r.db.Model(&model.Job{}).
		Where("status = ?", model.JobActive).
		Updates(map[string]any{"status": model.JobQueued, "next_run_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: requeue stranded jobs: %v", apperr.ErrStorage, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *jobRepository) Update(job *model.Job) error {
	err := r.db.Model(&model.Job{}).Where("id = ?", job.ID).
		Updates(map[string]any{
			"status":      job.Status,
			"attempts":    job.Attempts,
			"next_run_at": job.NextRunAt,
			"last_error":  job.LastError,
		}).Error
	if err != nil {
		return fmt.Errorf("%w: update job %d: %v", apperr.ErrStorage, job.ID, err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uint) (*model.Job, error) {
	var job model.Job
	if err := r.db.First(&job, id).Error; err != nil {
		return nil, wrapFindErr(err, "job")
	}
	return &job, nil
}
