package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const idlePollInterval = 500 * time.Millisecond

// Queue drains the durable job table with one worker pool per kind. Handlers
// are registered before Start; hooks fire on terminal outcomes.
type Queue struct {
	repo     repository.JobRepository
	policies map[string]Policy
	limiters map[string]*rate.Limiter

	mu         sync.RWMutex
	handlers   map[string]Handler
	onComplete map[string][]Hook
	onFailed   map[string][]Hook

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(repo repository.JobRepository, policies map[string]Policy) *Queue {
	if policies == nil {
		policies = DefaultPolicies()
	}
	limiters := make(map[string]*rate.Limiter, len(policies))
	for kind, p := range policies {
		rpm := p.RequestsPerMinute
		if rpm <= 0 {
			rpm = 60
		}
		limiters[kind] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return &Queue{
		repo:       repo,
		policies:   policies,
		limiters:   limiters,
		handlers:   make(map[string]Handler),
		onComplete: make(map[string][]Hook),
		onFailed:   make(map[string][]Hook),
	}
}

// Register installs the handler for a job kind. Exactly one handler per kind.
func (q *Queue) Register(kind string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = h
}

// OnComplete adds a hook fired after a job of the kind completes.
func (q *Queue) OnComplete(kind string, hook Hook) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onComplete[kind] = append(q.onComplete[kind], hook)
}

// OnFailed adds a hook fired after a job of the kind exhausts its retries.
func (q *Queue) OnFailed(kind string, hook Hook) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailed[kind] = append(q.onFailed[kind], hook)
}

// Enqueue persists a job of the given kind. An empty dedupeKey disables
// deduplication. The enqueue never blocks on job execution.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any, dedupeKey string) (uint, error) {
	policy, ok := q.policies[kind]
	if !ok {
		return 0, fmt.Errorf("unknown job kind %q", kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	job := model.Job{
		Kind:        kind,
		Payload:     string(raw),
		MaxAttempts: policy.MaxAttempts,
		NextRunAt:   time.Now(),
	}
	if dedupeKey != "" {
		job.DedupeKey = &dedupeKey
	}

	if err := q.repo.Enqueue(&job); err != nil {
		return 0, err
	}
	log.Debug().Uint("jobID", job.ID).Str("kind", kind).Msg("Job enqueued")
	return job.ID, nil
}

// Start launches the per-kind worker pools. It returns immediately; workers
// run until Stop. Jobs a previous process left claimed (crash mid-job) are
// requeued first so they settle instead of hanging active forever.
func (q *Queue) Start(ctx context.Context) {
	if n, err := q.repo.RequeueStranded(); err != nil {
		log.Error().Err(err).Msg("Failed to requeue stranded jobs")
	} else if n > 0 {
		log.Warn().Int64("jobs", n).Msg("Requeued jobs stranded by a previous shutdown")
	}

	ctx, q.cancel = context.WithCancel(ctx)
	for kind, policy := range q.policies {
		concurrency := policy.Concurrency
		if concurrency <= 0 {
			concurrency = 1
		}
		for i := 0; i < concurrency; i++ {
			q.wg.Add(1)
			go q.worker(ctx, kind, i)
		}
	}
	log.Info().Int("kinds", len(q.policies)).Msg("Worker pools started")
}

// Stop cancels all workers and waits for in-flight jobs to settle.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	log.Info().Msg("Worker pools stopped")
}

func (q *Queue) worker(ctx context.Context, kind string, id int) {
	defer q.wg.Done()
	limiter := q.limiters[kind]

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := q.repo.FetchNext(kind)
		if err != nil {
			log.Error().Err(err).Str("kind", kind).Msg("Failed to fetch next job")
			q.sleep(ctx, time.Second)
			continue
		}
		if job == nil {
			q.sleep(ctx, idlePollInterval)
			continue
		}

		// The rate cap bounds calls to the downstream provider, so wait
		// after claiming but before executing.
		if err := limiter.Wait(ctx); err != nil {
			// Shutting down with a claimed job: requeue it untouched.
			job.Status = model.JobQueued
			job.Attempts--
			if uerr := q.repo.Update(job); uerr != nil {
				log.Error().Err(uerr).Uint("jobID", job.ID).Msg("Failed to requeue job on shutdown")
			}
			return
		}

		q.process(ctx, job, id)
	}
}

func (q *Queue) process(ctx context.Context, job *model.Job, workerID int) {
	q.mu.RLock()
	handler, ok := q.handlers[job.Kind]
	q.mu.RUnlock()
	if !ok {
		job.Status = model.JobFailed
		job.LastError = "no handler registered"
		if err := q.repo.Update(job); err != nil {
			log.Error().Err(err).Uint("jobID", job.ID).Msg("Failed to mark handlerless job")
		}
		return
	}

	log.Debug().Uint("jobID", job.ID).Str("kind", job.Kind).Int("worker", workerID).
		Int("attempt", job.Attempts).Msg("Processing job")

	err := handler(ctx, job)
	if err == nil {
		job.Status = model.JobCompleted
		job.LastError = ""
		if uerr := q.repo.Update(job); uerr != nil {
			log.Error().Err(uerr).Uint("jobID", job.ID).Msg("Failed to mark job completed")
		}
		q.fire(q.completeHooks(job.Kind), job)
		return
	}

	job.LastError = err.Error()

	if job.Attempts >= job.MaxAttempts {
		job.Status = model.JobFailed
		if uerr := q.repo.Update(job); uerr != nil {
			log.Error().Err(uerr).Uint("jobID", job.ID).Msg("Failed to mark job failed")
		}
		log.Error().Err(fmt.Errorf("%w: %v", apperr.ErrJobExhausted, err)).
			Uint("jobID", job.ID).Str("kind", job.Kind).Int("attempts", job.Attempts).
			Msg("Job exhausted retries")
		q.fire(q.failedHooks(job.Kind), job)
		return
	}

	delay := Backoff(q.policies[job.Kind], job.Attempts)
	job.Status = model.JobQueued
	job.NextRunAt = time.Now().Add(delay)
	if uerr := q.repo.Update(job); uerr != nil {
		log.Error().Err(uerr).Uint("jobID", job.ID).Msg("Failed to schedule job retry")
		return
	}
	log.Warn().Err(err).Uint("jobID", job.ID).Str("kind", job.Kind).
		Dur("backoff", delay).Int("attempt", job.Attempts).Msg("Job failed, retry scheduled")
}

func (q *Queue) completeHooks(kind string) []Hook {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.onComplete[kind]
}

func (q *Queue) failedHooks(kind string) []Hook {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.onFailed[kind]
}

func (q *Queue) fire(hooks []Hook, job *model.Job) {
	for _, hook := range hooks {
		hook(job)
	}
}

func (q *Queue) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
