package repository

import (
	"errors"
	"fmt"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/gorm"
)

type InterviewRepository interface {
	// Create persists the interview together with its questions in a single
	// transaction; on failure nothing is visible.
	Create(interview *model.Interview) error

	FindByID(id uint) (*model.Interview, error)
	FindByIDAndUser(id, userID uint) (*model.Interview, error)
	FindByIDWithQuestions(id uint) (*model.Interview, error)
	// FindByIDWithDetails loads questions (ordered) and feedback, scoped to
	// the owner.
	FindByIDWithDetails(id, userID uint) (*model.Interview, error)
	FindAllByUser(userID uint, status, interviewType string, offset, limit int) ([]model.Interview, int64, error)

	// TransitionStatus performs a conditional state transition: it succeeds
	// for exactly one caller even under a race. Extra fields are applied
	// atomically with the status change.
	TransitionStatus(id uint, from, to string, fields map[string]any) (bool, error)

	// Delete removes the interview and cascades to its questions and
	// feedback.
	Delete(id uint) error
}

type interviewRepository struct {
	db *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) InterviewRepository {
	return &interviewRepository{db: db}
}

func (r *interviewRepository) Create(interview *model.Interview) error {
	// GORM creates the associated questions inside the same transaction.
	if err := r.db.Create(interview).Error; err != nil {
		return fmt.Errorf("%w: create interview: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (r *interviewRepository) FindByID(id uint) (*model.Interview, error) {
	var interview model.Interview
	if err := r.db.First(&interview, id).Error; err != nil {
		return nil, wrapFindErr(err, "interview")
	}
	return &interview, nil
}

func (r *interviewRepository) FindByIDAndUser(id, userID uint) (*model.Interview, error) {
	var interview model.Interview
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&interview).Error
	if err != nil {
		return nil, wrapFindErr(err, "interview")
	}
	return &interview, nil
}

func (r *interviewRepository) FindByIDWithQuestions(id uint) (*model.Interview, error) {
	var interview model.Interview
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_index ASC")
	}).First(&interview, id).Error
	if err != nil {
		return nil, wrapFindErr(err, "interview")
	}
	return &interview, nil
}

func (r *interviewRepository) FindByIDWithDetails(id, userID uint) (*model.Interview, error) {
	var interview model.Interview
	err := r.db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_index ASC")
		}).
		Preload("Feedback").
		Where("id = ? AND user_id = ?", id, userID).
		First(&interview).Error
	if err != nil {
		return nil, wrapFindErr(err, "interview")
	}
	return &interview, nil
}

func (r *interviewRepository) FindAllByUser(userID uint, status, interviewType string, offset, limit int) ([]model.Interview, int64, error) {
	query := r.db.Model(&model.Interview{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if interviewType != "" {
		query = query.Where("type = ?", interviewType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count interviews: %v", apperr.ErrStorage, err)
	}

	var interviews []model.Interview
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&interviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list interviews: %v", apperr.ErrStorage, err)
	}
	return interviews, total, nil
}

func (r *interviewRepository) TransitionStatus(id uint, from, to string, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.Model(&model.Interview{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("%w: transition %s->%s: %v", apperr.ErrStorage, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *interviewRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("interview_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("interview_id = ?", id).Delete(&model.InterviewFeedback{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Interview{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("%w: delete interview: %v", apperr.ErrStorage, err)
	}
	return nil
}

// wrapFindErr maps a gorm lookup failure onto the error taxonomy. Missing rows
// and unauthorized rows are indistinguishable by design.
func wrapFindErr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, entity)
	}
	return fmt.Errorf("%w: find %s: %v", apperr.ErrStorage, entity, err)
}
