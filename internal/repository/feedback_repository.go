package repository

import (
	"errors"
	"fmt"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/gorm"
)

type FeedbackRepository interface {
	// CreateIfAbsent inserts the feedback unless one already exists for the
	// interview; re-delivered completion events never duplicate the row.
	CreateIfAbsent(feedback *model.InterviewFeedback) error
	FindByInterviewID(interviewID uint) (*model.InterviewFeedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) CreateIfAbsent(feedback *model.InterviewFeedback) error {
	var existing model.InterviewFeedback
	err := r.db.Where("interview_id = ?", feedback.InterviewID).First(&existing).Error
	if err == nil {
		*feedback = existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: find feedback: %v", apperr.ErrStorage, err)
	}

	if err := r.db.Create(feedback).Error; err != nil {
		// A racing writer may have won the unique index on interview_id.
		var winner model.InterviewFeedback
		if ferr := r.db.Where("interview_id = ?", feedback.InterviewID).First(&winner).Error; ferr == nil {
			*feedback = winner
			return nil
		}
		return fmt.Errorf("%w: create feedback: %v", apperr.ErrStorage, err)
	}
	return nil
}

func (r *feedbackRepository) FindByInterviewID(interviewID uint) (*model.InterviewFeedback, error) {
	var feedback model.InterviewFeedback
	err := r.db.Where("interview_id = ?", interviewID).First(&feedback).Error
	if err != nil {
		return nil, wrapFindErr(err, "feedback")
	}
	return &feedback, nil
}
