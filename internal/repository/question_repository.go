package repository

import (
	"fmt"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"gorm.io/gorm"
)

// QuestionRepository exposes field-group writes rather than whole-row saves:
// answer submission and asynchronous grading touch disjoint column sets, so
// concurrent writers never clobber each other's fields.
type QuestionRepository interface {
	FindByID(id uint) (*model.Question, error)
	FindByIDInInterview(id, interviewID uint) (*model.Question, error)
	FindByInterviewID(interviewID uint) ([]model.Question, error)

	SaveAnswer(q *model.Question) error
	SaveGrade(q *model.Question) error
	SaveTranscription(q *model.Question) error
	SaveSynthesizedAudio(q *model.Question) error
	SaveUserAudio(q *model.Question) error
	SetEvaluationStatus(id uint, status string) error
}

type questionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) FindByID(id uint) (*model.Question, error) {
	var question model.Question
	if err := r.db.First(&question, id).Error; err != nil {
		return nil, wrapFindErr(err, "question")
	}
	return &question, nil
}

func (r *questionRepository) FindByIDInInterview(id, interviewID uint) (*model.Question, error) {
	var question model.Question
	err := r.db.Where("id = ? AND interview_id = ?", id, interviewID).First(&question).Error
	if err != nil {
		return nil, wrapFindErr(err, "question")
	}
	return &question, nil
}

func (r *questionRepository) FindByInterviewID(interviewID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.Where("interview_id = ?", interviewID).Order("order_index ASC").Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list questions: %v", apperr.ErrStorage, err)
	}
	return questions, nil
}

func (r *questionRepository) save(q *model.Question, columns ...string) error {
	err := r.db.Model(q).Select(columns).Updates(q).Error
	if err != nil {
		return fmt.Errorf("%w: update question %d: %v", apperr.ErrStorage, q.ID, err)
	}
	return nil
}

func (r *questionRepository) SaveAnswer(q *model.Question) error {
	return r.save(q,
		"user_answer", "user_audio_url", "transcription",
		"time_spent", "answered_at", "evaluation_status")
}

func (r *questionRepository) SaveGrade(q *model.Question) error {
	return r.save(q,
		"score", "correctness", "completeness", "clarity",
		"strengths", "improvements", "ai_evaluation", "model_answer",
		"evaluation_status")
}

func (r *questionRepository) SaveTranscription(q *model.Question) error {
	return r.save(q, "transcription", "audio_duration")
}

func (r *questionRepository) SaveSynthesizedAudio(q *model.Question) error {
	return r.save(q, "audio_url", "audio_key")
}

func (r *questionRepository) SaveUserAudio(q *model.Question) error {
	return r.save(q, "user_audio_url", "user_audio_key")
}

func (r *questionRepository) SetEvaluationStatus(id uint, status string) error {
	err := r.db.Model(&model.Question{}).Where("id = ?", id).
		Update("evaluation_status", status).Error
	if err != nil {
		return fmt.Errorf("%w: set evaluation status: %v", apperr.ErrStorage, err)
	}
	return nil
}
