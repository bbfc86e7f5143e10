package model

import (
	"time"

	"gorm.io/gorm"
)

// Question difficulties.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// Evaluation lifecycle of a single question. EvaluationFailed is terminal: the
// grading job exhausted its retries and the question counts as ungraded-final
// when the session completion is computed.
const (
	EvaluationNone    = ""
	EvaluationPending = "pending"
	EvaluationGraded  = "graded"
	EvaluationFailed  = "failed"
)

// EvaluationCriteria is the structured rubric the provider generates alongside
// each question and consumes again when grading the answer.
type EvaluationCriteria struct {
	KeyPoints      []string `json:"keyPoints"`
	CommonMistakes []string `json:"commonMistakes"`
	BonusPoints    []string `json:"bonusPoints"`
}

type Question struct {
	ID          uint `gorm:"primarykey" json:"id"`
	InterviewID uint `json:"interview_id" gorm:"not null;index;uniqueIndex:idx_questions_interview_order,priority:1"`
	Order       int  `json:"order" gorm:"column:order_index;not null;uniqueIndex:idx_questions_interview_order,priority:2"`

	Prompt             string             `json:"prompt" gorm:"type:text;not null"`
	Category           string             `json:"category"`
	Difficulty         string             `json:"difficulty"`
	ExpectedAnswer     string             `json:"expected_answer,omitempty" gorm:"type:text"`
	EvaluationCriteria EvaluationCriteria `json:"evaluation_criteria" gorm:"serializer:json"`
	GeneratedByAI      bool               `json:"generated_by_ai"`

	// Synthesized question audio, populated by the TTS job.
	AudioURL *string `json:"audio_url,omitempty"`
	AudioKey *string `json:"-"`

	// Answer fields, populated on submission. A question is answered iff
	// UserAnswer is non-nil.
	UserAnswer    *string    `json:"user_answer,omitempty" gorm:"type:text"`
	UserAudioURL  *string    `json:"user_audio_url,omitempty"`
	UserAudioKey  *string    `json:"-"`
	Transcription *string    `json:"transcription,omitempty" gorm:"type:text"`
	AudioDuration *float64   `json:"audio_duration,omitempty"` // seconds, from transcription
	TimeSpent     *int       `json:"time_spent,omitempty"`     // seconds, client-reported
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`

	// Grading fields, populated by the evaluation job. A question is graded
	// iff Score is non-nil.
	EvaluationStatus string   `json:"evaluation_status"`
	Score            *float64 `json:"score,omitempty"`
	Correctness      *float64 `json:"correctness,omitempty"`
	Completeness     *float64 `json:"completeness,omitempty"`
	Clarity          *float64 `json:"clarity,omitempty"`
	Strengths        []string `json:"strengths,omitempty" gorm:"serializer:json"`
	Improvements     []string `json:"improvements,omitempty" gorm:"serializer:json"`
	AIEvaluation     *string  `json:"ai_evaluation,omitempty" gorm:"type:text"`
	ModelAnswer      *string  `json:"model_answer,omitempty" gorm:"type:text"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Answered reports whether an answer has been submitted for this question.
func (q *Question) Answered() bool { return q.UserAnswer != nil }

// Graded reports whether the evaluation job produced a score.
func (q *Question) Graded() bool { return q.Score != nil }
