package model

import (
	"time"

	"gorm.io/gorm"
)

// InterviewFeedback is the session-level report synthesized once all grading
// has settled. Created exactly once per interview, never mutated.
type InterviewFeedback struct {
	ID          uint `gorm:"primarykey" json:"id"`
	InterviewID uint `json:"interview_id" gorm:"not null;uniqueIndex"`

	Summary         string   `json:"summary" gorm:"type:text"`
	Strengths       []string `json:"strengths" gorm:"serializer:json"`
	AreasToImprove  []string `json:"areas_to_improve" gorm:"serializer:json"`
	Recommendations []string `json:"recommendations" gorm:"serializer:json"`
	NextSteps       []string `json:"next_steps" gorm:"serializer:json"`
	GeneratedByAI   bool     `json:"generated_by_ai"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
