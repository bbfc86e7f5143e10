package model

import (
	"time"

	"gorm.io/gorm"
)

// Interview types.
const (
	InterviewTypeTechnical    = "TECHNICAL"
	InterviewTypeBehavioral   = "BEHAVIORAL"
	InterviewTypeSystemDesign = "SYSTEM_DESIGN"
	InterviewTypeMockFull     = "MOCK_FULL"
	InterviewTypeCustom       = "CUSTOM"
)

// Interview statuses. Transitions are monotonic:
// DRAFT -> IN_PROGRESS -> COMPLETED, with CANCELLED as an explicit terminal
// state reachable from IN_PROGRESS. A session never re-enters DRAFT.
const (
	StatusDraft      = "DRAFT"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
)

// IsTerminalStatus reports whether no further mutation of the session is
// permitted. Workers consult this before writing async results.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

type Interview struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	UserID uint   `json:"user_id" gorm:"not null;index"`
	Type   string `json:"type" gorm:"not null"`
	Status string `json:"status" gorm:"not null;default:'DRAFT';index"`

	Role            string   `json:"role" gorm:"not null"`
	Company         *string  `json:"company,omitempty"`
	ExperienceLevel string   `json:"experience_level" gorm:"not null"`
	TechStack       []string `json:"tech_stack" gorm:"serializer:json"`
	FocusAreas      []string `json:"focus_areas" gorm:"serializer:json"`
	Duration        int      `json:"duration" gorm:"not null"` // planned length, minutes
	QuestionsCount  int      `json:"questions_count" gorm:"not null"`
	VoiceEnabled    bool     `json:"voice_enabled"`
	TTSVoice        string   `json:"tts_voice"`

	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TotalDuration *int       `json:"total_duration,omitempty"` // elapsed, minutes

	// Aggregates stay nil until the session reaches COMPLETED.
	OverallScore      *float64 `json:"overall_score,omitempty"`
	CorrectnessScore  *float64 `json:"correctness_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	ClarityScore      *float64 `json:"clarity_score,omitempty"`

	Questions []Question         `json:"questions,omitempty" gorm:"foreignKey:InterviewID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Feedback  *InterviewFeedback `json:"feedback,omitempty" gorm:"foreignKey:InterviewID;constraint:OnDelete:CASCADE;"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
