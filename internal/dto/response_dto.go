package dto

import (
	"time"

	"github.com/prepwise/prepwise/internal/model"
)

type QuestionDTO struct {
	ID          uint   `json:"id"`
	InterviewID uint   `json:"interview_id"`
	Order       int    `json:"order"`
	Prompt      string `json:"prompt"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`

	GeneratedByAI bool    `json:"generated_by_ai"`
	AudioURL      *string `json:"audio_url,omitempty"`

	UserAnswer    *string    `json:"user_answer,omitempty"`
	UserAudioURL  *string    `json:"user_audio_url,omitempty"`
	Transcription *string    `json:"transcription,omitempty"`
	TimeSpent     *int       `json:"time_spent,omitempty"`
	AnsweredAt    *time.Time `json:"answered_at,omitempty"`

	EvaluationStatus string   `json:"evaluation_status"`
	Score            *float64 `json:"score,omitempty"`
	Correctness      *float64 `json:"correctness,omitempty"`
	Completeness     *float64 `json:"completeness,omitempty"`
	Clarity          *float64 `json:"clarity,omitempty"`
	Strengths        []string `json:"strengths,omitempty"`
	Improvements     []string `json:"improvements,omitempty"`
	AIEvaluation     *string  `json:"ai_evaluation,omitempty"`
	ModelAnswer      *string  `json:"model_answer,omitempty"`
}

type FeedbackDTO struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	AreasToImprove  []string `json:"areas_to_improve"`
	Recommendations []string `json:"recommendations"`
	NextSteps       []string `json:"next_steps"`
	GeneratedByAI   bool     `json:"generated_by_ai"`
}

type InterviewDTO struct {
	ID              uint     `json:"id"`
	Type            string   `json:"type"`
	Status          string   `json:"status"`
	Role            string   `json:"role"`
	Company         *string  `json:"company,omitempty"`
	ExperienceLevel string   `json:"experience_level"`
	TechStack       []string `json:"tech_stack"`
	FocusAreas      []string `json:"focus_areas,omitempty"`
	Duration        int      `json:"duration"`
	QuestionsCount  int      `json:"questions_count"`
	VoiceEnabled    bool     `json:"voice_enabled"`
	TTSVoice        string   `json:"tts_voice,omitempty"`

	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TotalDuration *int       `json:"total_duration,omitempty"`

	OverallScore      *float64 `json:"overall_score,omitempty"`
	CorrectnessScore  *float64 `json:"correctness_score,omitempty"`
	CompletenessScore *float64 `json:"completeness_score,omitempty"`
	ClarityScore      *float64 `json:"clarity_score,omitempty"`

	Questions []QuestionDTO `json:"questions,omitempty"`
	Feedback  *FeedbackDTO  `json:"feedback,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type InterviewSummaryDTO struct {
	ID             uint       `json:"id"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	Role           string     `json:"role"`
	Company        *string    `json:"company,omitempty"`
	QuestionsCount int        `json:"questions_count"`
	OverallScore   *float64   `json:"overall_score,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type InterviewListDTO struct {
	Data []InterviewSummaryDTO `json:"data"`
	Meta PageMetaDTO           `json:"meta"`
}

type PageMetaDTO struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ReportScoresDTO groups the session aggregates for the final report.
type ReportScoresDTO struct {
	Overall      *float64 `json:"overall"`
	Correctness  *float64 `json:"correctness"`
	Completeness *float64 `json:"completeness"`
	Clarity      *float64 `json:"clarity"`
}

type ReportDTO struct {
	Interview InterviewSummaryDTO `json:"interview"`
	Scores    ReportScoresDTO     `json:"scores"`
	Questions []QuestionDTO       `json:"questions"`
	Feedback  *FeedbackDTO        `json:"feedback,omitempty"`
}

type AudioUploadDTO struct {
	QuestionID uint   `json:"question_id"`
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	Queued     bool   `json:"transcription_queued"`
}

type AudioClipDTO struct {
	AudioURL string `json:"audio_url"`
	Size     int64  `json:"size"`
}

type UserStatDTO struct {
	UserID              uint       `json:"user_id"`
	InterviewsCompleted int        `json:"interviews_completed"`
	TotalPoints         int        `json:"total_points"`
	LastActivityAt      *time.Time `json:"last_activity_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// EvaluationStatusLabel maps the internal empty-string default to a stable
// wire value so clients never see "".
func EvaluationStatusLabel(status string) string {
	if status == model.EvaluationNone {
		return "none"
	}
	return status
}
