package service

import (
	"context"

	"github.com/prepwise/prepwise/internal/model"
)

// QuestionSpec describes the interview for which questions are generated.
type QuestionSpec struct {
	Type            string
	Role            string
	ExperienceLevel string
	TechStack       []string
	Company         *string
	Count           int
}

// GeneratedQuestion is one provider-authored question with its grading rubric.
type GeneratedQuestion struct {
	Question           string                   `json:"question"`
	Category           string                   `json:"category"`
	Difficulty         string                   `json:"difficulty"`
	ExpectedAnswer     string                   `json:"expectedAnswer"`
	EvaluationCriteria model.EvaluationCriteria `json:"evaluationCriteria"`
}

// Transcript is the result of transcribing one answer recording.
type Transcript struct {
	Text            string
	Language        string
	DurationSeconds float64
}

// EvaluationInput carries everything the provider needs to grade one answer.
type EvaluationInput struct {
	Question       string
	ExpectedAnswer string
	UserAnswer     string
	Category       string
	Difficulty     string
	Criteria       model.EvaluationCriteria
}

// EvaluationResult holds the three sub-scores (0-10) and the qualitative
// feedback. The overall score is computed by the caller as the arithmetic
// mean of the sub-scores; the provider's own aggregate is never trusted.
type EvaluationResult struct {
	Correctness  float64  `json:"correctness"`
	Completeness float64  `json:"completeness"`
	Clarity      float64  `json:"clarity"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Feedback     string   `json:"feedback"`
	ModelAnswer  string   `json:"modelAnswer"`
}

// Overall returns the mean of the three sub-scores.
func (r *EvaluationResult) Overall() float64 {
	return (r.Correctness + r.Completeness + r.Clarity) / 3
}

// FeedbackQuestion is one graded question summarized for session feedback.
type FeedbackQuestion struct {
	Question     string
	UserAnswer   string
	Score        float64
	Strengths    []string
	Improvements []string
}

type FeedbackInput struct {
	InterviewType string
	Role          string
	OverallScore  float64
	Questions     []FeedbackQuestion
}

type FeedbackResult struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	AreasToImprove  []string `json:"areasToImprove"`
	Recommendations []string `json:"recommendations"`
	NextSteps       []string `json:"nextSteps"`
}

// AIProviderService wraps the external AI capability behind one interface:
// question generation, transcription, speech synthesis, answer evaluation and
// session feedback. Every call applies a bounded timeout and maps failures to
// the provider error taxonomy.
type AIProviderService interface {
	GenerateQuestions(ctx context.Context, spec QuestionSpec) ([]GeneratedQuestion, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error)
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	EvaluateAnswer(ctx context.Context, in EvaluationInput) (*EvaluationResult, error)
	GenerateSessionFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error)
}
