package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/google/generative-ai-go/genai"
	"github.com/prepwise/prepwise/config"
	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// Per-operation timeouts. Generation carries the largest prompt and the
// largest response; transcription scales with audio length.
const (
	generateTimeout   = 45 * time.Second
	evaluateTimeout   = 30 * time.Second
	feedbackTimeout   = 30 * time.Second
	transcribeTimeout = 2 * time.Minute
	synthesizeTimeout = 20 * time.Second
)

type aiProviderService struct {
	model  *genai.GenerativeModel
	speech *speech.Client
	tts    *texttospeech.Client
	cfg    *config.Config
}

// NewAIProviderService builds the provider adapter. A missing Gemini key
// leaves the text operations non-functional (they return
// ErrProviderUnavailable) so the rest of the application can still boot in
// development.
func NewAIProviderService(cfg *config.Config) (AIProviderService, error) {
	svc := &aiProviderService{cfg: cfg}
	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.Provider.GoogleCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Provider.GoogleCredentials))
	}

	if cfg.Provider.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. AI provider text operations will be non-functional.")
	} else {
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Provider.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		model := client.GenerativeModel(cfg.Provider.GeminiModel)
		model.ResponseMIMEType = "application/json"
		svc.model = model
	}

	speechClient, err := speech.NewClient(ctx, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("Speech-to-Text client unavailable; transcription will fail until configured.")
	} else {
		svc.speech = speechClient
	}

	ttsClient, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		log.Warn().Err(err).Msg("Text-to-Speech client unavailable; synthesis will fail until configured.")
	} else {
		svc.tts = ttsClient
	}

	return svc, nil
}

// mapProviderErr folds transport failures into the provider taxonomy.
func mapProviderErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperr.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrProviderUnavailable, err)
}

func (s *aiProviderService) generate(ctx context.Context, timeout time.Duration, prompt string) ([]byte, error) {
	if s.model == nil {
		return nil, fmt.Errorf("%w: gemini client not initialized", apperr.ErrProviderUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, mapProviderErr(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", apperr.ErrProviderInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("%w: no text content", apperr.ErrProviderInvalidResponse)
	}
	return []byte(sb.String()), nil
}

func (s *aiProviderService) GenerateQuestions(ctx context.Context, spec QuestionSpec) ([]GeneratedQuestion, error) {
	log.Info().Str("type", spec.Type).Str("role", spec.Role).Int("count", spec.Count).
		Msg("Generating interview questions")

	raw, err := s.generate(ctx, generateTimeout, buildQuestionGenerationPrompt(spec))
	if err != nil {
		return nil, err
	}
	return parseGeneratedQuestions(raw, spec.Count)
}

func buildQuestionGenerationPrompt(spec QuestionSpec) string {
	var b strings.Builder
	b.WriteString("You are an expert technical interviewer at top tech companies. ")
	b.WriteString("Generate realistic, high-quality interview questions with detailed evaluation criteria.\n\n")

	fmt.Fprintf(&b, "Generate %d %s interview questions for a %s level %s position",
		spec.Count, spec.Type, spec.ExperienceLevel, spec.Role)
	if spec.Company != nil && *spec.Company != "" {
		fmt.Fprintf(&b, " at %s", *spec.Company)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Tech Stack: %s\n\n", strings.Join(spec.TechStack, ", "))

	b.WriteString("Requirements:\n")
	b.WriteString("- Questions should be realistic and match the experience level\n")
	b.WriteString("- Include a mix of difficulties (EASY, MEDIUM, HARD)\n")
	b.WriteString("- Provide detailed expected answers\n")
	b.WriteString("- Include specific evaluation criteria\n\n")

	b.WriteString(`Return JSON in this exact format:
{
  "questions": [
    {
      "question": "string",
      "category": "string",
      "difficulty": "EASY|MEDIUM|HARD",
      "expectedAnswer": "string",
      "evaluationCriteria": {
        "keyPoints": ["string"],
        "commonMistakes": ["string"],
        "bonusPoints": ["string"]
      }
    }
  ]
}`)
	return b.String()
}

// parseGeneratedQuestions enforces the count contract: the provider must
// return exactly the requested number of questions.
func parseGeneratedQuestions(raw []byte, want int) ([]GeneratedQuestion, error) {
	var payload struct {
		Questions []GeneratedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", apperr.ErrProviderInvalidResponse, err)
	}
	if len(payload.Questions) != want {
		return nil, fmt.Errorf("%w: requested %d questions, got %d",
			apperr.ErrProviderInvalidResponse, want, len(payload.Questions))
	}
	for i := range payload.Questions {
		if strings.TrimSpace(payload.Questions[i].Question) == "" {
			return nil, fmt.Errorf("%w: question %d has empty prompt", apperr.ErrProviderInvalidResponse, i+1)
		}
	}
	return payload.Questions, nil
}

func (s *aiProviderService) EvaluateAnswer(ctx context.Context, in EvaluationInput) (*EvaluationResult, error) {
	raw, err := s.generate(ctx, evaluateTimeout, buildEvaluationPrompt(in))
	if err != nil {
		return nil, err
	}

	var result EvaluationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode evaluation: %v", apperr.ErrProviderInvalidResponse, err)
	}
	result.Correctness = clampScore(result.Correctness)
	result.Completeness = clampScore(result.Completeness)
	result.Clarity = clampScore(result.Clarity)
	return &result, nil
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func buildEvaluationPrompt(in EvaluationInput) string {
	var b strings.Builder
	b.WriteString("You are an expert technical interviewer providing constructive, detailed feedback on interview answers. Be fair but thorough.\n\n")
	b.WriteString("Evaluate this interview answer:\n\n")
	fmt.Fprintf(&b, "QUESTION: %s\nCATEGORY: %s\nDIFFICULTY: %s\n\n", in.Question, in.Category, in.Difficulty)
	fmt.Fprintf(&b, "EXPECTED ANSWER:\n%s\n\n", in.ExpectedAnswer)
	fmt.Fprintf(&b, "USER'S ANSWER:\n%s\n\n", in.UserAnswer)

	if criteria, err := json.MarshalIndent(in.Criteria, "", "  "); err == nil {
		fmt.Fprintf(&b, "EVALUATION CRITERIA:\n%s\n\n", criteria)
	}

	b.WriteString(`Provide a detailed evaluation with scores (0-10) for:
1. Correctness - Technical accuracy
2. Completeness - Coverage of key points
3. Clarity - Communication effectiveness

Also provide:
- List of strengths (what they did well)
- List of areas to improve
- Detailed feedback paragraph
- An ideal model answer

Return JSON in this exact format:
{
  "correctness": 0-10,
  "completeness": 0-10,
  "clarity": 0-10,
  "strengths": ["string"],
  "improvements": ["string"],
  "feedback": "string",
  "modelAnswer": "string"
}`)
	return b.String()
}

func (s *aiProviderService) GenerateSessionFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	raw, err := s.generate(ctx, feedbackTimeout, buildFeedbackPrompt(in))
	if err != nil {
		return nil, err
	}

	var result FeedbackResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: decode feedback: %v", apperr.ErrProviderInvalidResponse, err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, fmt.Errorf("%w: feedback summary is empty", apperr.ErrProviderInvalidResponse)
	}
	return &result, nil
}

func buildFeedbackPrompt(in FeedbackInput) string {
	var b strings.Builder
	b.WriteString("You are a senior technical interviewer providing comprehensive, actionable feedback to help candidates improve.\n\n")
	fmt.Fprintf(&b, "Generate comprehensive feedback for this %s interview for a %s position.\n\n", in.InterviewType, in.Role)
	fmt.Fprintf(&b, "OVERALL SCORE: %.2f/10\n\nQUESTIONS AND RESPONSES:\n", in.OverallScore)

	for i, q := range in.Questions {
		fmt.Fprintf(&b, "\nQuestion %d: %s\nScore: %.2f/10\nStrengths: %s\nImprovements: %s\n",
			i+1, q.Question, q.Score, strings.Join(q.Strengths, ", "), strings.Join(q.Improvements, ", "))
	}

	b.WriteString(`
Provide:
1. Executive summary (2-3 sentences)
2. Top 3-5 overall strengths
3. Top 3-5 areas to improve
4. Specific recommendations for improvement
5. Next steps and action items

Return JSON in this exact format:
{
  "summary": "string",
  "strengths": ["string"],
  "areasToImprove": ["string"],
  "recommendations": ["string"],
  "nextSteps": ["string"]
}`)
	return b.String()
}
