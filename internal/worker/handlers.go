// Package worker wires the job kinds to their processing logic. Handlers
// re-fetch state at execution time and discard work whose target has been
// deleted or whose interview has reached a terminal status, so stale jobs
// never corrupt finished sessions.
package worker

import (
	"context"
	"errors"
	"strings"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/queue"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/prepwise/prepwise/internal/service"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	interviewRepo repository.InterviewRepository
	questionRepo  repository.QuestionRepository
	provider      service.AIProviderService
	storage       service.StorageService
	interviews    service.InterviewService
}

func NewHandlers(
	interviewRepo repository.InterviewRepository,
	questionRepo repository.QuestionRepository,
	provider service.AIProviderService,
	storage service.StorageService,
	interviews service.InterviewService,
) *Handlers {
	return &Handlers{
		interviewRepo: interviewRepo,
		questionRepo:  questionRepo,
		provider:      provider,
		storage:       storage,
		interviews:    interviews,
	}
}

// Register installs all handlers and terminal hooks on the queue.
func (h *Handlers) Register(q *queue.Queue) {
	q.Register(queue.KindTranscription, h.HandleTranscription)
	q.Register(queue.KindTTS, h.HandleTTS)
	q.Register(queue.KindEvaluation, h.HandleEvaluation)
	q.OnFailed(queue.KindEvaluation, h.EvaluationExhausted)
}

// loadLiveQuestion fetches the question and its interview, returning
// (nil, nil, nil) when the job's target is gone or its interview is finished.
func (h *Handlers) loadLiveQuestion(questionID uint) (*model.Question, *model.Interview, error) {
	question, err := h.questionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Debug().Uint("questionID", questionID).Msg("Discarding job for deleted question")
			return nil, nil, nil
		}
		return nil, nil, err
	}

	interview, err := h.interviewRepo.FindByID(question.InterviewID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			log.Debug().Uint("questionID", questionID).Msg("Discarding job for deleted interview")
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if model.IsTerminalStatus(interview.Status) {
		log.Debug().Uint("interviewID", interview.ID).Str("status", interview.Status).
			Msg("Discarding job for finished interview")
		return nil, nil, nil
	}
	return question, interview, nil
}

func (h *Handlers) HandleTranscription(ctx context.Context, job *model.Job) error {
	var payload queue.TranscriptionPayload
	if err := queue.UnmarshalPayload(job, &payload); err != nil {
		return err
	}

	question, _, err := h.loadLiveQuestion(payload.QuestionID)
	if err != nil || question == nil {
		return err
	}
	if question.UserAudioKey == nil {
		log.Warn().Uint("questionID", question.ID).Msg("Transcription job without stored audio")
		return nil
	}
	if question.Transcription != nil {
		return nil
	}

	audio, err := h.storage.Download(ctx, *question.UserAudioKey)
	if err != nil {
		return err
	}

	transcript, err := h.provider.Transcribe(ctx, audio, contentTypeForKey(*question.UserAudioKey))
	if err != nil {
		return err
	}

	question.Transcription = &transcript.Text
	question.AudioDuration = &transcript.DurationSeconds
	if err := h.questionRepo.SaveTranscription(question); err != nil {
		return err
	}

	log.Info().Uint("questionID", question.ID).Float64("duration", transcript.DurationSeconds).
		Msg("Answer audio transcribed")
	return nil
}

func (h *Handlers) HandleTTS(ctx context.Context, job *model.Job) error {
	var payload queue.TTSPayload
	if err := queue.UnmarshalPayload(job, &payload); err != nil {
		return err
	}

	question, _, err := h.loadLiveQuestion(payload.QuestionID)
	if err != nil || question == nil {
		return err
	}
	if question.AudioURL != nil {
		return nil
	}

	audio, err := h.provider.Synthesize(ctx, question.Prompt, payload.Voice)
	if err != nil {
		return err
	}

	result, err := h.storage.Upload(ctx, audio, "audio/mpeg", "questions")
	if err != nil {
		return err
	}

	question.AudioURL = &result.URL
	question.AudioKey = &result.Key
	if err := h.questionRepo.SaveSynthesizedAudio(question); err != nil {
		return err
	}

	log.Info().Uint("questionID", question.ID).Int64("size", result.Size).
		Msg("Question audio synthesized")
	return nil
}

func (h *Handlers) HandleEvaluation(ctx context.Context, job *model.Job) error {
	var payload queue.EvaluationPayload
	if err := queue.UnmarshalPayload(job, &payload); err != nil {
		return err
	}

	question, interview, err := h.loadLiveQuestion(payload.QuestionID)
	if err != nil || question == nil {
		return err
	}
	if !question.Answered() {
		log.Warn().Uint("questionID", question.ID).Msg("Evaluation job for unanswered question")
		return nil
	}

	answer := *question.UserAnswer
	if strings.TrimSpace(answer) == "" && question.Transcription != nil {
		answer = *question.Transcription
	}

	result, err := h.provider.EvaluateAnswer(ctx, service.EvaluationInput{
		Question:       question.Prompt,
		ExpectedAnswer: question.ExpectedAnswer,
		UserAnswer:     answer,
		Category:       question.Category,
		Difficulty:     question.Difficulty,
		Criteria:       question.EvaluationCriteria,
	})
	if err != nil {
		return err
	}

	score := result.Overall()
	question.Score = &score
	question.Correctness = &result.Correctness
	question.Completeness = &result.Completeness
	question.Clarity = &result.Clarity
	question.Strengths = result.Strengths
	question.Improvements = result.Improvements
	question.AIEvaluation = &result.Feedback
	question.ModelAnswer = &result.ModelAnswer
	question.EvaluationStatus = model.EvaluationGraded

	if err := h.questionRepo.SaveGrade(question); err != nil {
		return err
	}

	log.Info().Uint("questionID", question.ID).Uint("interviewID", interview.ID).
		Float64("score", score).Msg("Answer graded")

	if err := h.interviews.CheckCompletion(ctx, interview.ID); err != nil {
		log.Error().Err(err).Uint("interviewID", interview.ID).Msg("Completion check failed")
	}
	return nil
}

// EvaluationExhausted marks the question's grading as failed once the
// evaluation job runs out of retries, then re-checks completion so the
// interview can finish on its remaining grades.
func (h *Handlers) EvaluationExhausted(job *model.Job) {
	var payload queue.EvaluationPayload
	if err := queue.UnmarshalPayload(job, &payload); err != nil {
		log.Error().Err(err).Uint("jobID", job.ID).Msg("Cannot decode exhausted evaluation job")
		return
	}

	question, interview, err := h.loadLiveQuestion(payload.QuestionID)
	if err != nil {
		log.Error().Err(err).Uint("questionID", payload.QuestionID).Msg("Failed to load question")
		return
	}
	if question == nil {
		return
	}

	if err := h.questionRepo.SetEvaluationStatus(question.ID, model.EvaluationFailed); err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).
			Msg("Failed to mark evaluation as failed")
		return
	}

	log.Warn().Uint("questionID", question.ID).Uint("interviewID", interview.ID).
		Msg("Evaluation exhausted retries, question stays ungraded")

	if err := h.interviews.CheckCompletion(context.Background(), interview.ID); err != nil {
		log.Error().Err(err).Uint("interviewID", interview.ID).Msg("Completion check failed")
	}
}

func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(key, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(key, ".webm"):
		return "audio/webm"
	case strings.HasSuffix(key, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(key, ".ogg"):
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
