package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jinzhu/copier"
	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/queue"
	"github.com/prepwise/prepwise/internal/repository"
	"github.com/rs/zerolog/log"
)

// JobEnqueuer is the narrow queue surface the services need. *queue.Queue
// satisfies it.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any, dedupeKey string) (uint, error)
}

type InterviewService interface {
	CreateInterview(ctx context.Context, userID uint, req dto.CreateInterviewRequest) (*dto.InterviewDTO, error)
	ListInterviews(userID uint, query dto.InterviewQuery) (*dto.InterviewListDTO, error)
	GetInterview(userID, id uint) (*dto.InterviewDTO, error)
	StartInterview(userID, id uint) (*dto.InterviewDTO, error)
	SubmitAnswer(ctx context.Context, userID, interviewID, questionID uint, req dto.SubmitAnswerRequest) (*dto.QuestionDTO, error)
	CancelInterview(userID, id uint) (*dto.InterviewDTO, error)
	GetReport(userID, id uint) (*dto.ReportDTO, error)
	DeleteInterview(ctx context.Context, userID, id uint) error

	// CheckCompletion promotes an in-progress interview to COMPLETED once
	// every question is answered and no evaluation remains pending. Safe to
	// call repeatedly and from concurrent workers.
	CheckCompletion(ctx context.Context, interviewID uint) error
}

type interviewService struct {
	interviewRepo repository.InterviewRepository
	questionRepo  repository.QuestionRepository
	feedbackRepo  repository.FeedbackRepository
	provider      AIProviderService
	storage       StorageService
	jobs          JobEnqueuer
	stats         StatsService
}

func NewInterviewService(
	interviewRepo repository.InterviewRepository,
	questionRepo repository.QuestionRepository,
	feedbackRepo repository.FeedbackRepository,
	provider AIProviderService,
	storage StorageService,
	jobs JobEnqueuer,
	stats StatsService,
) InterviewService {
	return &interviewService{
		interviewRepo: interviewRepo,
		questionRepo:  questionRepo,
		feedbackRepo:  feedbackRepo,
		provider:      provider,
		storage:       storage,
		jobs:          jobs,
		stats:         stats,
	}
}

func (s *interviewService) CreateInterview(ctx context.Context, userID uint, req dto.CreateInterviewRequest) (*dto.InterviewDTO, error) {
	generated, err := s.provider.GenerateQuestions(ctx, QuestionSpec{
		Type:            req.Type,
		Role:            req.Role,
		ExperienceLevel: req.ExperienceLevel,
		TechStack:       req.TechStack,
		Company:         req.Company,
		Count:           req.QuestionsCount,
	})
	if err != nil {
		return nil, err
	}

	voiceEnabled := req.VoiceEnabled != nil && *req.VoiceEnabled

	interview := model.Interview{
		UserID:          userID,
		Type:            req.Type,
		Status:          model.StatusDraft,
		Role:            req.Role,
		Company:         req.Company,
		ExperienceLevel: req.ExperienceLevel,
		TechStack:       req.TechStack,
		FocusAreas:      req.FocusAreas,
		Duration:        req.Duration,
		QuestionsCount:  req.QuestionsCount,
		VoiceEnabled:    voiceEnabled,
		TTSVoice:        req.TTSVoice,
	}
	for i, q := range generated {
		interview.Questions = append(interview.Questions, model.Question{
			Order:              i + 1,
			Prompt:             q.Question,
			Category:           q.Category,
			Difficulty:         q.Difficulty,
			ExpectedAnswer:     q.ExpectedAnswer,
			EvaluationCriteria: q.EvaluationCriteria,
			GeneratedByAI:      true,
		})
	}

	if err := s.interviewRepo.Create(&interview); err != nil {
		return nil, err
	}

	log.Info().Uint("interviewID", interview.ID).Uint("userID", userID).
		Int("questions", len(interview.Questions)).Msg("Interview created")

	if voiceEnabled {
		for i := range interview.Questions {
			q := &interview.Questions[i]
			_, err := s.jobs.Enqueue(ctx, queue.KindTTS,
				queue.TTSPayload{QuestionID: q.ID, Voice: interview.TTSVoice},
				queue.DedupeKey(queue.KindTTS, q.ID))
			if err != nil {
				// Synthesis is best-effort; the interview proceeds text-only.
				log.Error().Err(err).Uint("questionID", q.ID).Msg("Failed to enqueue TTS job")
			}
		}
	}

	return s.toInterviewDTO(&interview, true), nil
}

func (s *interviewService) ListInterviews(userID uint, query dto.InterviewQuery) (*dto.InterviewListDTO, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 10
	}

	interviews, total, err := s.interviewRepo.FindAllByUser(userID, query.Status, query.Type, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	list := dto.InterviewListDTO{
		Data: make([]dto.InterviewSummaryDTO, 0, len(interviews)),
		Meta: dto.PageMetaDTO{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}
	for i := range interviews {
		var summary dto.InterviewSummaryDTO
		copier.Copy(&summary, &interviews[i])
		list.Data = append(list.Data, summary)
	}
	return &list, nil
}

func (s *interviewService) GetInterview(userID, id uint) (*dto.InterviewDTO, error) {
	interview, err := s.interviewRepo.FindByIDWithDetails(id, userID)
	if err != nil {
		return nil, err
	}
	return s.toInterviewDTO(interview, true), nil
}

func (s *interviewService) StartInterview(userID, id uint) (*dto.InterviewDTO, error) {
	interview, err := s.interviewRepo.FindByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ok, err := s.interviewRepo.TransitionStatus(id, model.StatusDraft, model.StatusInProgress,
		map[string]any{"started_at": now})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: interview is %s, expected %s",
			apperr.ErrInvalidState, interview.Status, model.StatusDraft)
	}

	log.Info().Uint("interviewID", id).Msg("Interview started")
	return s.GetInterview(userID, id)
}

func (s *interviewService) SubmitAnswer(ctx context.Context, userID, interviewID, questionID uint, req dto.SubmitAnswerRequest) (*dto.QuestionDTO, error) {
	interview, err := s.interviewRepo.FindByIDAndUser(interviewID, userID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot answer in status %s", apperr.ErrInvalidState, interview.Status)
	}

	question, err := s.questionRepo.FindByIDInInterview(questionID, interviewID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	question.UserAnswer = &req.UserAnswer
	question.UserAudioURL = req.AudioURL
	question.Transcription = req.Transcription
	question.TimeSpent = req.TimeSpent
	question.AnsweredAt = &now
	question.EvaluationStatus = model.EvaluationPending

	if err := s.questionRepo.SaveAnswer(question); err != nil {
		return nil, err
	}

	// Re-submission replaces any still-queued evaluation so only the latest
	// answer gets graded.
	_, err = s.jobs.Enqueue(ctx, queue.KindEvaluation,
		queue.EvaluationPayload{QuestionID: question.ID},
		queue.DedupeKey(queue.KindEvaluation, question.ID))
	if err != nil {
		return nil, err
	}

	log.Info().Uint("interviewID", interviewID).Uint("questionID", questionID).
		Msg("Answer submitted, evaluation queued")

	out := s.toQuestionDTO(question)
	return &out, nil
}

func (s *interviewService) CancelInterview(userID, id uint) (*dto.InterviewDTO, error) {
	interview, err := s.interviewRepo.FindByIDAndUser(id, userID)
	if err != nil {
		return nil, err
	}

	// The completed timestamp marks reaching COMPLETED; a cancelled session
	// never reaches it, so only the status moves.
	ok, err := s.interviewRepo.TransitionStatus(id, model.StatusInProgress, model.StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot cancel interview in status %s",
			apperr.ErrInvalidState, interview.Status)
	}

	log.Info().Uint("interviewID", id).Msg("Interview cancelled")
	return s.GetInterview(userID, id)
}

func (s *interviewService) GetReport(userID, id uint) (*dto.ReportDTO, error) {
	interview, err := s.interviewRepo.FindByIDWithDetails(id, userID)
	if err != nil {
		return nil, err
	}
	if interview.Status != model.StatusCompleted {
		return nil, fmt.Errorf("%w: report requires a completed interview, status is %s",
			apperr.ErrInvalidState, interview.Status)
	}

	report := dto.ReportDTO{
		Scores: dto.ReportScoresDTO{
			Overall:      interview.OverallScore,
			Correctness:  interview.CorrectnessScore,
			Completeness: interview.CompletenessScore,
			Clarity:      interview.ClarityScore,
		},
	}
	copier.Copy(&report.Interview, interview)
	for i := range interview.Questions {
		report.Questions = append(report.Questions, s.toQuestionDTO(&interview.Questions[i]))
	}
	if interview.Feedback != nil {
		var fb dto.FeedbackDTO
		copier.Copy(&fb, interview.Feedback)
		report.Feedback = &fb
	}
	return &report, nil
}

func (s *interviewService) DeleteInterview(ctx context.Context, userID, id uint) error {
	if _, err := s.interviewRepo.FindByIDAndUser(id, userID); err != nil {
		return err
	}

	questions, err := s.questionRepo.FindByInterviewID(id)
	if err != nil {
		return err
	}

	if err := s.interviewRepo.Delete(id); err != nil {
		return err
	}

	// Stored audio is cleaned up best-effort after the rows are gone; an
	// orphaned object is preferable to a dangling database row.
	for i := range questions {
		for _, key := range []*string{questions[i].AudioKey, questions[i].UserAudioKey} {
			if key == nil {
				continue
			}
			if err := s.storage.Delete(ctx, *key); err != nil {
				log.Warn().Err(err).Str("key", *key).Msg("Failed to delete stored audio")
			}
		}
	}

	log.Info().Uint("interviewID", id).Msg("Interview deleted")
	return nil
}

func (s *interviewService) CheckCompletion(ctx context.Context, interviewID uint) error {
	interview, err := s.interviewRepo.FindByIDWithQuestions(interviewID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if interview.Status != model.StatusInProgress {
		return nil
	}

	graded := 0
	for i := range interview.Questions {
		q := &interview.Questions[i]
		if !q.Answered() {
			return nil
		}
		if q.EvaluationStatus == model.EvaluationPending {
			return nil
		}
		if q.Graded() {
			graded++
		}
	}

	// Every grading attempt failed: keep the session open rather than
	// completing it with no scores at all.
	if graded == 0 {
		log.Warn().Uint("interviewID", interviewID).
			Msg("All evaluations failed; interview stays in progress")
		return nil
	}

	var sumOverall, sumCorrectness, sumCompleteness, sumClarity float64
	for i := range interview.Questions {
		q := &interview.Questions[i]
		if !q.Graded() {
			continue
		}
		sumOverall += *q.Score
		if q.Correctness != nil {
			sumCorrectness += *q.Correctness
		}
		if q.Completeness != nil {
			sumCompleteness += *q.Completeness
		}
		if q.Clarity != nil {
			sumClarity += *q.Clarity
		}
	}
	n := float64(graded)
	overall := round2(sumOverall / n)
	correctness := round2(sumCorrectness / n)
	completeness := round2(sumCompleteness / n)
	clarity := round2(sumClarity / n)

	now := time.Now()
	fields := map[string]any{
		"completed_at":       now,
		"overall_score":      overall,
		"correctness_score":  correctness,
		"completeness_score": completeness,
		"clarity_score":      clarity,
	}
	if interview.StartedAt != nil {
		minutes := int(now.Sub(*interview.StartedAt).Minutes())
		fields["total_duration"] = minutes
	}

	won, err := s.interviewRepo.TransitionStatus(interviewID, model.StatusInProgress, model.StatusCompleted, fields)
	if err != nil {
		return err
	}
	if !won {
		// Another worker completed (or the user cancelled) first.
		return nil
	}

	log.Info().Uint("interviewID", interviewID).Float64("overallScore", overall).
		Int("graded", graded).Int("questions", len(interview.Questions)).
		Msg("Interview completed")

	s.generateFeedback(ctx, interview, overall)

	if err := s.stats.RecordInterviewCompleted(interview.UserID); err != nil {
		log.Error().Err(err).Uint("userID", interview.UserID).Msg("Failed to record completion stats")
	}
	return nil
}

// generateFeedback produces the session-level feedback after completion.
// Failures are logged, not propagated: the completed interview stands on its
// per-question grades.
func (s *interviewService) generateFeedback(ctx context.Context, interview *model.Interview, overall float64) {
	in := FeedbackInput{
		InterviewType: interview.Type,
		Role:          interview.Role,
		OverallScore:  overall,
	}
	for i := range interview.Questions {
		q := &interview.Questions[i]
		if !q.Graded() {
			continue
		}
		fq := FeedbackQuestion{
			Question:     q.Prompt,
			Score:        *q.Score,
			Strengths:    q.Strengths,
			Improvements: q.Improvements,
		}
		if q.UserAnswer != nil {
			fq.UserAnswer = *q.UserAnswer
		}
		in.Questions = append(in.Questions, fq)
	}

	result, err := s.provider.GenerateSessionFeedback(ctx, in)
	if err != nil {
		log.Error().Err(err).Uint("interviewID", interview.ID).Msg("Failed to generate session feedback")
		return
	}

	feedback := model.InterviewFeedback{
		InterviewID:     interview.ID,
		Summary:         result.Summary,
		Strengths:       result.Strengths,
		AreasToImprove:  result.AreasToImprove,
		Recommendations: result.Recommendations,
		NextSteps:       result.NextSteps,
		GeneratedByAI:   true,
	}
	if err := s.feedbackRepo.CreateIfAbsent(&feedback); err != nil {
		log.Error().Err(err).Uint("interviewID", interview.ID).Msg("Failed to store session feedback")
	}
}

func (s *interviewService) toInterviewDTO(interview *model.Interview, includeQuestions bool) *dto.InterviewDTO {
	var out dto.InterviewDTO
	copier.Copy(&out, interview)
	out.Questions = nil
	if includeQuestions {
		for i := range interview.Questions {
			out.Questions = append(out.Questions, s.toQuestionDTO(&interview.Questions[i]))
		}
	}
	if interview.Feedback != nil {
		var fb dto.FeedbackDTO
		copier.Copy(&fb, interview.Feedback)
		out.Feedback = &fb
	}
	return &out
}

func (s *interviewService) toQuestionDTO(q *model.Question) dto.QuestionDTO {
	var out dto.QuestionDTO
	copier.Copy(&out, q)
	out.EvaluationStatus = dto.EvaluationStatusLabel(q.EvaluationStatus)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
