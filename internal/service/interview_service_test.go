package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prepwise/prepwise/internal/apperr"
	"github.com/prepwise/prepwise/internal/dto"
	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRequest(count int, voice bool) dto.CreateInterviewRequest {
	return dto.CreateInterviewRequest{
		Type:            model.InterviewTypeTechnical,
		Role:            "Backend Engineer",
		ExperienceLevel: "MID",
		TechStack:       []string{"Go"},
		Duration:        45,
		QuestionsCount:  count,
		VoiceEnabled:    &voice,
	}
}

// startedInterview creates and starts an interview, returning its DTO.
func startedInterview(t *testing.T, env *testEnv, userID uint, questions int) *dto.InterviewDTO {
	t.Helper()
	created, err := env.interviews.CreateInterview(context.Background(), userID, createRequest(questions, false))
	require.NoError(t, err)
	started, err := env.interviews.StartInterview(userID, created.ID)
	require.NoError(t, err)
	return started
}

func submitAnswer(t *testing.T, env *testEnv, userID, interviewID, questionID uint) {
	t.Helper()
	_, err := env.interviews.SubmitAnswer(context.Background(), userID, interviewID, questionID,
		dto.SubmitAnswerRequest{UserAnswer: "My answer"})
	require.NoError(t, err)
}

// gradeQuestion writes a grade directly, as the evaluation worker would.
func gradeQuestion(t *testing.T, env *testEnv, questionID uint, score float64) {
	t.Helper()
	q, err := env.questionRepo.FindByID(questionID)
	require.NoError(t, err)
	q.Score = &score
	c := score
	q.Correctness = &c
	q.Completeness = &c
	q.Clarity = &c
	q.EvaluationStatus = model.EvaluationGraded
	require.NoError(t, env.questionRepo.SaveGrade(q))
}

func failQuestion(t *testing.T, env *testEnv, questionID uint) {
	t.Helper()
	require.NoError(t, env.questionRepo.SetEvaluationStatus(questionID, model.EvaluationFailed))
}

func TestCreateInterviewPersistsDraftWithQuestions(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(3, false))
	require.NoError(t, err)

	assert.Equal(t, model.StatusDraft, created.Status)
	require.Len(t, created.Questions, 3)
	for i, q := range created.Questions {
		assert.Equal(t, i+1, q.Order)
		assert.True(t, q.GeneratedByAI)
		assert.Equal(t, "none", q.EvaluationStatus)
	}
	assert.Empty(t, env.jobs.byKind(queue.KindTTS))
}

func TestCreateInterviewQueuesSynthesisWhenVoiceEnabled(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(2, true))
	require.NoError(t, err)

	ttsJobs := env.jobs.byKind(queue.KindTTS)
	require.Len(t, ttsJobs, 2)
	for i, job := range ttsJobs {
		payload := job.Payload.(queue.TTSPayload)
		assert.Equal(t, created.Questions[i].ID, payload.QuestionID)
		assert.Equal(t, queue.DedupeKey(queue.KindTTS, payload.QuestionID), job.DedupeKey)
	}
}

func TestCreateInterviewPropagatesProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.questionsErr = apperr.ErrProviderUnavailable

	_, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(2, false))
	require.ErrorIs(t, err, apperr.ErrProviderUnavailable)

	// Nothing was persisted.
	_, total, ferr := env.interviewRepo.FindAllByUser(1, "", "", 0, 10)
	require.NoError(t, ferr)
	assert.Zero(t, total)
}

func TestStartInterviewIsSingleShot(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(1, false))
	require.NoError(t, err)

	started, err := env.interviews.StartInterview(1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)

	_, err = env.interviews.StartInterview(1, created.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestStartInterviewHidesForeignSessions(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(1, false))
	require.NoError(t, err)

	_, err = env.interviews.StartInterview(2, created.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSubmitAnswerQueuesEvaluation(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	questionID := interview.Questions[0].ID
	answered, err := env.interviews.SubmitAnswer(context.Background(), 1, interview.ID, questionID,
		dto.SubmitAnswerRequest{UserAnswer: "Indexes speed up lookups."})
	require.NoError(t, err)

	assert.Equal(t, model.EvaluationPending, answered.EvaluationStatus)
	require.NotNil(t, answered.AnsweredAt)

	evalJobs := env.jobs.byKind(queue.KindEvaluation)
	require.Len(t, evalJobs, 1)
	assert.Equal(t, queue.DedupeKey(queue.KindEvaluation, questionID), evalJobs[0].DedupeKey)
}

func TestSubmitAnswerRequiresInProgress(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(1, false))
	require.NoError(t, err)

	_, err = env.interviews.SubmitAnswer(context.Background(), 1, created.ID, created.Questions[0].ID,
		dto.SubmitAnswerRequest{UserAnswer: "too early"})
	require.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestSubmitAnswerRejectsQuestionFromOtherInterview(t *testing.T) {
	env := newTestEnv(t)
	first := startedInterview(t, env, 1, 1)
	second := startedInterview(t, env, 1, 1)

	_, err := env.interviews.SubmitAnswer(context.Background(), 1, first.ID, second.Questions[0].ID,
		dto.SubmitAnswerRequest{UserAnswer: "wrong session"})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckCompletionWaitsForPendingEvaluations(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	submitAnswer(t, env, 1, interview.ID, interview.Questions[1].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 8)
	// Second question still pending.

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, loaded.Status)
}

func TestCheckCompletionWaitsForUnansweredQuestions(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 8)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, loaded.Status)
}

func TestCheckCompletionCompletesWithAggregates(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	for _, q := range interview.Questions {
		submitAnswer(t, env, 1, interview.ID, q.ID)
	}
	gradeQuestion(t, env, interview.Questions[0].ID, 6)
	gradeQuestion(t, env, interview.Questions[1].ID, 9)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, loaded.Status)
	require.NotNil(t, loaded.OverallScore)
	assert.InDelta(t, 7.5, *loaded.OverallScore, 0.001)
	require.NotNil(t, loaded.CompletedAt)
	require.NotNil(t, loaded.TotalDuration)

	// Session feedback was generated and stored once.
	feedback, err := env.feedbackRepo.FindByInterviewID(interview.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, feedback.Summary)

	// Completion points were awarded.
	stat, err := env.statsRepo.FindByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.InterviewsCompleted)
	assert.Equal(t, completionPoints, stat.TotalPoints)
}

func TestCheckCompletionSkipsFailedGradesInAggregates(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	for _, q := range interview.Questions {
		submitAnswer(t, env, 1, interview.ID, q.ID)
	}
	gradeQuestion(t, env, interview.Questions[0].ID, 8)
	failQuestion(t, env, interview.Questions[1].ID)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, loaded.Status)
	require.NotNil(t, loaded.OverallScore)
	// Mean over the single graded question, not over both.
	assert.InDelta(t, 8.0, *loaded.OverallScore, 0.001)
}

func TestCheckCompletionHoldsSessionWhenNothingGraded(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 2)

	for _, q := range interview.Questions {
		submitAnswer(t, env, 1, interview.ID, q.ID)
		failQuestion(t, env, q.ID)
	}

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, loaded.Status)
	assert.Nil(t, loaded.OverallScore)
}

func TestCheckCompletionIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 1)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 7)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))
	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	assert.Equal(t, 1, env.provider.feedbackCalls)

	stat, err := env.statsRepo.FindByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.InterviewsCompleted)
}

func TestConcurrentLastAnswersCompleteOnce(t *testing.T) {
	env := newTestEnv(t)

	// sqlite serializes writes on a single connection; the logical race
	// between the two completion checks is unaffected.
	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	interview := startedInterview(t, env, 1, 2)

	// The last two unanswered questions are submitted and graded in
	// parallel, each path running its own completion check as the
	// evaluation worker would.
	var wg sync.WaitGroup
	for _, q := range interview.Questions {
		wg.Add(1)
		go func(questionID uint) {
			defer wg.Done()
			submitAnswer(t, env, 1, interview.ID, questionID)
			gradeQuestion(t, env, questionID, 8)
			require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))
		}(q.ID)
	}
	wg.Wait()

	// One extra check after both racers settled: every question is now
	// graded, so the transition must have been consumed exactly once.
	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, loaded.Status)

	assert.Equal(t, 1, env.provider.feedbackCalls)

	var feedbackRows int64
	require.NoError(t, env.db.Model(&model.InterviewFeedback{}).
		Where("interview_id = ?", interview.ID).Count(&feedbackRows).Error)
	assert.Equal(t, int64(1), feedbackRows)

	stat, err := env.statsRepo.FindByUserID(1)
	require.NoError(t, err)
	assert.Equal(t, 1, stat.InterviewsCompleted)
}

func TestCheckCompletionIgnoresCancelledSessions(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 1)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 7)

	_, err := env.interviews.CancelInterview(1, interview.ID)
	require.NoError(t, err)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, loaded.Status)
}

func TestCheckCompletionIgnoresDeletedSessions(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.interviews.CheckCompletion(context.Background(), 9999))
}

func TestCompletionSurvivesFeedbackFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.feedbackErr = apperr.ErrProviderTimeout
	interview := startedInterview(t, env, 1, 1)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 7)

	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	loaded, err := env.interviewRepo.FindByID(interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, loaded.Status)

	_, err = env.feedbackRepo.FindByInterviewID(interview.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelInterviewOnlyFromInProgress(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(1, false))
	require.NoError(t, err)

	_, err = env.interviews.CancelInterview(1, created.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = env.interviews.StartInterview(1, created.ID)
	require.NoError(t, err)

	cancelled, err := env.interviews.CancelInterview(1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	// Cancellation never reaches COMPLETED, so the timestamp stays unset.
	assert.Nil(t, cancelled.CompletedAt)
}

func TestGetReportRequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 1)

	_, err := env.interviews.GetReport(1, interview.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	submitAnswer(t, env, 1, interview.ID, interview.Questions[0].ID)
	gradeQuestion(t, env, interview.Questions[0].ID, 8)
	require.NoError(t, env.interviews.CheckCompletion(context.Background(), interview.ID))

	report, err := env.interviews.GetReport(1, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, report.Interview.Status)
	require.NotNil(t, report.Scores.Overall)
	assert.InDelta(t, 8.0, *report.Scores.Overall, 0.001)
	require.Len(t, report.Questions, 1)
	assert.Equal(t, model.EvaluationGraded, report.Questions[0].EvaluationStatus)
	require.NotNil(t, report.Feedback)
}

func TestDeleteInterviewRemovesRowsAndAudio(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 1)

	questionID := interview.Questions[0].ID
	q, err := env.questionRepo.FindByID(questionID)
	require.NoError(t, err)
	key := "interviews/object-1"
	url := "https://store.test/" + key
	q.UserAudioKey = &key
	q.UserAudioURL = &url
	require.NoError(t, env.questionRepo.SaveUserAudio(q))

	require.NoError(t, env.interviews.DeleteInterview(context.Background(), 1, interview.ID))

	_, err = env.interviewRepo.FindByID(interview.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = env.questionRepo.FindByID(questionID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, env.storage.deleted, key)
}

func TestDeleteInterviewScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	interview := startedInterview(t, env, 1, 1)

	err := env.interviews.DeleteInterview(context.Background(), 2, interview.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListInterviewsPaginates(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		_, err := env.interviews.CreateInterview(context.Background(), 1, createRequest(1, false))
		require.NoError(t, err)
	}

	list, err := env.interviews.ListInterviews(1, dto.InterviewQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, int64(3), list.Meta.Total)
	assert.Equal(t, 2, list.Meta.TotalPages)
}
