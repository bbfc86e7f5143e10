package repository

import (
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueJob(t *testing.T, repo JobRepository, kind, payload, dedupeKey string) *model.Job {
	t.Helper()
	job := &model.Job{Kind: kind, Payload: payload, MaxAttempts: 3}
	if dedupeKey != "" {
		job.DedupeKey = &dedupeKey
	}
	require.NoError(t, repo.Enqueue(job))
	return job
}

func TestFetchNextClaimsOldestRunnable(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	first := enqueueJob(t, repo, "evaluation", `{"question_id":1}`, "")
	enqueueJob(t, repo, "evaluation", `{"question_id":2}`, "")

	job, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, first.ID, job.ID)
	assert.Equal(t, model.JobActive, job.Status)
	assert.Equal(t, 1, job.Attempts)
}

func TestFetchNextSkipsFutureAndForeignKinds(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	future := &model.Job{Kind: "tts", Payload: "{}", MaxAttempts: 3, NextRunAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Enqueue(future))
	enqueueJob(t, repo, "transcription", "{}", "")

	job, err := repo.FetchNext("tts")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestFetchNextReturnsNilWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	job, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestEnqueueDedupeReplacesQueuedPayload(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	first := enqueueJob(t, repo, "evaluation", `{"question_id":1}`, "evaluation:question:1")
	second := enqueueJob(t, repo, "evaluation", `{"question_id":1,"v":2}`, "evaluation:question:1")

	// The queued job was reused, not duplicated.
	assert.Equal(t, first.ID, second.ID)

	job, err := repo.FindByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"question_id":1,"v":2}`, job.Payload)

	var count int64
	require.NoError(t, db.Model(&model.Job{}).Where("kind = ?", "evaluation").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestEnqueueDedupeIgnoresActiveJobs(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	first := enqueueJob(t, repo, "evaluation", `{"question_id":1}`, "evaluation:question:1")

	claimed, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// The in-flight job keeps its payload; the new submission gets its own row.
	second := enqueueJob(t, repo, "evaluation", `{"question_id":1,"v":2}`, "evaluation:question:1")
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRequeueStrandedRestoresClaimedJobs(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	job := enqueueJob(t, repo, "evaluation", `{"question_id":1}`, "")
	claimed, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// A crashed process never updates the claimed row; nothing runnable.
	stillActive, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	require.Nil(t, stillActive)

	n, err := repo.RequeueStranded()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reclaimed, err := repo.FetchNext("evaluation")
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, job.ID, reclaimed.ID)
	// The interrupted attempt stays counted.
	assert.Equal(t, 2, reclaimed.Attempts)
}

func TestRequeueStrandedLeavesSettledJobsAlone(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	done := enqueueJob(t, repo, "tts", "{}", "")
	claimed, err := repo.FetchNext("tts")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	claimed.Status = model.JobCompleted
	require.NoError(t, repo.Update(claimed))

	n, err := repo.RequeueStranded()
	require.NoError(t, err)
	assert.Zero(t, n)

	loaded, err := repo.FindByID(done.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobCompleted, loaded.Status)
}

func TestUpdatePersistsRetryState(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	job := enqueueJob(t, repo, "tts", "{}", "")
	claimed, err := repo.FetchNext("tts")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	retryAt := time.Now().Add(3 * time.Second)
	claimed.Status = model.JobQueued
	claimed.NextRunAt = retryAt
	claimed.LastError = "provider unavailable"
	require.NoError(t, repo.Update(claimed))

	loaded, err := repo.FindByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobQueued, loaded.Status)
	assert.Equal(t, "provider unavailable", loaded.LastError)
	assert.WithinDuration(t, retryAt, loaded.NextRunAt, time.Second)
}

func TestRecordCompletionCreatesThenIncrements(t *testing.T) {
	db := newTestDB(t)
	repo := NewStatsRepository(db)

	require.NoError(t, repo.RecordCompletion(7, 50))
	require.NoError(t, repo.RecordCompletion(7, 50))

	stat, err := repo.FindByUserID(7)
	require.NoError(t, err)
	assert.Equal(t, 2, stat.InterviewsCompleted)
	assert.Equal(t, 100, stat.TotalPoints)
}
