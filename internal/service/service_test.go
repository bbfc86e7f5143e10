package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/model"
	"github.com/prepwise/prepwise/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&model.Interview{},
		&model.Question{},
		&model.InterviewFeedback{},
		&model.Job{},
		&model.UserStat{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// fakeProvider returns canned responses and records calls.
type fakeProvider struct {
	questions    []GeneratedQuestion
	questionsErr error
	evaluation   EvaluationResult
	evalErr      error
	feedback     FeedbackResult
	feedbackErr  error

	mu            sync.Mutex
	feedbackCalls int
}

func (f *fakeProvider) GenerateQuestions(ctx context.Context, spec QuestionSpec) ([]GeneratedQuestion, error) {
	if f.questionsErr != nil {
		return nil, f.questionsErr
	}
	if f.questions != nil {
		return f.questions, nil
	}
	out := make([]GeneratedQuestion, spec.Count)
	for i := range out {
		out[i] = GeneratedQuestion{
			Question:       fmt.Sprintf("Generated question %d", i+1),
			Category:       "general",
			Difficulty:     model.DifficultyMedium,
			ExpectedAnswer: "Expected answer",
		}
	}
	return out, nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Transcript, error) {
	return &Transcript{Text: "transcribed answer", Language: "en-US", DurationSeconds: 12.5}, nil
}

func (f *fakeProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return []byte("mp3-bytes"), nil
}

func (f *fakeProvider) EvaluateAnswer(ctx context.Context, in EvaluationInput) (*EvaluationResult, error) {
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	result := f.evaluation
	return &result, nil
}

func (f *fakeProvider) GenerateSessionFeedback(ctx context.Context, in FeedbackInput) (*FeedbackResult, error) {
	f.mu.Lock()
	f.feedbackCalls++
	f.mu.Unlock()
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	result := f.feedback
	if result.Summary == "" {
		result.Summary = "Solid performance overall."
	}
	return &result, nil
}

// fakeStorage keeps objects in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	seq     int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(ctx context.Context, data []byte, contentType, folder string) (*UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	key := fmt.Sprintf("%s/object-%d", folder, f.seq)
	f.objects[key] = data
	return &UploadResult{URL: "https://store.test/" + key, Key: key, Size: int64(len(data))}, nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key], nil
}

func (f *fakeStorage) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://store.test/" + key, nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeEnqueuer records enqueued jobs without executing them.
type fakeEnqueuer struct {
	mu   sync.Mutex
	jobs []enqueuedJob
	err  error
}

type enqueuedJob struct {
	Kind      string
	Payload   any
	DedupeKey string
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, kind string, payload any, dedupeKey string) (uint, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, enqueuedJob{Kind: kind, Payload: payload, DedupeKey: dedupeKey})
	return uint(len(f.jobs)), nil
}

func (f *fakeEnqueuer) byKind(kind string) []enqueuedJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []enqueuedJob
	for _, j := range f.jobs {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out
}

type testEnv struct {
	db            *gorm.DB
	interviewRepo repository.InterviewRepository
	questionRepo  repository.QuestionRepository
	feedbackRepo  repository.FeedbackRepository
	statsRepo     repository.StatsRepository
	provider      *fakeProvider
	storage       *fakeStorage
	jobs          *fakeEnqueuer
	interviews    InterviewService
	audio         AudioService
	stats         StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:            db,
		interviewRepo: repository.NewInterviewRepository(db),
		questionRepo:  repository.NewQuestionRepository(db),
		feedbackRepo:  repository.NewFeedbackRepository(db),
		statsRepo:     repository.NewStatsRepository(db),
		provider:      &fakeProvider{evaluation: EvaluationResult{Correctness: 8, Completeness: 7, Clarity: 9}},
		storage:       newFakeStorage(),
		jobs:          &fakeEnqueuer{},
	}
	env.stats = NewStatsService(env.statsRepo)
	env.interviews = NewInterviewService(
		env.interviewRepo, env.questionRepo, env.feedbackRepo,
		env.provider, env.storage, env.jobs, env.stats,
	)
	env.audio = NewAudioService(env.interviewRepo, env.questionRepo, env.provider, env.storage, env.jobs)
	return env
}
