// Package queue implements the durable, retryable work queue behind the
// asynchronous grading pipeline. Three job kinds run on independent worker
// pools, each with its own concurrency ceiling, request-rate cap and backoff
// policy matching the downstream provider's limits.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepwise/prepwise/internal/model"
)

// Job kinds.
const (
	KindTranscription = "transcription"
	KindTTS           = "tts"
	KindEvaluation    = "evaluation"
)

// TranscriptionPayload identifies the question whose uploaded answer audio
// should be transcribed. Payloads carry identifiers only; workers re-fetch
// state at execution time.
type TranscriptionPayload struct {
	QuestionID uint `json:"question_id"`
}

type TTSPayload struct {
	QuestionID uint   `json:"question_id"`
	Voice      string `json:"voice"`
}

type EvaluationPayload struct {
	QuestionID uint `json:"question_id"`
}

// Policy bounds one job kind: retry budget, exponential backoff base,
// worker parallelism and the provider's requests-per-minute cap (independent
// of parallelism).
type Policy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	Concurrency       int
	RequestsPerMinute int
}

// DefaultPolicies mirrors the downstream providers' rate limits:
// transcription is the slowest and most contended call, evaluation the most
// expensive to retry.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		KindTranscription: {MaxAttempts: 3, BaseDelay: 5 * time.Second, Concurrency: 2, RequestsPerMinute: 5},
		KindTTS:           {MaxAttempts: 3, BaseDelay: 3 * time.Second, Concurrency: 3, RequestsPerMinute: 10},
		KindEvaluation:    {MaxAttempts: 2, BaseDelay: 10 * time.Second, Concurrency: 5, RequestsPerMinute: 20},
	}
}

// Backoff returns the delay before retrying after the given attempt
// (1-based). The delay doubles per attempt from the policy's base.
func Backoff(p Policy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay << uint(attempt-1)
	if max := 5 * time.Minute; d > max {
		return max
	}
	return d
}

// Handler processes one claimed job. A nil return completes the job; an error
// schedules a retry until the attempt budget is spent.
type Handler func(ctx context.Context, job *model.Job) error

// Hook observes a job's terminal outcome.
type Hook func(job *model.Job)

// DedupeKey builds the at-most-one-outstanding key for a job kind and target.
func DedupeKey(kind string, questionID uint) string {
	return fmt.Sprintf("%s:question:%d", kind, questionID)
}

// UnmarshalPayload decodes a job payload into the kind-specific struct.
func UnmarshalPayload(job *model.Job, v any) error {
	if err := json.Unmarshal([]byte(job.Payload), v); err != nil {
		return fmt.Errorf("job %d: decode %s payload: %w", job.ID, job.Kind, err)
	}
	return nil
}
