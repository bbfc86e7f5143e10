package model

import "time"

// Job statuses.
const (
	JobQueued    = "queued"
	JobActive    = "active"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job is a queue-resident unit of asynchronous work. The payload carries only
// identifiers; workers re-fetch current state from the repository, so a stale
// payload can never overwrite fresher data. Jobs reference questions and
// interviews weakly: deleting a session leaves its jobs to be discarded by the
// worker on consumption.
type Job struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Kind string `json:"kind" gorm:"not null;index:idx_jobs_claim,priority:1"`

	Payload string `json:"payload" gorm:"type:text"`

	// DedupeKey enforces at-most-one queued job per logical target (e.g. one
	// pending evaluation per question). Re-enqueueing replaces the payload of
	// the queued job instead of inserting a duplicate.
	DedupeKey *string `json:"dedupe_key,omitempty" gorm:"index"`

	Status      string    `json:"status" gorm:"not null;default:'queued';index:idx_jobs_claim,priority:2"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	NextRunAt   time.Time `json:"next_run_at" gorm:"index"`
	LastError   string    `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
