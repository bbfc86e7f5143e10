package model

import "time"

// UserStat accumulates per-owner progress counters. Updated once per completed
// interview by the stats service; absence of a row means no activity yet.
type UserStat struct {
	ID     uint `gorm:"primarykey" json:"id"`
	UserID uint `json:"user_id" gorm:"not null;uniqueIndex"`

	InterviewsCompleted int       `json:"interviews_completed"`
	TotalPoints         int       `json:"total_points"`
	LastActivityAt      time.Time `json:"last_activity_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
