package models

import (
	"database/sql"
	"time"
)

// QueueEntry is one (post, platform) publishing obligation. A post targeting
// three platforms gets three rows, each succeeding or failing on its own.
type QueueEntry struct {
	ID             int64          `db:"id" json:"id"`
	PostID         int64          `db:"post_id" json:"post_id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Platform       string         `db:"platform" json:"platform"`
	ScheduledFor   time.Time      `db:"scheduled_for" json:"scheduled_for"`
	Status         string         `db:"status" json:"status"`
	Attempts       int            `db:"attempts" json:"attempts"`
	PlatformPostID sql.NullString `db:"platform_post_id" json:"platform_post_id"`
	LastAttemptAt  sql.NullTime   `db:"last_attempt_at" json:"last_attempt_at"`
	ErrorMessage   sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	QueueStatusPending   = "pending"
	QueueStatusCompleted = "completed"
	QueueStatusFailed    = "failed"
)
