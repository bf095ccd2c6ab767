package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID           int64          `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	Content      string         `db:"content" json:"content"`
	Platforms    []string       `db:"platforms" json:"platforms"`
	Hashtags     []string       `db:"hashtags" json:"hashtags"`
	MediaURLs    []string       `db:"media_urls" json:"media_urls"`
	Status       string         `db:"status" json:"status"`
	ScheduledFor sql.NullTime   `db:"scheduled_for" json:"scheduled_for"`
	PublishedAt  sql.NullTime   `db:"published_at" json:"published_at"`
	AIGenerated  bool           `db:"ai_generated" json:"ai_generated"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
	PostStatusFailed    = "failed"
	PostStatusArchived  = "archived"
)

type MediaAsset struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	FileSize  int64     `db:"file_size"`
	FileURL   string    `db:"file_url"`
	CreatedAt time.Time `db:"created_at"`
}
