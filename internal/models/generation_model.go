package models

import (
	"database/sql"
	"time"
)

// GenerationRecord is the audit row for one AI generation attempt. It is
// written once per attempt, success or failure, and never updated.
type GenerationRecord struct {
	ID           string         `db:"id" json:"id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	BriefJSON    string         `db:"brief" json:"brief"`
	ResultJSON   sql.NullString `db:"result" json:"result"`
	TokensUsed   int            `db:"tokens_used" json:"tokens_used"`
	CostCents    int            `db:"cost_cents" json:"cost_cents"`
	ModelUsed    string         `db:"model_used" json:"model_used"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
