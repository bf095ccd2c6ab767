package models

import (
	"database/sql"
	"time"
)

type AutomationRule struct {
	ID                int64          `db:"id" json:"id"`
	UserID            int64          `db:"user_id" json:"user_id"`
	Name              string         `db:"name" json:"name"`
	TriggerType       string         `db:"trigger_type" json:"trigger_type"`
	TriggerConditions string         `db:"trigger_conditions" json:"trigger_conditions"`
	Actions           []string       `db:"actions" json:"actions"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	ExecutionCount    int            `db:"execution_count" json:"execution_count"`
	SuccessCount      int            `db:"success_count" json:"success_count"`
	LastExecutedAt    sql.NullTime   `db:"last_executed_at" json:"last_executed_at"`
	ErrorMessage      sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	TriggerTypeSchedule            = "schedule"
	TriggerTypeEngagementThreshold = "engagement_threshold"
	TriggerTypeHashtagTrending     = "hashtag_trending"
	TriggerTypeAutoResponse        = "auto_response"
)

// RuleExecution is the interaction log row written after every rule run.
type RuleExecution struct {
	ID           int64          `db:"id" json:"id"`
	RuleID       int64          `db:"rule_id" json:"rule_id"`
	UserID       int64          `db:"user_id" json:"user_id"`
	PostID       sql.NullInt64  `db:"post_id" json:"post_id"`
	Status       string         `db:"status" json:"status"`
	ErrorMessage sql.NullString `db:"error_message" json:"error_message"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

const (
	RuleExecutionSucceeded = "succeeded"
	RuleExecutionFailed    = "failed"
)
