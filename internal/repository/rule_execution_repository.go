package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilotapp/postpilot/internal/models"
)

type RuleExecutionRepository interface {
	Create(ctx context.Context, exec *models.RuleExecution) (int64, error)
	ListByRuleID(ctx context.Context, ruleID int64, limit int) ([]*models.RuleExecution, error)
}

type ruleExecutionRepository struct {
	db *sql.DB
}

func NewRuleExecutionRepository(db *sql.DB) RuleExecutionRepository {
	return &ruleExecutionRepository{db: db}
}

func (r *ruleExecutionRepository) Create(ctx context.Context, exec *models.RuleExecution) (int64, error) {
	query := `
		INSERT INTO rule_executions (rule_id, user_id, post_id, status, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		exec.RuleID, exec.UserID, exec.PostID, exec.Status, exec.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *ruleExecutionRepository) ListByRuleID(ctx context.Context, ruleID int64, limit int) ([]*models.RuleExecution, error) {
	query := `
		SELECT id, rule_id, user_id, post_id, status, error_message, created_at
		FROM rule_executions
		WHERE rule_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, ruleID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var execs []*models.RuleExecution
	for rows.Next() {
		var e models.RuleExecution
		err := rows.Scan(&e.ID, &e.RuleID, &e.UserID, &e.PostID, &e.Status, &e.ErrorMessage, &e.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		execs = append(execs, &e)
	}
	return execs, rows.Err()
}
