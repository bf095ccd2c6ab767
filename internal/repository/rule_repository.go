package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/postpilotapp/postpilot/internal/models"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *models.AutomationRule) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.AutomationRule, error)
	ListActiveByTriggerType(ctx context.Context, triggerType string) ([]*models.AutomationRule, error)
	IncrementStats(ctx context.Context, id int64, success bool, errorMessage string) error
}

type ruleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) RuleRepository {
	return &ruleRepository{db: db}
}

const ruleColumns = `id, user_id, name, trigger_type, trigger_conditions, actions, is_active, execution_count, success_count, last_executed_at, error_message, created_at, updated_at`

func scanRule(row interface{ Scan(...interface{}) error }) (*models.AutomationRule, error) {
	var rule models.AutomationRule
	err := row.Scan(&rule.ID, &rule.UserID, &rule.Name, &rule.TriggerType, &rule.TriggerConditions,
		pq.Array(&rule.Actions), &rule.IsActive, &rule.ExecutionCount, &rule.SuccessCount,
		&rule.LastExecutedAt, &rule.ErrorMessage, &rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) Create(ctx context.Context, rule *models.AutomationRule) (int64, error) {
	query := `
		INSERT INTO automation_rules (user_id, name, trigger_type, trigger_conditions, actions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		rule.UserID, rule.Name, rule.TriggerType, rule.TriggerConditions,
		pq.Array(rule.Actions), rule.IsActive).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id int64) (*models.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE id = $1`
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return rule, nil
}

func (r *ruleRepository) ListActiveByTriggerType(ctx context.Context, triggerType string) ([]*models.AutomationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM automation_rules WHERE trigger_type = $1 AND is_active = TRUE`
	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var rules []*models.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// IncrementStats is the atomic rule-stat update: execution count always goes
// up, success count only on success. Runs as a single statement so
// overlapping sweeps cannot lose increments.
func (r *ruleRepository) IncrementStats(ctx context.Context, id int64, success bool, errorMessage string) error {
	query := `
		UPDATE automation_rules
		SET execution_count = execution_count + 1,
			success_count = success_count + CASE WHEN $1 THEN 1 ELSE 0 END,
			error_message = NULLIF($2, ''),
			last_executed_at = $3,
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, success, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
