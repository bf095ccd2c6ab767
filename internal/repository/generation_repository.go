package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilotapp/postpilot/internal/models"
)

type GenerationRepository interface {
	Create(ctx context.Context, record *models.GenerationRecord) error
	GetByID(ctx context.Context, id string) (*models.GenerationRecord, error)
	ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.GenerationRecord, error)
}

type generationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) GenerationRepository {
	return &generationRepository{db: db}
}

const generationColumns = `id, user_id, brief, result, tokens_used, cost_cents, model_used, error_message, created_at`

func scanGeneration(row interface{ Scan(...interface{}) error }) (*models.GenerationRecord, error) {
	var g models.GenerationRecord
	err := row.Scan(&g.ID, &g.UserID, &g.BriefJSON, &g.ResultJSON,
		&g.TokensUsed, &g.CostCents, &g.ModelUsed, &g.ErrorMessage, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *generationRepository) Create(ctx context.Context, record *models.GenerationRecord) error {
	query := `
		INSERT INTO generation_records (id, user_id, brief, result, tokens_used, cost_cents, model_used, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.BriefJSON, record.ResultJSON,
		record.TokensUsed, record.CostCents, record.ModelUsed, record.ErrorMessage)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *generationRepository) GetByID(ctx context.Context, id string) (*models.GenerationRecord, error) {
	query := `SELECT ` + generationColumns + ` FROM generation_records WHERE id = $1`
	record, err := scanGeneration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return record, nil
}

func (r *generationRepository) ListByUserID(ctx context.Context, userID int64, limit int) ([]*models.GenerationRecord, error) {
	query := `SELECT ` + generationColumns + ` FROM generation_records WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var records []*models.GenerationRecord
	for rows.Next() {
		record, err := scanGeneration(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
