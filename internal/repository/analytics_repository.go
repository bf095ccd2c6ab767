package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postpilotapp/postpilot/internal/models"
)

type AnalyticsRepository interface {
	Create(ctx context.Context, row *models.PostAnalytics) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error)
}

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Create(ctx context.Context, row *models.PostAnalytics) (int64, error) {
	query := `
		INSERT INTO post_analytics (post_id, platform, impressions, likes, comments, shares, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		row.PostID, row.Platform, row.Impressions, row.Likes, row.Comments, row.Shares, row.CollectedAt).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *analyticsRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAnalytics, error) {
	query := `
		SELECT id, post_id, platform, impressions, likes, comments, shares, collected_at
		FROM post_analytics
		WHERE post_id = $1
		ORDER BY collected_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.PostAnalytics
	for rows.Next() {
		var a models.PostAnalytics
		err := rows.Scan(&a.ID, &a.PostID, &a.Platform, &a.Impressions, &a.Likes, &a.Comments, &a.Shares, &a.CollectedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		snapshots = append(snapshots, &a)
	}
	return snapshots, rows.Err()
}
