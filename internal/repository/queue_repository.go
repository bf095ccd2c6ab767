package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/postpilotapp/postpilot/internal/models"
)

type QueueRepository interface {
	Create(ctx context.Context, tx *sql.Tx, entry *models.QueueEntry) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.QueueEntry, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.QueueEntry, error)
	Claim(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id int64, platformPostID string) error
	ListCompletedByPostIDs(ctx context.Context, postIDs []int64) ([]*models.QueueEntry, error)
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	Reschedule(ctx context.Context, id int64, nextAttempt time.Time, errorMessage string) error
}

type queueRepository struct {
	db *sql.DB
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

const queueColumns = `id, post_id, user_id, platform, scheduled_for, status, attempts, platform_post_id, last_attempt_at, error_message, created_at, updated_at`

func scanQueueEntry(row interface{ Scan(...interface{}) error }) (*models.QueueEntry, error) {
	var e models.QueueEntry
	err := row.Scan(&e.ID, &e.PostID, &e.UserID, &e.Platform, &e.ScheduledFor,
		&e.Status, &e.Attempts, &e.PlatformPostID, &e.LastAttemptAt, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *queueRepository) Create(ctx context.Context, tx *sql.Tx, entry *models.QueueEntry) (int64, error) {
	query := `
		INSERT INTO queue_entries (post_id, user_id, platform, scheduled_for, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error
	args := []interface{}{entry.PostID, entry.UserID, entry.Platform, entry.ScheduledFor, models.QueueStatusPending}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE id = $1`
	entry, err := scanQueueEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return entry, nil
}

func (r *queueRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE status = $1 AND scheduled_for <= $2
		ORDER BY scheduled_for
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, models.QueueStatusPending, now, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *queueRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM queue_entries WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Claim bumps the attempt counter, guarded on the entry still being pending
// and not claimed by an overlapping tick within the last minute. A false
// return means another tick got there first.
func (r *queueRepository) Claim(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE queue_entries
		SET attempts = attempts + 1, last_attempt_at = $1, updated_at = $1
		WHERE id = $2 AND status = $3
		  AND (last_attempt_at IS NULL OR last_attempt_at < $4)
	`
	result, err := r.db.ExecContext(ctx, query, at, id, models.QueueStatusPending, at.Add(-time.Minute))
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *queueRepository) MarkCompleted(ctx context.Context, id int64, platformPostID string) error {
	query := `
		UPDATE queue_entries
		SET status = $1, platform_post_id = NULLIF($2, ''), error_message = NULL, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusCompleted, platformPostID, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ListCompletedByPostIDs returns the published entries for a set of posts,
// used when collecting engagement metrics.
func (r *queueRepository) ListCompletedByPostIDs(ctx context.Context, postIDs []int64) ([]*models.QueueEntry, error) {
	query := `
		SELECT ` + queueColumns + `
		FROM queue_entries
		WHERE status = $1 AND post_id = ANY($2)
	`
	rows, err := r.db.QueryContext(ctx, query, models.QueueStatusCompleted, pq.Array(postIDs))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		entry, err := scanQueueEntry(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *queueRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `UPDATE queue_entries SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, models.QueueStatusFailed, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Reschedule keeps a failed entry pending and pushes its due time back for a
// bounded retry.
func (r *queueRepository) Reschedule(ctx context.Context, id int64, nextAttempt time.Time, errorMessage string) error {
	query := `
		UPDATE queue_entries
		SET scheduled_for = $1, error_message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`
	_, err := r.db.ExecContext(ctx, query, nextAttempt, errorMessage, time.Now(), id, models.QueueStatusPending)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
