package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/publisher"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/transfer"
)

type PostService interface {
	Schedule(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error)
	Status(ctx context.Context, postID, userID int64) (*transfer.PostStatus, error)
	Archive(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	qr repository.QueueRepository
	ar repository.SocialAccountRepository
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	qr repository.QueueRepository,
	ar repository.SocialAccountRepository) PostService {
	return &postService{
		db: db,
		pr: pr,
		qr: qr,
		ar: ar,
	}
}

// Schedule persists the post and fans it out into one queue entry per
// platform inside a single transaction, so a post never ends up with a
// partial set of publishing obligations.
func (s *postService) Schedule(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return 0, err
	}

	platforms := make([]publisher.Platform, 0, len(pc.Platforms))
	for _, p := range pc.Platforms {
		platform, err := publisher.ParsePlatform(p)
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}
		platforms = append(platforms, platform)
	}

	for _, platform := range platforms {
		account, err := s.ar.GetActiveByUserPlatform(ctx, userID, string(platform))
		if err != nil {
			return 0, err
		}
		if account == nil {
			err := fmt.Errorf("no connected %s account", platform)
			slog.Info(err.Error())
			return 0, err
		}
	}

	scheduledFor := time.Now()
	if pc.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, pc.ScheduledFor)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Info(err.Error())
			return 0, err
		}
		if t.After(scheduledFor) {
			scheduledFor = t
		}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:       userID,
		Content:      pc.Content,
		Platforms:    pc.Platforms,
		Hashtags:     pc.Hashtags,
		MediaURLs:    pc.MediaURLs,
		Status:       models.PostStatusScheduled,
		ScheduledFor: sql.NullTime{Time: scheduledFor, Valid: true},
		AIGenerated:  pc.AIGenerated,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, err
	}

	for _, platform := range platforms {
		entry := models.QueueEntry{
			PostID:       postID,
			UserID:       userID,
			Platform:     string(platform),
			ScheduledFor: scheduledFor,
			Status:       models.QueueStatusPending,
		}
		if _, err = s.qr.Create(ctx, tx, &entry); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return postID, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.GetByUserID(ctx, userID)
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, errors.New("post not found")
	}
	return post, nil
}

// Status reports the per-platform queue state for a post, so a partially
// failed fan-out is visible platform by platform.
func (s *postService) Status(ctx context.Context, postID, userID int64) (*transfer.PostStatus, error) {
	post, err := s.PostInfo(ctx, postID, userID)
	if err != nil {
		return nil, err
	}

	entries, err := s.qr.ListByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	status := transfer.PostStatus{
		PostID:  post.ID,
		Status:  post.Status,
		Entries: make([]transfer.QueueStatus, 0, len(entries)),
	}
	for _, e := range entries {
		status.Entries = append(status.Entries, transfer.QueueStatus{
			Platform:     e.Platform,
			Status:       e.Status,
			Attempts:     e.Attempts,
			ErrorMessage: e.ErrorMessage.String,
		})
	}
	return &status, nil
}

func (s *postService) Archive(ctx context.Context, userID, postID int64) error {
	return s.pr.Archive(ctx, userID, postID)
}
