package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/publisher"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

// Worker processes one queue entry per task. A failure on one platform
// never touches the sibling entries of the same post.
type Worker struct {
	cfg    *config.Config
	qr     repository.QueueRepository
	pr     repository.PostRepository
	ar     repository.SocialAccountRepository
	newPub service.PublisherFactory
}

func NewWorker(
	cfg *config.Config,
	qr repository.QueueRepository,
	pr repository.PostRepository,
	ar repository.SocialAccountRepository,
	newPub service.PublisherFactory) *Worker {
	if newPub == nil {
		newPub = publisher.New
	}
	return &Worker{
		cfg:    cfg,
		qr:     qr,
		pr:     pr,
		ar:     ar,
		newPub: newPub,
	}
}

func (w *Worker) HandlePublishEntryTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishEntryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	return w.ProcessEntry(ctx, payload.EntryID)
}

func (w *Worker) ProcessEntry(ctx context.Context, entryID int64) error {
	entry, err := w.qr.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != models.QueueStatusPending {
		return nil
	}

	post, err := w.pr.GetByID(ctx, entry.PostID)
	if err != nil {
		return err
	}
	if post == nil || post.Status == models.PostStatusArchived {
		return w.failTerminal(ctx, entry, "post is missing or archived")
	}

	account, err := w.ar.GetActiveByUserPlatform(ctx, entry.UserID, entry.Platform)
	if err != nil {
		return err
	}
	if account == nil {
		return w.failTerminal(ctx, entry, "no active "+entry.Platform+" account")
	}

	pub, err := w.newPub(account, w.cfg)
	if err != nil {
		return w.failTerminal(ctx, entry, err.Error())
	}

	req := publisher.PublishRequest{
		Content:   post.Content,
		Hashtags:  post.Hashtags,
		MediaURLs: post.MediaURLs,
	}
	res := pub.Publish(ctx, &req)
	if res.Success {
		if err := w.qr.MarkCompleted(ctx, entry.ID, res.PlatformPostID); err != nil {
			return err
		}
		if err := w.pr.MarkPublished(ctx, post.ID, time.Now()); err != nil {
			slog.Info(err.Error())
		}
		slog.Info("entry published",
			"entry_id", entry.ID, "post_id", post.ID,
			"platform", entry.Platform, "platform_post_id", res.PlatformPostID)
		return nil
	}

	slog.Info("publish failed",
		"entry_id", entry.ID, "platform", entry.Platform,
		"code", string(res.ErrorCode), "error", res.Error)

	switch res.ErrorCode {
	case publisher.ErrorCodeAuth:
		// Expired or revoked credentials fail every future attempt too.
		if err := w.ar.Deactivate(ctx, account.ID); err != nil {
			slog.Info(err.Error())
		}
		return w.failTerminal(ctx, entry, res.Error)
	case publisher.ErrorCodeValidation, publisher.ErrorCodeDuplicate, publisher.ErrorCodeTooLarge:
		return w.failTerminal(ctx, entry, res.Error)
	}

	// Rate limits and unknown errors are worth retrying with backoff.
	if entry.Attempts < w.cfg.MaxPublishRetries {
		delay := time.Duration(1<<uint(entry.Attempts)) * time.Minute
		return w.qr.Reschedule(ctx, entry.ID, time.Now().Add(delay), res.Error)
	}
	return w.failTerminal(ctx, entry, res.Error)
}

// failTerminal marks the entry failed and, unless a sibling entry already
// published the post, marks the post failed as well.
func (w *Worker) failTerminal(ctx context.Context, entry *models.QueueEntry, msg string) error {
	if err := w.qr.MarkFailed(ctx, entry.ID, msg); err != nil {
		return err
	}
	if err := w.pr.MarkFailed(ctx, entry.PostID, msg); err != nil {
		slog.Info(err.Error())
	}
	return nil
}
