package job

import (
	"context"
	"log/slog"
	"time"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/publisher"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

// AnalyticsJob snapshots engagement metrics for recently published posts,
// one row per (post, platform) per collection pass.
type AnalyticsJob struct {
	cfg    *config.Config
	pr     repository.PostRepository
	qr     repository.QueueRepository
	ar     repository.SocialAccountRepository
	an     repository.AnalyticsRepository
	newPub service.PublisherFactory
}

func NewAnalyticsJob(
	cfg *config.Config,
	pr repository.PostRepository,
	qr repository.QueueRepository,
	ar repository.SocialAccountRepository,
	an repository.AnalyticsRepository,
	newPub service.PublisherFactory) *AnalyticsJob {
	if newPub == nil {
		newPub = publisher.New
	}
	return &AnalyticsJob{
		cfg:    cfg,
		pr:     pr,
		qr:     qr,
		ar:     ar,
		an:     an,
		newPub: newPub,
	}
}

func (j *AnalyticsJob) Collect() {
	ctx := context.Background()

	posts, err := j.pr.ListPublishedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if len(posts) == 0 {
		return
	}

	postIDs := make([]int64, 0, len(posts))
	for _, post := range posts {
		postIDs = append(postIDs, post.ID)
	}

	entries, err := j.qr.ListCompletedByPostIDs(ctx, postIDs)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, entry := range entries {
		if !entry.PlatformPostID.Valid {
			continue
		}

		account, err := j.ar.GetActiveByUserPlatform(ctx, entry.UserID, entry.Platform)
		if err != nil || account == nil {
			continue
		}

		pub, err := j.newPub(account, j.cfg)
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		snapshot, err := pub.Metrics(ctx, entry.PlatformPostID.String)
		if err != nil {
			slog.Info("metrics collection failed",
				"platform", entry.Platform, "post_id", entry.PostID, "error", err.Error())
			continue
		}

		row := models.PostAnalytics{
			PostID:      entry.PostID,
			Platform:    entry.Platform,
			Impressions: snapshot.Impressions,
			Likes:       snapshot.Likes,
			Comments:    snapshot.Comments,
			Shares:      snapshot.Shares,
			CollectedAt: time.Now(),
		}
		if _, err := j.an.Create(ctx, &row); err != nil {
			slog.Info(err.Error())
		}
	}
}
