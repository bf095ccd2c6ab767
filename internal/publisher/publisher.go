package publisher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
)

// MetricsSnapshot is one engagement reading for a published item.
type MetricsSnapshot struct {
	Impressions int64
	Likes       int64
	Comments    int64
	Shares      int64
}

// Publisher is the uniform contract over the external publishing APIs.
// Publish always returns a result, even for validation and provider
// failures; Metrics is the per-platform engagement fetch used by the
// analytics job.
type Publisher interface {
	Platform() Platform
	Publish(ctx context.Context, req *PublishRequest) *PublishResult
	Metrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error)
}

// New selects the implementation for the account's platform. The switch is
// exhaustive over Platform.
func New(account *models.SocialAccount, cfg *config.Config) (Publisher, error) {
	platform, err := ParsePlatform(account.Platform)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 30 * time.Second}

	switch platform {
	case PlatformTwitter:
		return &twitterPublisher{account: account, cfg: cfg, client: client}, nil
	case PlatformLinkedIn:
		return &linkedinPublisher{account: account, cfg: cfg, client: client}, nil
	case PlatformInstagram:
		return &instagramPublisher{account: account, cfg: cfg, client: client}, nil
	case PlatformTiktok:
		return &tiktokPublisher{account: account, cfg: cfg, client: client}, nil
	}
	return nil, fmt.Errorf("unsupported platform: %q", platform)
}
