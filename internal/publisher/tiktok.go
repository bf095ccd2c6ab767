package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/transfer"
	"github.com/postpilotapp/postpilot/pkg/utils"
)

const (
	tiktokPhotoInitURL = "https://open.tiktokapis.com/v2/post/publish/content/init/"
	tiktokVideoInitURL = "https://open.tiktokapis.com/v2/post/publish/video/init/"
)

type tiktokPublisher struct {
	account *models.SocialAccount
	cfg     *config.Config
	client  *http.Client
}

func (p *tiktokPublisher) Platform() Platform {
	return PlatformTiktok
}

// Publish pushes media to TikTok via its pull-from-url flow. Multiple images
// become a single photo-mode post, one logical result.
func (p *tiktokPublisher) Publish(ctx context.Context, req *PublishRequest) *PublishResult {
	if res := validate(PlatformTiktok, req); res != nil {
		return res
	}

	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return failure(ErrorCodeAuth, "failed to decrypt access token: %s", err.Error())
	}

	initURL := tiktokPhotoInitURL
	var body interface{}
	if len(req.MediaURLs) == 1 && strings.HasSuffix(strings.ToLower(req.MediaURLs[0]), ".mp4") {
		initURL = tiktokVideoInitURL
		body = transfer.TiktokVideoUploadRequest{
			PostInfo: transfer.TiktokVideoPostInfo{
				Title:        req.Text(),
				PrivacyLevel: "PUBLIC_TO_EVERYONE",
			},
			SourceInfo: transfer.TiktokVideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: req.MediaURLs[0],
			},
		}
	} else {
		body = transfer.TiktokPhotoUploadRequest{
			PostInfo: transfer.TiktokPhotoPostInfo{
				Title:        req.Text(),
				PrivacyLevel: "PUBLIC_TO_EVERYONE",
				AutoAddMusic: true,
			},
			SourceInfo: transfer.TiktokPhotoSourceInfo{
				Source:          "PULL_FROM_URL",
				PhotoCoverIndex: 0,
				PhotoImages:     req.MediaURLs,
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to marshal upload request: %s", err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(payload))
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to build request: %s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure(ErrorCodeUnknown, "tiktok request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	var result transfer.TiktokUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(ErrorCodeUnknown, "failed to decode tiktok response: %s", err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		code := classifyStatus(resp.StatusCode)
		switch result.Error.Code {
		case "access_token_invalid", "scope_not_authorized":
			code = ErrorCodeAuth
		case "rate_limit_exceeded", "spam_risk_too_many_posts":
			code = ErrorCodeRateLimit
		}
		return failure(code, "tiktok rejected post: %s", result.Error.Message)
	}

	return &PublishResult{
		Success:        true,
		PlatformPostID: result.Data.PublishID,
		Metadata:       map[string]string{"post_mode": "DIRECT_POST"},
	}
}

// Metrics: the TikTok content posting API offers no per-post metrics read on
// this scope set, so the analytics sweep records a zero snapshot.
func (p *tiktokPublisher) Metrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	return &MetricsSnapshot{}, nil
}
