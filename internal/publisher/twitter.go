package publisher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/transfer"
	"github.com/postpilotapp/postpilot/pkg/utils"
)

const (
	twitterAPIBase     = "https://api.twitter.com/2"
	twitterUploadURL   = "https://upload.twitter.com/1.1/media/upload.json"
	twitterStatusBase  = "https://twitter.com/i/web/status/"
)

type twitterPublisher struct {
	account *models.SocialAccount
	cfg     *config.Config
	client  *http.Client
}

func (p *twitterPublisher) Platform() Platform {
	return PlatformTwitter
}

func (p *twitterPublisher) Publish(ctx context.Context, req *PublishRequest) *PublishResult {
	if res := validate(PlatformTwitter, req); res != nil {
		return res
	}

	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return failure(ErrorCodeAuth, "failed to decrypt access token: %s", err.Error())
	}

	// Each media item is its own upload; the tweet references them all as
	// one logical result.
	var mediaIDs []string
	for _, mediaURL := range req.MediaURLs {
		mediaID, res := p.uploadMedia(ctx, token, mediaURL)
		if res != nil {
			return res
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	tweet := transfer.TweetRequest{Text: req.Text()}
	if len(mediaIDs) > 0 {
		tweet.Media = &transfer.TweetMedia{MediaIDs: mediaIDs}
	}

	payload, err := json.Marshal(tweet)
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to marshal tweet: %s", err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterAPIBase+"/tweets", bytes.NewReader(payload))
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to build request: %s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure(ErrorCodeUnknown, "twitter request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	var result transfer.TweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(ErrorCodeUnknown, "failed to decode twitter response: %s", err.Error())
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		code := classifyStatus(resp.StatusCode)
		if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(result.Detail), "duplicate") {
			code = ErrorCodeDuplicate
		}
		return failure(code, "twitter rejected tweet: %s", result.Detail)
	}

	return &PublishResult{
		Success:        true,
		PlatformPostID: result.Data.ID,
		URL:            twitterStatusBase + result.Data.ID,
		Metadata:       map[string]string{"media_count": fmt.Sprintf("%d", len(mediaIDs))},
	}
}

func (p *twitterPublisher) uploadMedia(ctx context.Context, token, mediaURL string) (string, *PublishResult) {
	data, err := downloadMedia(ctx, p.client, mediaURL)
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to fetch media %s: %s", mediaURL, err.Error())
	}

	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(data))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, twitterUploadURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to build upload request: %s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return "", failure(ErrorCodeUnknown, "media upload failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", failure(classifyStatus(resp.StatusCode), "media upload returned status %d", resp.StatusCode)
	}

	var result transfer.TwitterMediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", failure(ErrorCodeUnknown, "failed to decode upload response: %s", err.Error())
	}
	return result.MediaIDString, nil
}

func (p *twitterPublisher) Metrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/tweets/%s?tweet.fields=public_metrics", twitterAPIBase, platformPostID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter metrics returned status %d", resp.StatusCode)
	}

	var result transfer.TweetMetricsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	m := result.Data.PublicMetrics
	return &MetricsSnapshot{
		Impressions: m.ImpressionCount,
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount,
	}, nil
}

// downloadMedia pulls media bytes so they can be re-uploaded to networks
// that have no pull-from-url flow.
func downloadMedia(ctx context.Context, client *http.Client, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
