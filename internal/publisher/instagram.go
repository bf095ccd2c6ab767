package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/transfer"
	"github.com/postpilotapp/postpilot/pkg/utils"
)

const instagramAPIBase = "https://graph.facebook.com/v19.0"

type instagramPublisher struct {
	account *models.SocialAccount
	cfg     *config.Config
	client  *http.Client
}

func (p *instagramPublisher) Platform() Platform {
	return PlatformInstagram
}

// Publish runs the Graph API container flow: create one container per image,
// wrap multiples in a carousel container, then publish. The carousel is one
// logical result whose id is the published media id.
func (p *instagramPublisher) Publish(ctx context.Context, req *PublishRequest) *PublishResult {
	if res := validate(PlatformInstagram, req); res != nil {
		return res
	}

	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return failure(ErrorCodeAuth, "failed to decrypt access token: %s", err.Error())
	}

	var containerIDs []string
	isCarousel := len(req.MediaURLs) > 1
	for _, mediaURL := range req.MediaURLs {
		params := url.Values{}
		params.Set("image_url", mediaURL)
		if isCarousel {
			params.Set("is_carousel_item", "true")
		} else {
			params.Set("caption", req.Text())
		}

		id, res := p.createContainer(ctx, token, params)
		if res != nil {
			return res
		}
		containerIDs = append(containerIDs, id)
	}

	publishID := containerIDs[0]
	if isCarousel {
		params := url.Values{}
		params.Set("media_type", "CAROUSEL")
		params.Set("children", strings.Join(containerIDs, ","))
		params.Set("caption", req.Text())

		id, res := p.createContainer(ctx, token, params)
		if res != nil {
			return res
		}
		publishID = id
	}

	params := url.Values{}
	params.Set("creation_id", publishID)
	endpoint := fmt.Sprintf("%s/%s/media_publish?%s&access_token=%s",
		instagramAPIBase, p.account.AccountID, params.Encode(), url.QueryEscape(token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to build publish request: %s", err.Error())
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure(ErrorCodeUnknown, "instagram request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return p.apiFailure(resp)
	}

	var result transfer.InstagramPublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(ErrorCodeUnknown, "failed to decode publish response: %s", err.Error())
	}

	return &PublishResult{
		Success:        true,
		PlatformPostID: result.ID,
		Metadata:       map[string]string{"carousel": fmt.Sprintf("%t", isCarousel)},
	}
}

func (p *instagramPublisher) createContainer(ctx context.Context, token string, params url.Values) (string, *PublishResult) {
	endpoint := fmt.Sprintf("%s/%s/media?%s&access_token=%s",
		instagramAPIBase, p.account.AccountID, params.Encode(), url.QueryEscape(token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to build container request: %s", err.Error())
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return "", failure(ErrorCodeUnknown, "instagram request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", p.apiFailure(resp)
	}

	var result transfer.InstagramContainerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", failure(ErrorCodeUnknown, "failed to decode container response: %s", err.Error())
	}
	return result.ID, nil
}

// apiFailure maps Graph API error envelopes onto the stable categories.
// Code 190 is an expired or invalid token.
func (p *instagramPublisher) apiFailure(resp *http.Response) *PublishResult {
	var apiErr transfer.InstagramErrorResponse
	json.NewDecoder(resp.Body).Decode(&apiErr)

	code := classifyStatus(resp.StatusCode)
	switch apiErr.Error.Code {
	case 190:
		code = ErrorCodeAuth
	case 4, 17, 32:
		code = ErrorCodeRateLimit
	}
	return failure(code, "instagram rejected request: %s", apiErr.Error.Message)
}

func (p *instagramPublisher) Metrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/insights?metric=impressions,likes,comments,shares&access_token=%s",
		instagramAPIBase, platformPostID, url.QueryEscape(token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instagram insights returned status %d", resp.StatusCode)
	}

	var insights transfer.InstagramInsightsResponse
	if err := json.NewDecoder(resp.Body).Decode(&insights); err != nil {
		return nil, err
	}

	snapshot := &MetricsSnapshot{}
	for _, metric := range insights.Data {
		if len(metric.Values) == 0 {
			continue
		}
		value := metric.Values[0].Value
		switch metric.Name {
		case "impressions":
			snapshot.Impressions = value
		case "likes":
			snapshot.Likes = value
		case "comments":
			snapshot.Comments = value
		case "shares":
			snapshot.Shares = value
		}
	}
	return snapshot, nil
}
