package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/transfer"
	"github.com/postpilotapp/postpilot/pkg/utils"
)

const linkedinAPIBase = "https://api.linkedin.com/v2"

type linkedinPublisher struct {
	account *models.SocialAccount
	cfg     *config.Config
	client  *http.Client
}

func (p *linkedinPublisher) Platform() Platform {
	return PlatformLinkedIn
}

func (p *linkedinPublisher) Publish(ctx context.Context, req *PublishRequest) *PublishResult {
	if res := validate(PlatformLinkedIn, req); res != nil {
		return res
	}

	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return failure(ErrorCodeAuth, "failed to decrypt access token: %s", err.Error())
	}

	author := "urn:li:person:" + p.account.AccountID

	var media []transfer.LinkedInMedia
	for _, mediaURL := range req.MediaURLs {
		asset, res := p.uploadImage(ctx, token, author, mediaURL)
		if res != nil {
			return res
		}
		media = append(media, transfer.LinkedInMedia{Status: "READY", Media: asset})
	}

	mediaCategory := "NONE"
	if len(media) > 0 {
		mediaCategory = "IMAGE"
	}

	post := transfer.LinkedInPostRequest{
		Author:         author,
		LifecycleState: "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{
			ShareContent: transfer.LinkedInShareContent{
				ShareCommentary:    transfer.LinkedInText{Text: req.Text()},
				ShareMediaCategory: mediaCategory,
				Media:              media,
			},
		},
		Visibility: transfer.LinkedInVisibility{MemberNetworkVisibility: "PUBLIC"},
	}

	payload, err := json.Marshal(post)
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to marshal post: %s", err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinAPIBase+"/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		return failure(ErrorCodeUnknown, "failed to build request: %s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return failure(ErrorCodeUnknown, "linkedin request failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var apiErr transfer.LinkedInErrorResponse
		json.NewDecoder(resp.Body).Decode(&apiErr)
		code := classifyStatus(resp.StatusCode)
		if apiErr.ServiceErrorCode == 65600 {
			code = ErrorCodeAuth // revoked token
		}
		return failure(code, "linkedin rejected post: %s", apiErr.Message)
	}

	var result transfer.LinkedInPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(ErrorCodeUnknown, "failed to decode linkedin response: %s", err.Error())
	}

	return &PublishResult{
		Success:        true,
		PlatformPostID: result.ID,
		URL:            "https://www.linkedin.com/feed/update/" + result.ID,
	}
}

func (p *linkedinPublisher) uploadImage(ctx context.Context, token, owner, mediaURL string) (string, *PublishResult) {
	var register transfer.LinkedInRegisterUploadRequest
	register.RegisterUploadRequest.Recipes = []string{"urn:li:digitalmediaRecipe:feedshare-image"}
	register.RegisterUploadRequest.Owner = owner
	register.RegisterUploadRequest.ServiceRelationships = []struct {
		RelationshipType string `json:"relationshipType"`
		Identifier       string `json:"identifier"`
	}{{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"}}

	payload, err := json.Marshal(register)
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to marshal upload registration: %s", err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, linkedinAPIBase+"/assets?action=registerUpload", bytes.NewReader(payload))
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to build register request: %s", err.Error())
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Info(err.Error())
		return "", failure(ErrorCodeUnknown, "upload registration failed: %s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", failure(classifyStatus(resp.StatusCode), "upload registration returned status %d", resp.StatusCode)
	}

	var registered transfer.LinkedInRegisterUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		return "", failure(ErrorCodeUnknown, "failed to decode registration response: %s", err.Error())
	}

	data, err := downloadMedia(ctx, p.client, mediaURL)
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to fetch media %s: %s", mediaURL, err.Error())
	}

	uploadURL := registered.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", failure(ErrorCodeUnknown, "failed to build upload request: %s", err.Error())
	}
	putReq.Header.Set("Authorization", "Bearer "+token)

	putResp, err := p.client.Do(putReq)
	if err != nil {
		slog.Info(err.Error())
		return "", failure(ErrorCodeUnknown, "media upload failed: %s", err.Error())
	}
	defer putResp.Body.Close()

	if putResp.StatusCode != http.StatusCreated && putResp.StatusCode != http.StatusOK {
		return "", failure(classifyStatus(putResp.StatusCode), "media upload returned status %d", putResp.StatusCode)
	}

	return registered.Value.Asset, nil
}

// Metrics: LinkedIn exposes share statistics only for organization posts on
// this API version, so member-post metrics come back zeroed rather than
// failing the analytics sweep.
func (p *linkedinPublisher) Metrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	token, err := utils.Decrypt(p.account.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/socialActions/%s", linkedinAPIBase, platformPostID)
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
		return &MetricsSnapshot{}, nil
	}

	var social struct {
		LikesSummary struct {
			TotalLikes int64 `json:"totalLikes"`
		} `json:"likesSummary"`
		CommentsSummary struct {
			TotalFirstLevelComments int64 `json:"totalFirstLevelComments"`
		} `json:"commentsSummary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&social); err != nil {
		return nil, err
	}

	return &MetricsSnapshot{
		Likes:    social.LikesSummary.TotalLikes,
		Comments: social.CommentsSummary.TotalFirstLevelComments,
	}, nil
}
