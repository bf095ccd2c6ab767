package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/transfer"
	"github.com/postpilotapp/postpilot/pkg/utils"
)

var (
	twitterEndpoint = oauth2.Endpoint{
		TokenURL:  "https://api.twitter.com/2/oauth2/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	linkedinEndpoint = oauth2.Endpoint{
		TokenURL:  "https://www.linkedin.com/oauth/v2/accessToken",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	tiktokEndpoint = oauth2.Endpoint{
		TokenURL:  "https://open.tiktokapis.com/v2/oauth/token/",
		AuthStyle: oauth2.AuthStyleInParams,
	}
)

// TokenRefreshJob renews access tokens that expire within the next day.
// Accounts whose token is already expired and cannot be refreshed get
// deactivated so the publish path stops attempting them.
type TokenRefreshJob struct {
	cfg    *config.Config
	sr     repository.SocialAccountRepository
	client *http.Client
}

func NewTokenRefreshJob(cfg *config.Config, sr repository.SocialAccountRepository) *TokenRefreshJob {
	return &TokenRefreshJob{
		cfg:    cfg,
		sr:     sr,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (j *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	accounts, err := j.sr.ListExpiringBefore(ctx, time.Now().Add(24*time.Hour))
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := j.refresh(ctx, acc); err != nil {
				slog.Info("token refresh failed",
					"platform", acc.Platform, "account_id", acc.ID, "error", err.Error())

				expired := acc.TokenExpiresAt.Valid && acc.TokenExpiresAt.Time.Before(time.Now())
				if expired {
					if derr := j.sr.Deactivate(ctx, acc.ID); derr != nil {
						slog.Info(derr.Error())
					}
				}
			}
		}(acc)
	}

	wg.Wait()
}

func (j *TokenRefreshJob) refresh(ctx context.Context, acc *models.SocialAccount) error {
	if acc.Platform == "instagram" {
		return j.refreshInstagram(ctx, acc)
	}

	if !acc.RefreshToken.Valid || acc.RefreshToken.String == "" {
		return errors.New("account has no refresh token")
	}
	refreshToken, err := utils.Decrypt(acc.RefreshToken.String, []byte(j.cfg.SecretKey))
	if err != nil {
		return err
	}

	conf, err := j.oauthConfig(acc.Platform)
	if err != nil {
		return err
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return err
	}

	return j.storeToken(ctx, acc.ID, token.AccessToken, token.RefreshToken, token.Expiry)
}

func (j *TokenRefreshJob) oauthConfig(platform string) (*oauth2.Config, error) {
	switch platform {
	case "twitter":
		return &oauth2.Config{
			ClientID:     j.cfg.Twitter.ClientID,
			ClientSecret: j.cfg.Twitter.ClientSecret,
			Endpoint:     twitterEndpoint,
		}, nil
	case "linkedin":
		return &oauth2.Config{
			ClientID:     j.cfg.LinkedIn.ClientID,
			ClientSecret: j.cfg.LinkedIn.ClientSecret,
			Endpoint:     linkedinEndpoint,
		}, nil
	case "tiktok":
		return &oauth2.Config{
			ClientID:     j.cfg.Tiktok.ClientKey,
			ClientSecret: j.cfg.Tiktok.ClientSecret,
			Endpoint:     tiktokEndpoint,
		}, nil
	}
	return nil, fmt.Errorf("no oauth config for platform %q", platform)
}

// Instagram long-lived tokens refresh themselves, no refresh token involved.
func (j *TokenRefreshJob) refreshInstagram(ctx context.Context, acc *models.SocialAccount) error {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(j.cfg.SecretKey))
	if err != nil {
		return err
	}

	url := "https://graph.instagram.com/refresh_access_token?grant_type=ig_refresh_token&access_token=" + accessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("instagram token refresh returned status %d", resp.StatusCode)
	}

	var tr transfer.InstagramTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return err
	}

	expiry := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return j.storeToken(ctx, acc.ID, tr.AccessToken, "", expiry)
}

func (j *TokenRefreshJob) storeToken(ctx context.Context, accountID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	encAccess, err := utils.Encrypt([]byte(accessToken), []byte(j.cfg.SecretKey))
	if err != nil {
		return err
	}

	encRefresh := ""
	if refreshToken != "" {
		encRefresh, err = utils.Encrypt([]byte(refreshToken), []byte(j.cfg.SecretKey))
		if err != nil {
			return err
		}
	}

	return j.sr.SetToken(ctx, accountID, encAccess, encRefresh, expiresAt)
}
