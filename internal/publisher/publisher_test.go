package publisher

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{"twitter", PlatformTwitter, false},
		{"linkedin", PlatformLinkedIn, false},
		{"instagram", PlatformInstagram, false},
		{"tiktok", PlatformTiktok, false},
		{"myspace", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePlatform(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactorySelectsImplementation(t *testing.T) {
	cfg := &config.Config{SecretKey: "0123456789abcdef0123456789abcdef"}

	for _, platform := range []Platform{PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformTiktok} {
		account := &models.SocialAccount{Platform: platform.String(), AccountID: "acc-1"}
		pub, err := New(account, cfg)
		require.NoError(t, err)
		assert.Equal(t, platform, pub.Platform())
	}

	_, err := New(&models.SocialAccount{Platform: "friendster"}, cfg)
	assert.Error(t, err)
}

// A tripwire transport: any publisher that validates correctly must never
// reach the network for a constraint violation.
type tripTransport struct {
	called bool
}

func (t *tripTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.called = true
	return nil, http.ErrHandlerTimeout
}

func newTestPublisher(t *testing.T, platform Platform) (Publisher, *tripTransport) {
	t.Helper()
	cfg := &config.Config{SecretKey: "0123456789abcdef0123456789abcdef"}
	account := &models.SocialAccount{Platform: platform.String(), AccountID: "acc-1", AccessToken: "opaque"}
	pub, err := New(account, cfg)
	require.NoError(t, err)

	trip := &tripTransport{}
	switch p := pub.(type) {
	case *twitterPublisher:
		p.client = &http.Client{Transport: trip, Timeout: time.Second}
	case *linkedinPublisher:
		p.client = &http.Client{Transport: trip, Timeout: time.Second}
	case *instagramPublisher:
		p.client = &http.Client{Transport: trip, Timeout: time.Second}
	case *tiktokPublisher:
		p.client = &http.Client{Transport: trip, Timeout: time.Second}
	}
	return pub, trip
}

func TestPublishRejectsOverlongTextWithoutAPICall(t *testing.T) {
	pub, trip := newTestPublisher(t, PlatformTwitter)

	result := pub.Publish(context.Background(), &PublishRequest{
		Content: strings.Repeat("x", 300),
	})

	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, ErrorCodeValidation, result.ErrorCode)
	assert.Contains(t, result.Error, "length")
	assert.False(t, trip.called, "constraint violation must not reach the network")
}

func TestPublishRejectsMissingRequiredMedia(t *testing.T) {
	for _, platform := range []Platform{PlatformInstagram, PlatformTiktok} {
		t.Run(platform.String(), func(t *testing.T) {
			pub, trip := newTestPublisher(t, platform)

			result := pub.Publish(context.Background(), &PublishRequest{Content: "no media here"})
			assert.False(t, result.Success)
			assert.Equal(t, ErrorCodeValidation, result.ErrorCode)
			assert.False(t, trip.called)
		})
	}
}

func TestPublishRejectsTooManyMediaItems(t *testing.T) {
	pub, trip := newTestPublisher(t, PlatformTwitter)

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = "https://cdn.example.com/img.png"
	}
	result := pub.Publish(context.Background(), &PublishRequest{Content: "hi", MediaURLs: urls})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorCodeValidation, result.ErrorCode)
	assert.False(t, trip.called)
}

func TestPublishRejectsUnsupportedMediaType(t *testing.T) {
	pub, trip := newTestPublisher(t, PlatformLinkedIn)

	result := pub.Publish(context.Background(), &PublishRequest{
		Content:   "hi",
		MediaURLs: []string{"https://cdn.example.com/clip.mp4"},
	})

	assert.False(t, result.Success)
	assert.Equal(t, ErrorCodeValidation, result.ErrorCode)
	assert.False(t, trip.called)
}

func TestRequestTextJoinsHashtags(t *testing.T) {
	req := &PublishRequest{Content: "Fresh drop", Hashtags: []string{"#style", "#new"}}
	assert.Equal(t, "Fresh drop\n\n#style #new", req.Text())

	bare := &PublishRequest{Content: "Fresh drop"}
	assert.Equal(t, "Fresh drop", bare.Text())
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusUnauthorized, ErrorCodeAuth},
		{http.StatusForbidden, ErrorCodeAuth},
		{http.StatusTooManyRequests, ErrorCodeRateLimit},
		{http.StatusConflict, ErrorCodeDuplicate},
		{http.StatusRequestEntityTooLarge, ErrorCodeTooLarge},
		{http.StatusInternalServerError, ErrorCodeUnknown},
		{http.StatusBadRequest, ErrorCodeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyStatus(tt.status))
	}
}

func TestCharacterLimits(t *testing.T) {
	assert.Equal(t, 280, PlatformTwitter.CharacterLimit())
	assert.Equal(t, 3000, PlatformLinkedIn.CharacterLimit())
	assert.Equal(t, 2200, PlatformInstagram.CharacterLimit())
}
