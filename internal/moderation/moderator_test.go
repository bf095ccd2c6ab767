package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/postpilotapp/postpilot/internal/ai"
)

type fakeProvider struct {
	result *ai.ModerationResult
	err    error
	calls  int
}

func (f *fakeProvider) Moderate(ctx context.Context, text string) (*ai.ModerationResult, error) {
	f.calls++
	return f.result, f.err
}

func TestModerateBannedKeyword(t *testing.T) {
	provider := &fakeProvider{result: &ai.ModerationResult{}}
	m := New(provider, 0.7)

	verdict := m.Moderate(context.Background(), "Invest today for GUARANTEED RETURNS on your savings!")

	assert.True(t, verdict.Flagged)
	assert.Equal(t, []string{CategoryBannedKeywords}, verdict.Categories)
	assert.Zero(t, provider.calls, "banned keyword must short-circuit the provider call")
}

func TestModeratePII(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		category string
	}{
		{"email", "Reach me at jane.doe@example.com for details", "email"},
		{"phone", "Call us on 555-123-4567 today", "phone"},
		{"ssn", "My number is 123-45-6789 ok", "ssn"},
		{"credit card", "Card: 4111 1111 1111 1111", "credit_card"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{result: &ai.ModerationResult{}}
			m := New(provider, 0.7)

			verdict := m.Moderate(context.Background(), tt.text)
			assert.True(t, verdict.Flagged)
			assert.Contains(t, verdict.Categories, CategoryPII)
			assert.Contains(t, verdict.Categories, tt.category)
			assert.Zero(t, provider.calls)
		})
	}
}

func TestModerateProviderThreshold(t *testing.T) {
	tests := []struct {
		name    string
		result  *ai.ModerationResult
		flagged bool
	}{
		{"above threshold", &ai.ModerationResult{Flagged: true, Categories: []string{"violence"}, Confidence: 0.9}, true},
		{"below threshold", &ai.ModerationResult{Flagged: true, Categories: []string{"violence"}, Confidence: 0.4}, false},
		{"clean", &ai.ModerationResult{Flagged: false, Confidence: 0.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{result: tt.result}
			m := New(provider, 0.7)

			verdict := m.Moderate(context.Background(), "a perfectly normal caption")
			assert.Equal(t, tt.flagged, verdict.Flagged)
			assert.Equal(t, 1, provider.calls)
		})
	}
}

func TestModerateProviderUnavailablePasses(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	m := New(provider, 0.7)

	verdict := m.Moderate(context.Background(), "a perfectly normal caption")
	assert.False(t, verdict.Flagged)
}

func TestModerateCustomKeywords(t *testing.T) {
	m := New(nil, 0.7, "competitorbrand")

	verdict := m.Moderate(context.Background(), "better than CompetitorBrand by far")
	assert.True(t, verdict.Flagged)
}

func TestRedact(t *testing.T) {
	m := New(nil, 0.7)

	redacted := m.Redact("Email jane@example.com or call 555-123-4567")
	assert.NotContains(t, redacted, "jane@example.com")
	assert.NotContains(t, redacted, "555-123-4567")
	assert.Contains(t, redacted, "[EMAIL]")
	assert.Contains(t, redacted, "[PHONE]")
}

func TestRedactLeavesCleanTextAlone(t *testing.T) {
	m := New(nil, 0.7)
	text := "Nothing sensitive here, just a caption about coffee."
	assert.Equal(t, text, m.Redact(text))
}
