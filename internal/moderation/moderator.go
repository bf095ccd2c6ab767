package moderation

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/postpilotapp/postpilot/internal/ai"
)

const (
	CategoryBannedKeywords = "banned_keywords"
	CategoryPII            = "pii"
)

var defaultBannedKeywords = []string{
	"guaranteed returns",
	"get rich quick",
	"miracle cure",
	"adult content",
	"crypto pump",
	"free money",
}

type piiPattern struct {
	category    string
	placeholder string
	re          *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"email", "[EMAIL]", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
	{"phone", "[PHONE]", regexp.MustCompile(`\+?\d{1,3}[\s.\-]?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)},
	{"ssn", "[SSN]", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit_card", "[CARD]", regexp.MustCompile(`\b(?:\d[\s\-]?){13,16}\b`)},
}

type Verdict struct {
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories"`
	Confidence float64  `json:"confidence"`
}

// Provider is the external moderation API, consulted only when the local
// checks pass. The AI client satisfies it.
type Provider interface {
	Moderate(ctx context.Context, text string) (*ai.ModerationResult, error)
}

// Moderator layers three checks in order, short-circuiting on the first
// flag: banned keywords, PII patterns, then the external moderation API
// gated on a confidence threshold.
type Moderator struct {
	provider  Provider
	keywords  []string
	threshold float64
}

func New(provider Provider, threshold float64, extraKeywords ...string) *Moderator {
	keywords := make([]string, 0, len(defaultBannedKeywords)+len(extraKeywords))
	for _, k := range defaultBannedKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	for _, k := range extraKeywords {
		keywords = append(keywords, strings.ToLower(k))
	}
	return &Moderator{provider: provider, keywords: keywords, threshold: threshold}
}

func (m *Moderator) Moderate(ctx context.Context, text string) Verdict {
	lower := strings.ToLower(text)

	for _, keyword := range m.keywords {
		if strings.Contains(lower, keyword) {
			return Verdict{Flagged: true, Categories: []string{CategoryBannedKeywords}, Confidence: 1}
		}
	}

	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			return Verdict{Flagged: true, Categories: []string{CategoryPII, p.category}, Confidence: 1}
		}
	}

	if m.provider == nil {
		return Verdict{}
	}

	result, err := m.provider.Moderate(ctx, text)
	if err != nil {
		// The local checks already passed; an unreachable moderation API
		// should not block generation.
		slog.Info("moderation API unavailable, passing content: " + err.Error())
		return Verdict{}
	}

	if result.Flagged && result.Confidence > m.threshold {
		return Verdict{Flagged: true, Categories: result.Categories, Confidence: result.Confidence}
	}
	return Verdict{Confidence: result.Confidence}
}

// Redact replaces detected PII spans with category placeholders. It is
// independent of the flagging decision.
func (m *Moderator) Redact(text string) string {
	for _, p := range piiPatterns {
		text = p.re.ReplaceAllString(text, p.placeholder)
	}
	return text
}
