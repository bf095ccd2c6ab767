package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

type ContentBrief struct {
	Industry       string   `json:"industry"`
	Tone           string   `json:"tone"`
	Keywords       []string `json:"keywords"`
	Platform       string   `json:"platform"`
	TargetAudience string   `json:"target_audience,omitempty"`
	BrandVoice     string   `json:"brand_voice,omitempty"`
}

const (
	ToneProfessional = "professional"
	ToneFriendly     = "friendly"
	ToneBold         = "bold"
)

func (b *ContentBrief) Validate() bool {
	switch b.Tone {
	case ToneProfessional, ToneFriendly, ToneBold:
	default:
		return false
	}
	return b.Industry != "" && b.Platform != "" && len(b.Keywords) > 0
}

// Hash returns a stable identity for the brief. Keywords are lowercased and
// sorted before hashing so briefs differing only in keyword order share a
// cache entry.
func (b *ContentBrief) Hash() string {
	canonical := struct {
		Industry       string   `json:"industry"`
		Tone           string   `json:"tone"`
		Keywords       []string `json:"keywords"`
		Platform       string   `json:"platform"`
		TargetAudience string   `json:"target_audience"`
		BrandVoice     string   `json:"brand_voice"`
	}{
		Industry:       strings.ToLower(strings.TrimSpace(b.Industry)),
		Tone:           b.Tone,
		Platform:       b.Platform,
		TargetAudience: strings.ToLower(strings.TrimSpace(b.TargetAudience)),
		BrandVoice:     strings.ToLower(strings.TrimSpace(b.BrandVoice)),
	}

	keywords := make([]string, len(b.Keywords))
	for i, k := range b.Keywords {
		keywords[i] = strings.ToLower(strings.TrimSpace(k))
	}
	sort.Strings(keywords)
	canonical.Keywords = keywords

	data, _ := json.Marshal(canonical)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
