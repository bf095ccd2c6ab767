package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/postpilotapp/postpilot/internal/models"
)

var ctaAliases = map[string]string{
	"shop now":       models.CTAShopNow,
	"buy now":        models.CTAShopNow,
	"buy":            models.CTAShopNow,
	"shop":           models.CTAShopNow,
	"order now":      models.CTAShopNow,
	"learn more":     models.CTALearnMore,
	"read more":      models.CTALearnMore,
	"find out more":  models.CTALearnMore,
	"discover more":  models.CTALearnMore,
	"sign up":        models.CTASignUp,
	"signup":         models.CTASignUp,
	"join now":       models.CTASignUp,
	"register":       models.CTASignUp,
	"subscribe":      models.CTASignUp,
	"contact us":     models.CTAContactUs,
	"get in touch":   models.CTAContactUs,
	"reach out":      models.CTAContactUs,
	"dm us":          models.CTAContactUs,
}

var optimalTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// parseContent decodes the model's JSON output. Models occasionally wrap
// the object in a markdown fence; strip it before decoding.
func parseContent(text string) (*models.GeneratedContent, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// normalizeContent repairs the tolerable deviations in provider output:
// hashtag overflow is truncated, hashtags get their # prefix, and any
// non-canonical CTA is remapped to the nearest known value or dropped.
func normalizeContent(content *models.GeneratedContent) {
	if len(content.Hashtags) > models.MaxHashtags {
		content.Hashtags = content.Hashtags[:models.MaxHashtags]
	}
	for i, tag := range content.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		content.Hashtags[i] = tag
	}

	content.CTA = remapCTA(content.CTA)
}

func remapCTA(cta string) string {
	cta = strings.TrimSpace(cta)
	if cta == "" {
		return ""
	}
	switch cta {
	case models.CTAShopNow, models.CTALearnMore, models.CTASignUp, models.CTAContactUs:
		return cta
	}
	if canonical, ok := ctaAliases[strings.ToLower(strings.TrimRight(cta, "!."))]; ok {
		return canonical
	}
	return ""
}

// validateContent is the hard shape check after normalization. A failure
// here is a malformed provider response, not a repairable deviation.
func validateContent(content *models.GeneratedContent) bool {
	if strings.TrimSpace(content.Caption) == "" {
		return false
	}
	if strings.TrimSpace(content.ImagePrompt) == "" {
		return false
	}
	if len(content.Hashtags) > models.MaxHashtags {
		return false
	}
	if !optimalTimePattern.MatchString(content.OptimalTime) {
		return false
	}
	switch content.CTA {
	case "", models.CTAShopNow, models.CTALearnMore, models.CTASignUp, models.CTAContactUs:
	default:
		return false
	}
	return true
}
