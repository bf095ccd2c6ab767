package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postpilotapp/postpilot/internal/models"
)

func TestParseContentStripsFence(t *testing.T) {
	raw := "```json\n{\"caption\":\"hello\",\"hashtags\":[\"#go\"],\"image_prompt\":\"p\",\"optimal_time\":\"10:30\"}\n```"

	content, err := parseContent(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello", content.Caption)
	assert.Equal(t, "10:30", content.OptimalTime)
}

func TestParseContentRejectsProse(t *testing.T) {
	_, err := parseContent("Sure! Here is your post.")
	assert.Error(t, err)
}

func TestRemapCTA(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Shop now", models.CTAShopNow},
		{"Buy Now!", models.CTAShopNow},
		{"ORDER NOW", models.CTAShopNow},
		{"Read more.", models.CTALearnMore},
		{"Subscribe", models.CTASignUp},
		{"Get in touch", models.CTAContactUs},
		{"Learn more", models.CTALearnMore},
		{"Smash that button", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, remapCTA(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeContentHashtags(t *testing.T) {
	content := &models.GeneratedContent{
		Hashtags: []string{"golang", "#coffee", "  latte "},
	}
	normalizeContent(content)

	assert.Equal(t, []string{"#golang", "#coffee", "#latte"}, content.Hashtags)
}

func TestValidateContent(t *testing.T) {
	valid := func() *models.GeneratedContent {
		return &models.GeneratedContent{
			Caption:     "a caption",
			Hashtags:    []string{"#one"},
			ImagePrompt: "a prompt",
			OptimalTime: "18:45",
			CTA:         models.CTALearnMore,
		}
	}

	assert.True(t, validateContent(valid()))

	c := valid()
	c.Caption = "   "
	assert.False(t, validateContent(c), "blank caption")

	c = valid()
	c.ImagePrompt = ""
	assert.False(t, validateContent(c), "missing image prompt")

	c = valid()
	c.OptimalTime = "25:00"
	assert.False(t, validateContent(c), "impossible hour")

	c = valid()
	c.OptimalTime = "9:00"
	assert.False(t, validateContent(c), "hour must be zero padded")

	c = valid()
	c.CTA = "Click here"
	assert.False(t, validateContent(c), "non-canonical cta")

	c = valid()
	c.CTA = ""
	assert.True(t, validateContent(c), "empty cta is allowed")
}
