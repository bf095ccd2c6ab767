package models

const MaxHashtags = 30

// Canonical call-to-action values. Anything else coming back from the
// provider is remapped to one of these or dropped.
const (
	CTAShopNow   = "Shop now"
	CTALearnMore = "Learn more"
	CTASignUp    = "Sign up"
	CTAContactUs = "Contact us"
)

type GeneratedContent struct {
	Caption         string   `json:"caption"`
	Hashtags        []string `json:"hashtags"`
	ImagePrompt     string   `json:"image_prompt"`
	GeneratedImages []string `json:"generated_images,omitempty"`
	SelectedImage   string   `json:"selected_image,omitempty"`
	OptimalTime     string   `json:"optimal_time"`
	CTA             string   `json:"cta,omitempty"`
	EngagementHooks []string `json:"engagement_hooks,omitempty"`
	ContentPillars  []string `json:"content_pillars,omitempty"`
}
