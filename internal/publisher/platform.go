package publisher

import "fmt"

// Platform is the typed set of supported networks. The factory switches on
// it exhaustively, so adding a platform is a compile-time-checked extension.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformTiktok:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

func (p Platform) String() string {
	return string(p)
}

// Constraints are enforced locally before any external API call.
type Constraints struct {
	MaxTextLength int
	RequiresMedia bool
	AllowsMedia   bool
	MaxMediaCount int
	AllowedMIME   []string
}

var platformConstraints = map[Platform]Constraints{
	PlatformTwitter: {
		MaxTextLength: 280,
		AllowsMedia:   true,
		MaxMediaCount: 4,
		AllowedMIME:   []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	},
	PlatformLinkedIn: {
		MaxTextLength: 3000,
		AllowsMedia:   true,
		MaxMediaCount: 9,
		AllowedMIME:   []string{"image/jpeg", "image/png"},
	},
	PlatformInstagram: {
		MaxTextLength: 2200,
		RequiresMedia: true,
		AllowsMedia:   true,
		MaxMediaCount: 10,
		AllowedMIME:   []string{"image/jpeg", "image/png"},
	},
	PlatformTiktok: {
		MaxTextLength: 2200,
		RequiresMedia: true,
		AllowsMedia:   true,
		MaxMediaCount: 35,
		AllowedMIME:   []string{"image/jpeg", "image/png", "image/webp", "video/mp4"},
	},
}

func (p Platform) Constraints() Constraints {
	return platformConstraints[p]
}

// CharacterLimit is the hard caption limit for the platform.
func (p Platform) CharacterLimit() int {
	return platformConstraints[p].MaxTextLength
}
