package enums

import "fmt"

// Platform identifies a publishing destination.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
)

var validPlatforms = []Platform{
	PlatformTwitter,
	PlatformTikTok,
	PlatformInstagram,
}

// String returns the literal string for the platform.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the platform is known.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts raw input into a Platform.
func ParsePlatform(value string) (Platform, error) {
	for _, candidate := range validPlatforms {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}

// IsVideoBearing reports whether posts on the platform carry video.
func (p Platform) IsVideoBearing() bool {
	switch p {
	case PlatformTikTok, PlatformInstagram:
		return true
	default:
		return false
	}
}

// ContentType returns the content type produced for the platform.
func (p Platform) ContentType() ContentType {
	if p.IsVideoBearing() {
		return ContentTypeVideo
	}
	return ContentTypeText
}
