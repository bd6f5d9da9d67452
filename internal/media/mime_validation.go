package media

import (
	"fmt"
	"mime"
	"strings"
)

// allowedVideoTypes are the upload formats ffmpeg is expected to decode for voice samples.
var allowedVideoTypes = map[string]struct{}{
	"video/mp4":        {},
	"video/quicktime":  {},
	"video/webm":       {},
	"video/x-matroska": {},
	"audio/mpeg":       {},
	"audio/wav":        {},
	"audio/x-wav":      {},
	"audio/mp4":        {},
}

// ValidateSampleType normalizes a Content-Type header and rejects formats
// that cannot carry a voice sample.
func ValidateSampleType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := allowedVideoTypes[mediaType]; !ok {
		return "", fmt.Errorf("mime type %q not allowed; upload an mp4, mov, webm, mkv or audio file", mediaType)
	}
	return mediaType, nil
}
