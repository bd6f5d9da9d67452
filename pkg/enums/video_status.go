package enums

import "fmt"

// VideoStatus tracks an external video generation task.
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "pending"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

var validVideoStatuses = []VideoStatus{
	VideoStatusPending,
	VideoStatusProcessing,
	VideoStatusCompleted,
	VideoStatusFailed,
}

// String returns the literal string for the video status.
func (v VideoStatus) String() string {
	return string(v)
}

// IsValid reports whether the video status is known.
func (v VideoStatus) IsValid() bool {
	for _, candidate := range validVideoStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVideoStatus converts raw input into a VideoStatus.
func ParseVideoStatus(value string) (VideoStatus, error) {
	for _, candidate := range validVideoStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video status %q", value)
}

// InFlight reports whether the provider task still needs polling.
func (v VideoStatus) InFlight() bool {
	return v == VideoStatusPending || v == VideoStatusProcessing
}
