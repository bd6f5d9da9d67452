package enums

import "fmt"

// VoiceStatus tracks the cloned voice attached to an avatar.
type VoiceStatus string

const (
	VoiceStatusNone       VoiceStatus = "none"
	VoiceStatusProcessing VoiceStatus = "processing"
	VoiceStatusReady      VoiceStatus = "ready"
	VoiceStatusFailed     VoiceStatus = "failed"
)

var validVoiceStatuses = []VoiceStatus{
	VoiceStatusNone,
	VoiceStatusProcessing,
	VoiceStatusReady,
	VoiceStatusFailed,
}

// String returns the literal string for the voice status.
func (v VoiceStatus) String() string {
	return string(v)
}

// IsValid reports whether the voice status is known.
func (v VoiceStatus) IsValid() bool {
	for _, candidate := range validVoiceStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVoiceStatus converts raw input into a VoiceStatus.
func ParseVoiceStatus(value string) (VoiceStatus, error) {
	for _, candidate := range validVoiceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid voice status %q", value)
}
