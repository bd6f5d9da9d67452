package enums

import "fmt"

// OperationClass groups endpoints that share a rate limit window.
type OperationClass string

const (
	OperationClassContentGeneration OperationClass = "content_generation"
	OperationClassVoiceCloning      OperationClass = "voice_cloning"
	OperationClassVideoGeneration   OperationClass = "video_generation"
	OperationClassTextToSpeech      OperationClass = "text_to_speech"
)

var validOperationClasses = []OperationClass{
	OperationClassContentGeneration,
	OperationClassVoiceCloning,
	OperationClassVideoGeneration,
	OperationClassTextToSpeech,
}

// String returns the literal string for the operation class.
func (o OperationClass) String() string {
	return string(o)
}

// IsValid reports whether the operation class is known.
func (o OperationClass) IsValid() bool {
	for _, candidate := range validOperationClasses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOperationClass converts raw input into a OperationClass.
func ParseOperationClass(value string) (OperationClass, error) {
	for _, candidate := range validOperationClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid operation class %q", value)
}
