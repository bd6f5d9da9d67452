package enums

import "fmt"

// ContentStatus is the lifecycle state of a content item.
type ContentStatus string

const (
	ContentStatusDraft         ContentStatus = "draft"
	ContentStatusPendingReview ContentStatus = "pending_review"
	ContentStatusApproved      ContentStatus = "approved"
	ContentStatusRejected      ContentStatus = "rejected"
	ContentStatusScheduled     ContentStatus = "scheduled"
	ContentStatusPublished     ContentStatus = "published"
)

var validContentStatuses = []ContentStatus{
	ContentStatusDraft,
	ContentStatusPendingReview,
	ContentStatusApproved,
	ContentStatusRejected,
	ContentStatusScheduled,
	ContentStatusPublished,
}

// String returns the literal string for the content status.
func (c ContentStatus) String() string {
	return string(c)
}

// IsValid reports whether the content status is known.
func (c ContentStatus) IsValid() bool {
	for _, candidate := range validContentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentStatus converts raw input into a ContentStatus.
func ParseContentStatus(value string) (ContentStatus, error) {
	for _, candidate := range validContentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content status %q", value)
}

// IsTerminal reports whether no further automated transition leaves the status.
func (c ContentStatus) IsTerminal() bool {
	return c == ContentStatusPublished || c == ContentStatusRejected
}
