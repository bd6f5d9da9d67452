package enums

import "fmt"

// ContentAction is a review or scheduling action requested on a content item.
type ContentAction string

const (
	ContentActionSubmit     ContentAction = "submit"
	ContentActionApprove    ContentAction = "approve"
	ContentActionReject     ContentAction = "reject"
	ContentActionSchedule   ContentAction = "schedule"
	ContentActionUnschedule ContentAction = "unschedule"
	ContentActionPublish    ContentAction = "publish"
)

var validContentActions = []ContentAction{
	ContentActionSubmit,
	ContentActionApprove,
	ContentActionReject,
	ContentActionSchedule,
	ContentActionUnschedule,
	ContentActionPublish,
}

// String returns the literal string for the content action.
func (c ContentAction) String() string {
	return string(c)
}

// IsValid reports whether the content action is known.
func (c ContentAction) IsValid() bool {
	for _, candidate := range validContentActions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentAction converts raw input into a ContentAction.
func ParseContentAction(value string) (ContentAction, error) {
	for _, candidate := range validContentActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content action %q", value)
}
