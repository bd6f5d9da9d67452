package content

import (
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
)

type transitionRule struct {
	from []enums.ContentStatus
	to   enums.ContentStatus
}

var transitionRules = map[enums.ContentAction]transitionRule{
	enums.ContentActionSubmit: {
		from: []enums.ContentStatus{enums.ContentStatusDraft},
		to:   enums.ContentStatusPendingReview,
	},
	enums.ContentActionApprove: {
		from: []enums.ContentStatus{enums.ContentStatusDraft, enums.ContentStatusPendingReview},
		to:   enums.ContentStatusApproved,
	},
	enums.ContentActionReject: {
		from: []enums.ContentStatus{enums.ContentStatusDraft, enums.ContentStatusPendingReview},
		to:   enums.ContentStatusRejected,
	},
	enums.ContentActionSchedule: {
		from: []enums.ContentStatus{enums.ContentStatusDraft, enums.ContentStatusPendingReview, enums.ContentStatusApproved},
		to:   enums.ContentStatusScheduled,
	},
	enums.ContentActionUnschedule: {
		from: []enums.ContentStatus{enums.ContentStatusScheduled},
		to:   enums.ContentStatusApproved,
	},
	enums.ContentActionPublish: {
		from: []enums.ContentStatus{enums.ContentStatusApproved, enums.ContentStatusScheduled},
		to:   enums.ContentStatusPublished,
	},
}

// NextStatus returns the status reached by applying action to a record in
// status from. Illegal moves are state conflicts, never no-ops.
func NextStatus(from enums.ContentStatus, action enums.ContentAction) (enums.ContentStatus, error) {
	rule, ok := transitionRules[action]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown action").WithDetails(map[string]any{"action": action})
	}
	for _, allowed := range rule.from {
		if allowed == from {
			return rule.to, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeStateConflict, "action not allowed in current status").WithDetails(map[string]any{
		"action": action,
		"status": from,
	})
}

// CanPublish reports whether content in status may be published.
func CanPublish(status enums.ContentStatus) bool {
	_, err := NextStatus(status, enums.ContentActionPublish)
	return err == nil
}
