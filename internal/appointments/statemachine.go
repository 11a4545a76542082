package appointments

import (
	"fmt"
	"strings"
)

// Terminal states. RescheduleDeclined closes the proposal round but the
// appointment itself can still be cancelled afterward, so it is not in
// this set.
var terminalStatuses = map[Status]struct{}{
	StatusDeclined:           {},
	StatusCancelledByPatient: {},
	StatusCancelledByDoctor:  {},
	StatusCompleted:          {},
	StatusNoShow:             {},
}

// IsTerminal reports whether no further party-initiated transitions apply.
func IsTerminal(s Status) bool {
	_, ok := terminalStatuses[s]
	return ok
}

// Statuses from which the doctor may still resolve the original request.
var reviewableStatuses = []Status{StatusRequested, StatusPendingReview}

// Statuses from which the patient may cancel.
var patientCancelableStatuses = []Status{
	StatusRequested,
	StatusPendingReview,
	StatusAccepted,
	StatusRescheduleAccepted,
	StatusRescheduleDeclined,
}

func ensureStatus(a *Appointment, allowed ...Status) error {
	for _, s := range allowed {
		if a.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s", ErrConflict, a.Status)
}

func isCancelled(s Status) bool {
	return strings.Contains(string(s), "Cancelled")
}
