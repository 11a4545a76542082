package appointments

import "errors"

var (
	// ErrNotFound is returned when an appointment id does not resolve.
	ErrNotFound = errors.New("appointment not found")

	// ErrUnknownPatient is returned when the patient reference does not resolve.
	ErrUnknownPatient = errors.New("unknown patient")

	// ErrUnknownDoctor is returned when the doctor reference does not resolve.
	ErrUnknownDoctor = errors.New("unknown doctor")

	// ErrInvalidSlots is returned when a request carries no slots or more than three.
	ErrInvalidSlots = errors.New("between one and three valid requested slots are required")

	// ErrReasonRequired is returned when the free-text reason is missing.
	ErrReasonRequired = errors.New("a reason for the visit is required")

	// ErrUnknownType is returned for an unrecognized appointment type.
	ErrUnknownType = errors.New("unknown appointment type")

	// ErrConflict marks semantic conflicts: the appointment exists but the
	// requested transition is not legal from its current status.
	ErrConflict = errors.New("conflicting appointment state")

	// ErrAlreadyCancelled is returned when declining an appointment that was
	// already cancelled by either party.
	ErrAlreadyCancelled = errors.New("appointment already cancelled")

	// ErrNoActiveProposal is returned when answering a reschedule proposal
	// that does not exist.
	ErrNoActiveProposal = errors.New("no active reschedule proposal")
)
