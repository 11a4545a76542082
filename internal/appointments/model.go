// Package appointments owns the appointment collection and its lifecycle:
// request, doctor review, reschedule negotiation, cancellation, completion,
// admin override, and a short-window undo of the last mutation.
package appointments

import (
	"fmt"
	"time"
)

// Status enumerates the appointment lifecycle states.
type Status string

const (
	StatusRequested          Status = "Requested"
	StatusPendingReview      Status = "PendingReview"
	StatusAccepted           Status = "Accepted"
	StatusDeclined           Status = "Declined"
	StatusRescheduleProposed Status = "RescheduleProposed"
	StatusRescheduleAccepted Status = "RescheduleAccepted"
	StatusRescheduleDeclined Status = "RescheduleDeclined"
	StatusCancelledByPatient Status = "CancelledByPatient"
	StatusCancelledByDoctor  Status = "CancelledByDoctor"
	StatusCompleted          Status = "Completed"
	StatusNoShow             Status = "NoShow"
)

var allStatuses = map[Status]struct{}{
	StatusRequested:          {},
	StatusPendingReview:      {},
	StatusAccepted:           {},
	StatusDeclined:           {},
	StatusRescheduleProposed: {},
	StatusRescheduleAccepted: {},
	StatusRescheduleDeclined: {},
	StatusCancelledByPatient: {},
	StatusCancelledByDoctor:  {},
	StatusCompleted:          {},
	StatusNoShow:             {},
}

// ParseStatus validates a status string from the API surface.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := allStatuses[status]; !ok {
		return "", fmt.Errorf("appointments: unknown status %q", s)
	}
	return status, nil
}

// Type enumerates the appointment types a patient can request.
type Type string

const (
	TypeConsultation   Type = "Consultation"
	TypeFollowUp       Type = "Follow-up"
	TypeAnnualPhysical Type = "Annual Physical"
	TypeUrgentCare     Type = "Urgent Care"
	TypeLabReview      Type = "Lab Review"
)

// TypeProfile holds the fixed defaults attached to each appointment type.
type TypeProfile struct {
	DurationMinutes int    `json:"duration_minutes"`
	Urgency         string `json:"urgency"` // "routine" or "urgent"
}

var typeProfiles = map[Type]TypeProfile{
	TypeConsultation:   {DurationMinutes: 30, Urgency: "routine"},
	TypeFollowUp:       {DurationMinutes: 20, Urgency: "routine"},
	TypeAnnualPhysical: {DurationMinutes: 45, Urgency: "routine"},
	TypeUrgentCare:     {DurationMinutes: 30, Urgency: "urgent"},
	TypeLabReview:      {DurationMinutes: 15, Urgency: "routine"},
}

// ProfileFor returns the duration/urgency defaults for a type.
func ProfileFor(t Type) (TypeProfile, bool) {
	p, ok := typeProfiles[t]
	return p, ok
}

// DeclineReason is an enumerated code explaining a doctor's rejection.
type DeclineReason string

const (
	DeclineNotAvailable     DeclineReason = "NotAvailable"
	DeclineScheduleConflict DeclineReason = "ScheduleConflict"
	DeclineOutOfScope       DeclineReason = "OutOfScope"
	DeclineNeedsReferral    DeclineReason = "NeedsReferral"
	DeclineOther            DeclineReason = "Other"
)

var declineReasons = map[DeclineReason]struct{}{
	DeclineNotAvailable:     {},
	DeclineScheduleConflict: {},
	DeclineOutOfScope:       {},
	DeclineNeedsReferral:    {},
	DeclineOther:            {},
}

// ParseDeclineReason validates a decline reason code.
func ParseDeclineReason(s string) (DeclineReason, error) {
	r := DeclineReason(s)
	if _, ok := declineReasons[r]; !ok {
		return "", fmt.Errorf("appointments: unknown decline reason %q", s)
	}
	return r, nil
}

// Slot is a (date, time) pair, formatted "2006-01-02" and "15:04".
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// When composes the slot into a concrete time in the given location.
func (s Slot) When(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.Time, loc)
}

// Valid reports whether both components parse.
func (s Slot) Valid() bool {
	_, err := s.When(time.UTC)
	return err == nil
}

// DoctorDecision records the doctor's resolution of a request.
type DoctorDecision struct {
	DecidedAt     time.Time      `json:"decided_at"`
	DecidedBy     string         `json:"decided_by"`
	DeclineReason *DeclineReason `json:"decline_reason,omitempty"`
	DeclineNotes  string         `json:"decline_notes,omitempty"`
}

// RescheduleProposal is a counter-offer slot pending the other party's answer.
type RescheduleProposal struct {
	Slot       Slot      `json:"slot"`
	ProposedBy string    `json:"proposed_by"` // "doctor" or "patient"
	ProposedAt time.Time `json:"proposed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Appointment is the central entity of the platform.
type Appointment struct {
	ID string `json:"id"`

	PatientID   string `json:"patient_id"`
	PatientName string `json:"patient_name"`

	DoctorID        string `json:"doctor_id"`
	DoctorName      string `json:"doctor_name"`
	DoctorSpecialty string `json:"doctor_specialty,omitempty"`

	Type      Type   `json:"type"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes,omitempty"`
	IsVirtual bool   `json:"is_virtual"`

	// RequestedSlots holds the patient's ordered preferences (1..3 entries).
	// ConfirmedSlot stays nil until the doctor accepts.
	RequestedSlots []Slot `json:"requested_slots"`
	ConfirmedSlot  *Slot  `json:"confirmed_slot,omitempty"`

	Decision   *DoctorDecision     `json:"decision,omitempty"`
	Reschedule *RescheduleProposal `json:"reschedule,omitempty"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy, used for undo snapshots and query results.
func (a *Appointment) Clone() *Appointment {
	cp := *a
	if a.RequestedSlots != nil {
		cp.RequestedSlots = append([]Slot(nil), a.RequestedSlots...)
	}
	if a.ConfirmedSlot != nil {
		slot := *a.ConfirmedSlot
		cp.ConfirmedSlot = &slot
	}
	if a.Decision != nil {
		decision := *a.Decision
		if a.Decision.DeclineReason != nil {
			reason := *a.Decision.DeclineReason
			decision.DeclineReason = &reason
		}
		cp.Decision = &decision
	}
	if a.Reschedule != nil {
		proposal := *a.Reschedule
		cp.Reschedule = &proposal
	}
	return &cp
}
