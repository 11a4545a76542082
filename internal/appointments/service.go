package appointments

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mediconnect/platform/internal/observability/metrics"
	"github.com/mediconnect/platform/internal/transport"
	"github.com/mediconnect/platform/pkg/logging"
)

var tracer = otel.Tracer("mediconnect.internal.appointments")

// Person is the resolved view of a patient or doctor reference.
type Person struct {
	ID        string
	Name      string
	Specialty string
}

// Directory resolves patient and doctor references at request time.
type Directory interface {
	FindPatient(ctx context.Context, id string) (*Person, error)
	FindDoctor(ctx context.Context, id string) (*Person, error)
}

// Manager owns the appointment collection and enforces the status state
// machine. All mutations run through the simulated transport and persist the
// full collection to the store on success.
type Manager struct {
	store     Store
	dir       Directory
	transport transport.Transport
	metrics   *metrics.AppointmentMetrics
	logger    *logging.Logger

	profile      transport.Profile
	adminProfile transport.Profile

	now func() time.Time

	mu    sync.Mutex
	appts map[string]*Appointment
	undo  undoLog
}

// NewManager constructs the lifecycle manager. Call Load before serving.
func NewManager(store Store, dir Directory, tp transport.Transport, m *metrics.AppointmentMetrics, logger *logging.Logger) *Manager {
	if store == nil {
		panic("appointments: store required")
	}
	if dir == nil {
		panic("appointments: directory required")
	}
	if tp == nil {
		panic("appointments: transport required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:        store,
		dir:          dir,
		transport:    tp,
		metrics:      m,
		logger:       logger,
		profile:      transport.DefaultProfile(),
		adminProfile: transport.AdminProfile(),
		now:          time.Now,
		appts:        make(map[string]*Appointment),
	}
}

// SetProfiles overrides the simulated transport tuning.
func (m *Manager) SetProfiles(standard, admin transport.Profile) {
	m.profile = standard
	m.adminProfile = admin
}

// Load restores the collection from the store, falling back to the bundled
// seed dataset when no snapshot exists or the snapshot is corrupt.
func (m *Manager) Load(ctx context.Context) error {
	appts, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrCorruptSnapshot) {
			return err
		}
		m.logger.Warn("persisted snapshot corrupt, falling back to seed", "error", err)
		appts = nil
	}
	if appts == nil {
		seeded, err := Seed()
		if err != nil {
			return err
		}
		appts = seeded
		m.logger.Info("loaded seed dataset", "count", len(appts))
	} else {
		m.logger.Info("loaded persisted appointments", "count", len(appts))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts = make(map[string]*Appointment, len(appts))
	for i := range appts {
		a := appts[i]
		m.appts[a.ID] = &a
	}
	return nil
}

// RequestInput carries a patient's appointment request.
type RequestInput struct {
	PatientID string
	DoctorID  string
	Type      Type
	Reason    string
	Notes     string
	Slots     []Slot
	IsVirtual bool
}

// RequestAppointment validates the request synchronously, then creates a new
// Requested appointment through the simulated transport.
func (m *Manager) RequestAppointment(ctx context.Context, in RequestInput) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.request")
	defer span.End()
	span.SetAttributes(
		attribute.String("mediconnect.patient_id", in.PatientID),
		attribute.String("mediconnect.doctor_id", in.DoctorID),
	)

	if len(in.Slots) == 0 || len(in.Slots) > 3 {
		return nil, m.reject("request", ErrInvalidSlots)
	}
	for _, slot := range in.Slots {
		if !slot.Valid() {
			return nil, m.reject("request", ErrInvalidSlots)
		}
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, m.reject("request", ErrReasonRequired)
	}
	if _, ok := ProfileFor(in.Type); !ok {
		return nil, m.reject("request", ErrUnknownType)
	}

	patient, err := m.dir.FindPatient(ctx, in.PatientID)
	if err != nil || patient == nil {
		return nil, m.reject("request", ErrUnknownPatient)
	}
	doctor, err := m.dir.FindDoctor(ctx, in.DoctorID)
	if err != nil || doctor == nil {
		return nil, m.reject("request", ErrUnknownDoctor)
	}

	var created *Appointment
	err = m.transport.Execute(ctx, m.profile, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		now := m.now()
		appt := &Appointment{
			ID:              uuid.NewString(),
			PatientID:       patient.ID,
			PatientName:     patient.Name,
			DoctorID:        doctor.ID,
			DoctorName:      doctor.Name,
			DoctorSpecialty: doctor.Specialty,
			Type:            in.Type,
			Reason:          strings.TrimSpace(in.Reason),
			Notes:           strings.TrimSpace(in.Notes),
			IsVirtual:       in.IsVirtual,
			RequestedSlots:  append([]Slot(nil), in.Slots...),
			Status:          StatusRequested,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		m.appts[appt.ID] = appt
		if err := m.persistLocked(ctx); err != nil {
			delete(m.appts, appt.ID)
			return err
		}
		created = appt.Clone()
		return nil
	})
	if err != nil {
		m.metrics.ObserveTransition("request", "error")
		return nil, err
	}

	m.metrics.ObserveTransition("request", "ok")
	m.logger.Info("appointment requested",
		"appointment_id", created.ID,
		"patient_id", created.PatientID,
		"doctor_id", created.DoctorID,
		"type", created.Type,
	)
	return created, nil
}

// Accept confirms one of the requested slots. Doctor-side.
func (m *Manager) Accept(ctx context.Context, id, doctorID string, slot Slot) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "accept", "Accepted appointment", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if err := ensureStatus(a, reviewableStatuses...); err != nil {
			return err
		}
		if !slot.Valid() {
			return ErrInvalidSlots
		}
		chosen := slot
		a.ConfirmedSlot = &chosen
		a.Decision = &DoctorDecision{DecidedAt: m.now(), DecidedBy: doctorID}
		a.Status = StatusAccepted
		return nil
	})
}

// Decline rejects a request with an enumerated reason. Appointments already
// cancelled by either party cannot be declined.
func (m *Manager) Decline(ctx context.Context, id, doctorID string, reason DeclineReason, notes string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "decline", "Declined appointment", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if isCancelled(a.Status) {
			return ErrAlreadyCancelled
		}
		if err := ensureStatus(a, reviewableStatuses...); err != nil {
			return err
		}
		if _, ok := declineReasons[reason]; !ok {
			return fmt.Errorf("appointments: unknown decline reason %q", reason)
		}
		declined := reason
		a.Decision = &DoctorDecision{
			DecidedAt:     m.now(),
			DecidedBy:     doctorID,
			DeclineReason: &declined,
			DeclineNotes:  strings.TrimSpace(notes),
		}
		a.Status = StatusDeclined
		return nil
	})
}

// rescheduleProposalTTL is how long a counter-offer stays answerable.
const rescheduleProposalTTL = 3 * 24 * time.Hour

// ProposeReschedule raises a doctor counter-offer slot on an open request.
func (m *Manager) ProposeReschedule(ctx context.Context, id, doctorID string, slot Slot) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "reschedule_propose", "Proposed new time", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if err := ensureStatus(a, reviewableStatuses...); err != nil {
			return err
		}
		if !slot.Valid() {
			return ErrInvalidSlots
		}
		now := m.now()
		a.Reschedule = &RescheduleProposal{
			Slot:       slot,
			ProposedBy: "doctor",
			ProposedAt: now,
			ExpiresAt:  now.Add(rescheduleProposalTTL),
		}
		a.Status = StatusRescheduleProposed
		return nil
	})
}

// AcceptReschedule confirms the proposed slot. Patient-side. Fails when no
// active (unexpired) proposal exists.
func (m *Manager) AcceptReschedule(ctx context.Context, id, patientID string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "reschedule_accept", "Accepted new time", id, func(a *Appointment) error {
		if err := m.ownedByPatient(a, patientID); err != nil {
			return err
		}
		if a.Status != StatusRescheduleProposed || a.Reschedule == nil {
			return ErrNoActiveProposal
		}
		if m.now().After(a.Reschedule.ExpiresAt) {
			return fmt.Errorf("%w: proposal expired", ErrNoActiveProposal)
		}
		confirmed := a.Reschedule.Slot
		a.ConfirmedSlot = &confirmed
		a.Reschedule = nil
		a.Status = StatusRescheduleAccepted
		return nil
	})
}

// DeclineReschedule rejects the proposed slot and clears the proposal.
func (m *Manager) DeclineReschedule(ctx context.Context, id, patientID string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "reschedule_decline", "Declined new time", id, func(a *Appointment) error {
		if err := m.ownedByPatient(a, patientID); err != nil {
			return err
		}
		if a.Status != StatusRescheduleProposed || a.Reschedule == nil {
			return ErrNoActiveProposal
		}
		a.Reschedule = nil
		a.Status = StatusRescheduleDeclined
		return nil
	})
}

// CancelByPatient cancels the patient's own appointment. The optional reason
// is appended to the notes.
func (m *Manager) CancelByPatient(ctx context.Context, id, patientID, reason string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "cancel_patient", "Cancelled appointment", id, func(a *Appointment) error {
		if err := m.ownedByPatient(a, patientID); err != nil {
			return err
		}
		if err := ensureStatus(a, patientCancelableStatuses...); err != nil {
			return err
		}
		appendNote(a, "Cancelled by patient", reason)
		a.Reschedule = nil
		a.Status = StatusCancelledByPatient
		return nil
	})
}

// CancelByDoctor cancels any non-terminal appointment of the doctor.
func (m *Manager) CancelByDoctor(ctx context.Context, id, doctorID, reason string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "cancel_doctor", "Cancelled appointment", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if IsTerminal(a.Status) {
			return fmt.Errorf("%w: cannot cancel from %s", ErrConflict, a.Status)
		}
		appendNote(a, "Cancelled by doctor", reason)
		a.Reschedule = nil
		a.Status = StatusCancelledByDoctor
		return nil
	})
}

// MarkCompleted closes an accepted appointment after the visit.
func (m *Manager) MarkCompleted(ctx context.Context, id, doctorID, notes string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "complete", "Marked completed", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if err := ensureStatus(a, StatusAccepted); err != nil {
			return err
		}
		appendNote(a, "Visit notes", notes)
		a.Status = StatusCompleted
		return nil
	})
}

// MarkNoShow flags an accepted appointment the patient missed.
func (m *Manager) MarkNoShow(ctx context.Context, id, doctorID string) (*Appointment, error) {
	return m.mutate(ctx, m.profile, "no_show", "Marked no-show", id, func(a *Appointment) error {
		if err := m.ownedByDoctor(a, doctorID); err != nil {
			return err
		}
		if err := ensureStatus(a, StatusAccepted); err != nil {
			return err
		}
		a.Status = StatusNoShow
		return nil
	})
}

// OverrideStatus sets the status directly, bypassing the state machine.
// Admin-only; still records an undo entry.
func (m *Manager) OverrideStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	if _, ok := allStatuses[status]; !ok {
		return nil, m.reject("override", fmt.Errorf("appointments: unknown status %q", status))
	}
	return m.mutate(ctx, m.adminProfile, "override", "Admin status override", id, func(a *Appointment) error {
		a.Status = status
		return nil
	})
}

// UndoLastAction restores the snapshot of the most recent mutation if it is
// still inside the undo window. Returns false when there is nothing to undo.
func (m *Manager) UndoLastAction(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.undo.pop(m.now())
	if !ok {
		m.metrics.ObserveUndo("expired")
		return false, nil
	}

	current, exists := m.appts[entry.AppointmentID]
	m.appts[entry.AppointmentID] = entry.Snapshot.Clone()
	if err := m.persistLocked(ctx); err != nil {
		if exists {
			m.appts[entry.AppointmentID] = current
		} else {
			delete(m.appts, entry.AppointmentID)
		}
		m.metrics.ObserveUndo("error")
		return false, err
	}

	m.metrics.ObserveUndo("ok")
	m.logger.Info("undo applied",
		"appointment_id", entry.AppointmentID,
		"label", entry.Label,
	)
	return true, nil
}

// mutate runs a transition against an existing appointment: transport wrapper,
// state-machine guard, undo snapshot, persistence. The apply callback mutates
// in place and returns a conflict/validation error to abort without change.
func (m *Manager) mutate(ctx context.Context, profile transport.Profile, action, label, id string, apply func(*Appointment) error) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments."+action)
	defer span.End()
	span.SetAttributes(attribute.String("mediconnect.appointment_id", id))

	var result *Appointment
	err := m.transport.Execute(ctx, profile, func(ctx context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		a, ok := m.appts[id]
		if !ok {
			return ErrNotFound
		}
		snapshot := a.Clone()
		if err := apply(a); err != nil {
			// apply may have partially mutated before failing; roll back.
			m.appts[id] = snapshot
			return err
		}
		a.UpdatedAt = m.now()
		if err := m.persistLocked(ctx); err != nil {
			m.appts[id] = snapshot
			return err
		}
		m.undo.push(UndoEntry{
			AppointmentID: id,
			Snapshot:      snapshot,
			Label:         label,
			CreatedAt:     m.now(),
		})
		result = a.Clone()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		m.metrics.ObserveTransition(action, "error")
		return nil, err
	}

	m.metrics.ObserveTransition(action, "ok")
	m.logger.Info("appointment transition",
		"appointment_id", id,
		"action", action,
		"status", result.Status,
	)
	return result, nil
}

func (m *Manager) reject(action string, err error) error {
	m.metrics.ObserveTransition(action, "rejected")
	return err
}

func (m *Manager) ownedByPatient(a *Appointment, patientID string) error {
	if patientID != "" && a.PatientID != patientID {
		return fmt.Errorf("%w: appointment belongs to another patient", ErrConflict)
	}
	return nil
}

func (m *Manager) ownedByDoctor(a *Appointment, doctorID string) error {
	if doctorID != "" && a.DoctorID != doctorID {
		return fmt.Errorf("%w: appointment belongs to another doctor", ErrConflict)
	}
	return nil
}

// persistLocked saves the full collection; callers hold m.mu.
func (m *Manager) persistLocked(ctx context.Context) error {
	appts := make([]Appointment, 0, len(m.appts))
	for _, a := range m.appts {
		appts = append(appts, *a.Clone())
	}
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].CreatedAt.Equal(appts[j].CreatedAt) {
			return appts[i].ID < appts[j].ID
		}
		return appts[i].CreatedAt.Before(appts[j].CreatedAt)
	})
	return m.store.Save(ctx, appts)
}

func appendNote(a *Appointment, prefix, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	line := prefix + ": " + text
	if a.Notes == "" {
		a.Notes = line
		return
	}
	a.Notes += "\n" + line
}
