package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediconnect/platform/internal/http/middleware"
	"github.com/mediconnect/platform/internal/notify"
	"github.com/mediconnect/platform/internal/transport"
	"github.com/mediconnect/platform/pkg/logging"
)

// Handler exposes the lifecycle manager over HTTP. After each successful
// transition it dispatches a notification; the manager itself never does.
type Handler struct {
	manager  *Manager
	notifier *notify.Dispatcher
	logger   *logging.Logger
}

// NewHandler creates the appointments handler.
func NewHandler(manager *Manager, notifier *notify.Dispatcher, logger *logging.Logger) *Handler {
	if manager == nil {
		panic("appointments: manager required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, notifier: notifier, logger: logger}
}

type requestBody struct {
	DoctorID  string `json:"doctor_id"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
	Notes     string `json:"notes"`
	Slots     []Slot `json:"slots"`
	IsVirtual bool   `json:"is_virtual"`
}

// Request handles POST /api/appointments. Patient-side.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.manager.RequestAppointment(r.Context(), RequestInput{
		PatientID: identity.UserID,
		DoctorID:  body.DoctorID,
		Type:      Type(body.Type),
		Reason:    body.Reason,
		Notes:     body.Notes,
		Slots:     body.Slots,
		IsVirtual: body.IsVirtual,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.dispatch(r, notify.ActionRequest, appt)
	h.writeJSON(w, http.StatusCreated, appt)
}

type acceptBody struct {
	Slot Slot `json:"slot"`
}

// Accept handles POST /api/appointments/{id}/accept. Doctor-side.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body acceptBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.manager.Accept(r.Context(), chi.URLParam(r, "id"), identity.UserID, body.Slot)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionAccept, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type declineBody struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

// Decline handles POST /api/appointments/{id}/decline. Doctor-side.
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body declineBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	reason, err := ParseDeclineReason(body.Reason)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	appt, err := h.manager.Decline(r.Context(), chi.URLParam(r, "id"), identity.UserID, reason, body.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionDecline, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type slotBody struct {
	Slot Slot `json:"slot"`
}

// ProposeReschedule handles POST /api/appointments/{id}/propose-reschedule.
func (h *Handler) ProposeReschedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body slotBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.manager.ProposeReschedule(r.Context(), chi.URLParam(r, "id"), identity.UserID, body.Slot)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionReschedulePropose, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

// AcceptReschedule handles POST /api/appointments/{id}/accept-reschedule.
func (h *Handler) AcceptReschedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	appt, err := h.manager.AcceptReschedule(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionRescheduleAccept, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

// DeclineReschedule handles POST /api/appointments/{id}/decline-reschedule.
func (h *Handler) DeclineReschedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	appt, err := h.manager.DeclineReschedule(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionRescheduleDecline, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /api/appointments/{id}/cancel. Patient-side.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body cancelBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	appt, err := h.manager.CancelByPatient(r.Context(), chi.URLParam(r, "id"), identity.UserID, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionCancelByPatient, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

// DoctorCancel handles POST /api/appointments/{id}/doctor-cancel.
func (h *Handler) DoctorCancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body cancelBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	appt, err := h.manager.CancelByDoctor(r.Context(), chi.URLParam(r, "id"), identity.UserID, body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionCancelByDoctor, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type completeBody struct {
	Notes string `json:"notes"`
}

// Complete handles POST /api/appointments/{id}/complete. Doctor-side.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var body completeBody
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	appt, err := h.manager.MarkCompleted(r.Context(), chi.URLParam(r, "id"), identity.UserID, body.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionComplete, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

// NoShow handles POST /api/appointments/{id}/no-show. Doctor-side.
func (h *Handler) NoShow(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	appt, err := h.manager.MarkNoShow(r.Context(), chi.URLParam(r, "id"), identity.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionNoShow, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type overrideBody struct {
	Status string `json:"status"`
}

// Override handles POST /api/admin/appointments/{id}/status.
func (h *Handler) Override(w http.ResponseWriter, r *http.Request) {
	var body overrideBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	status, err := ParseStatus(body.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	appt, err := h.manager.OverrideStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.dispatch(r, notify.ActionOverride, appt)
	h.writeJSON(w, http.StatusOK, appt)
}

type undoResponse struct {
	Undone bool `json:"undone"`
}

// Undo handles POST /api/appointments/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	undone, err := h.manager.UndoLastAction(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, undoResponse{Undone: undone})
}

// Get handles GET /api/appointments/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.manager.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	identity, _ := middleware.IdentityFromContext(r.Context())
	if identity != nil && identity.Role != "admin" &&
		appt.PatientID != identity.UserID && appt.DoctorID != identity.UserID {
		http.Error(w, "not involved in this appointment", http.StatusForbidden)
		return
	}
	h.writeJSON(w, http.StatusOK, appt)
}

// ListMine handles GET /api/appointments. Scope depends on the caller's role.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var appts []*Appointment
	switch identity.Role {
	case "doctor":
		appts = h.manager.ListByDoctor(identity.UserID)
	default:
		appts = h.manager.ListByPatient(identity.UserID)
	}
	h.writeJSON(w, http.StatusOK, appts)
}

// Pending handles GET /api/doctor/appointments/pending.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, h.manager.PendingForDoctor(identity.UserID))
}

// TodaySchedule handles GET /api/doctor/appointments/today.
func (h *Handler) TodaySchedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, h.manager.TodaysScheduleForDoctor(identity.UserID, time.Now().UTC()))
}

// Upcoming handles GET /api/patient/appointments/upcoming.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	h.writeJSON(w, http.StatusOK, h.manager.UpcomingForPatient(identity.UserID, time.Now().UTC()))
}

// Stats handles GET /api/admin/appointments/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.manager.StatusHistogram())
}

func (h *Handler) dispatch(r *http.Request, action notify.Action, appt *Appointment) {
	if h.notifier == nil {
		return
	}
	payload := notify.Payload{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		PatientName:   appt.PatientName,
		DoctorID:      appt.DoctorID,
		DoctorName:    appt.DoctorName,
	}
	if appt.ConfirmedSlot != nil {
		payload.Date = appt.ConfirmedSlot.Date
		payload.Time = appt.ConfirmedSlot.Time
	}
	h.notifier.Dispatch(r.Context(), action, payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	retryable := false
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrNoActiveProposal):
		status = http.StatusConflict
	case errors.Is(err, ErrUnknownPatient),
		errors.Is(err, ErrUnknownDoctor),
		errors.Is(err, ErrInvalidSlots),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrUnknownType):
		status = http.StatusBadRequest
	case transport.IsTransient(err):
		status = http.StatusServiceUnavailable
		retryable = true
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Retryable: retryable})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
