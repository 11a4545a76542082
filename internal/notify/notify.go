// Package notify fans out user-facing notifications after successful
// appointment transitions. Delivery is fire-and-forget: failures are logged
// and never surfaced back to the appointment flow.
package notify

import (
	"context"

	"github.com/mediconnect/platform/internal/observability/metrics"
	"github.com/mediconnect/platform/pkg/logging"
)

// Action tags the transition that triggered a notification.
type Action string

const (
	ActionRequest           Action = "request"
	ActionAccept            Action = "accept"
	ActionDecline           Action = "decline"
	ActionReschedulePropose Action = "reschedule_propose"
	ActionRescheduleAccept  Action = "reschedule_accept"
	ActionRescheduleDecline Action = "reschedule_decline"
	ActionCancelByPatient   Action = "cancel_patient"
	ActionCancelByDoctor    Action = "cancel_doctor"
	ActionComplete          Action = "complete"
	ActionNoShow            Action = "no_show"
	ActionOverride          Action = "override"
)

// Payload carries the appointment context a notification renders from.
type Payload struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	PatientName   string `json:"patient_name"`
	DoctorID      string `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
}

// Sink delivers one notification to a channel (toast feed, email, SMS).
type Sink interface {
	Deliver(ctx context.Context, action Action, payload Payload) error
}

// Dispatcher fans a notification out to every configured sink.
type Dispatcher struct {
	sinks   []Sink
	metrics *metrics.NotifyMetrics
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(m *metrics.NotifyMetrics, logger *logging.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{sinks: sinks, metrics: m, logger: logger}
}

// Dispatch sends to all sinks. Errors are logged per-sink and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, payload Payload) {
	for _, sink := range d.sinks {
		if err := sink.Deliver(ctx, action, payload); err != nil {
			d.metrics.ObserveDispatch(string(action), "error")
			d.logger.Error("notification delivery failed",
				"action", action,
				"appointment_id", payload.AppointmentID,
				"error", err,
			)
			continue
		}
		d.metrics.ObserveDispatch(string(action), "ok")
	}
}

// LogSink writes notifications to the structured log. The demo platform has
// no real delivery channel, so this stands in for the toast feed.
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

// Deliver implements Sink.
func (s *LogSink) Deliver(ctx context.Context, action Action, payload Payload) error {
	s.logger.Info("notification",
		"action", action,
		"appointment_id", payload.AppointmentID,
		"patient", payload.PatientName,
		"doctor", payload.DoctorName,
		"date", payload.Date,
		"time", payload.Time,
	)
	return nil
}
