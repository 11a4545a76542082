// Package metrics exposes prometheus instrumentation for the platform.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// AppointmentMetrics tracks lifecycle transitions and the simulated network.
type AppointmentMetrics struct {
	transitionsTotal *prometheus.CounterVec
	undoTotal        *prometheus.CounterVec
	transportLatency prometheus.Histogram
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment lifecycle transitions by action and outcome",
		}, []string{"action", "outcome"}),
		undoTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "undo_total",
			Help:      "Undo attempts by outcome",
		}, []string{"outcome"}),
		transportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediconnect",
			Subsystem: "appointments",
			Name:      "transport_latency_seconds",
			Help:      "Simulated network round-trip latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.undoTotal, m.transportLatency)
	return m
}

func (m *AppointmentMetrics) ObserveTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *AppointmentMetrics) ObserveUndo(outcome string) {
	if m == nil {
		return
	}
	m.undoTotal.WithLabelValues(outcome).Inc()
}

// ObserveTransportLatency implements transport.LatencyObserver.
func (m *AppointmentMetrics) ObserveTransportLatency(seconds float64) {
	if m == nil {
		return
	}
	m.transportLatency.Observe(seconds)
}

// DiagnosisMetrics tracks calls to the third-party diagnosis API.
type DiagnosisMetrics struct {
	requestsTotal *prometheus.CounterVec
}

func NewDiagnosisMetrics(reg prometheus.Registerer) *DiagnosisMetrics {
	m := &DiagnosisMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "diagnosis",
			Name:      "requests_total",
			Help:      "Diagnosis API calls by error kind (kind=none on success)",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal)
	return m
}

func (m *DiagnosisMetrics) ObserveRequest(kind string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(kind).Inc()
}

// NotifyMetrics counts dispatched notifications by action tag.
type NotifyMetrics struct {
	dispatchedTotal *prometheus.CounterVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		dispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediconnect",
			Subsystem: "notify",
			Name:      "dispatched_total",
			Help:      "Notifications dispatched by action and outcome",
		}, []string{"action", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.dispatchedTotal)
	return m
}

func (m *NotifyMetrics) ObserveDispatch(action, outcome string) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(action, outcome).Inc()
}
