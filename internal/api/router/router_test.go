package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediconnect/platform/internal/appointments"
	"github.com/mediconnect/platform/internal/directory"
	"github.com/mediconnect/platform/internal/notify"
	"github.com/mediconnect/platform/internal/transport"
	"github.com/mediconnect/platform/pkg/logging"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logging.Default()

	repo, err := directory.NewInMemoryRepository()
	require.NoError(t, err)
	auth := directory.NewAuthService(repo, "router-test-secret", time.Hour, logger)

	// No Load here: tests start from an empty collection instead of the
	// seeded demo appointments.
	manager := appointments.NewManager(
		appointments.NewMemoryStore(),
		directory.NewResolver(repo),
		transport.NewDirect(),
		nil,
		logger,
	)

	dispatcher := notify.NewDispatcher(nil, logger, notify.NewLogSink(logger))

	handler := New(&Config{
		Logger:             logger,
		Auth:               auth,
		DirectoryHandler:   directory.NewHandler(repo, auth, logger),
		AppointmentHandler: appointments.NewHandler(manager, dispatcher, logger),
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{
		"email":    email,
		"password": "mediconnect",
	})
	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresSession(t *testing.T) {
	srv := newTestServer(t)
	resp := call(t, srv, http.MethodGet, "/api/appointments", "", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	patientToken := login(t, srv, "maria.gonzalez@example.com")
	doctorToken := login(t, srv, "sarah.chen@mediconnect.example")

	// Find the doctor to book with.
	doctors := decode[[]directory.User](t, call(t, srv, http.MethodGet, "/api/doctors", patientToken, nil))
	var cardiologist directory.User
	for _, d := range doctors {
		if d.Specialty == "Cardiology" {
			cardiologist = d
		}
	}
	require.NotEmpty(t, cardiologist.ID)

	// Patient books.
	resp := call(t, srv, http.MethodPost, "/api/appointments", patientToken, map[string]any{
		"doctor_id": cardiologist.ID,
		"type":      "Consultation",
		"reason":    "Palpitations at rest",
		"slots": []map[string]string{
			{"date": "2030-09-15", "time": "10:00"},
			{"date": "2030-09-16", "time": "14:00"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decode[appointments.Appointment](t, resp)
	require.Equal(t, appointments.StatusRequested, appt.Status)

	// Doctor sees it pending and accepts the second slot.
	pending := decode[[]appointments.Appointment](t, call(t, srv, http.MethodGet, "/api/doctor/appointments/pending", doctorToken, nil))
	require.Len(t, pending, 1)

	resp = call(t, srv, http.MethodPost, "/api/appointments/"+appt.ID+"/accept", doctorToken, map[string]any{
		"slot": map[string]string{"date": "2030-09-16", "time": "14:00"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accepted := decode[appointments.Appointment](t, resp)
	require.Equal(t, appointments.StatusAccepted, accepted.Status)
	require.Equal(t, "2030-09-16", accepted.ConfirmedSlot.Date)

	// Patient sees it upcoming.
	upcoming := decode[[]appointments.Appointment](t, call(t, srv, http.MethodGet, "/api/patient/appointments/upcoming", patientToken, nil))
	require.NotEmpty(t, upcoming)

	// Undo rolls the acceptance back.
	resp = call(t, srv, http.MethodPost, "/api/appointments/undo", patientToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	undo := decode[map[string]bool](t, resp)
	require.True(t, undo["undone"])

	got := decode[appointments.Appointment](t, call(t, srv, http.MethodGet, "/api/appointments/"+appt.ID, patientToken, nil))
	require.Equal(t, appointments.StatusRequested, got.Status)
}

func TestRoleEnforcement(t *testing.T) {
	srv := newTestServer(t)
	patientToken := login(t, srv, "maria.gonzalez@example.com")
	doctorToken := login(t, srv, "sarah.chen@mediconnect.example")

	// Patients cannot hit doctor transitions.
	resp := call(t, srv, http.MethodPost, "/api/appointments/some-id/accept", patientToken, map[string]any{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Doctors cannot book.
	resp = call(t, srv, http.MethodPost, "/api/appointments", doctorToken, map[string]any{})
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Neither can touch admin endpoints.
	resp = call(t, srv, http.MethodGet, "/api/admin/appointments/stats", doctorToken, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminOverrideAndStats(t *testing.T) {
	srv := newTestServer(t)
	adminToken := login(t, srv, "avery.brooks@mediconnect.example")
	patientToken := login(t, srv, "maria.gonzalez@example.com")

	doctors := decode[[]directory.User](t, call(t, srv, http.MethodGet, "/api/doctors", patientToken, nil))
	require.NotEmpty(t, doctors)

	resp := call(t, srv, http.MethodPost, "/api/appointments", patientToken, map[string]any{
		"doctor_id": doctors[0].ID,
		"type":      "Lab Review",
		"reason":    "Review bloodwork",
		"slots":     []map[string]string{{"date": "2030-09-20", "time": "09:00"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decode[appointments.Appointment](t, resp)

	resp = call(t, srv, http.MethodPost, "/api/admin/appointments/"+appt.ID+"/status", adminToken, map[string]string{
		"status": "Completed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	overridden := decode[appointments.Appointment](t, resp)
	require.Equal(t, appointments.StatusCompleted, overridden.Status)

	stats := decode[map[string]int](t, call(t, srv, http.MethodGet, "/api/admin/appointments/stats", adminToken, nil))
	require.GreaterOrEqual(t, stats["Completed"], 1)
}
