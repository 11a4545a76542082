package diagnosis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mediconnect/platform/pkg/logging"
)

func newClientFor(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second, nil, logging.Default())
}

func TestDiagnoseSuccess(t *testing.T) {
	var gotAuth string
	var gotReq Request
	client := newClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/diagnose", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(Response{
			Conditions:     []Condition{{Name: "Common cold", Probability: 0.72}},
			Recommendation: "Rest and fluids",
			Urgency:        "low",
		})
	})

	resp, err := client.Diagnose(context.Background(), Request{
		Symptoms: []string{"cough", "runny nose"},
		Patient:  PatientMeta{Age: 34, Sex: "female"},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, "en", gotReq.Language, "language defaults to english")
	require.Len(t, resp.Conditions, 1)
	require.Equal(t, "low", resp.Urgency)
}

func TestDiagnoseStatusTaxonomy(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  ErrorKind
		retryable bool
	}{
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusRequestTimeout, KindTimeout, true},
		{http.StatusGatewayTimeout, KindTimeout, true},
		{http.StatusBadRequest, KindInvalidInput, false},
		{http.StatusUnprocessableEntity, KindInvalidInput, false},
		{http.StatusInternalServerError, KindNetwork, true},
		{http.StatusBadGateway, KindNetwork, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newClientFor(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream says no", tt.status)
			})

			_, err := client.Diagnose(context.Background(), Request{Symptoms: []string{"fever"}})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.wantKind, apiErr.Kind)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.retryable, apiErr.Retryable())
			require.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestDiagnoseEmptySymptoms(t *testing.T) {
	client := newClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request should reach the upstream")
	})

	_, err := client.Diagnose(context.Background(), Request{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindInvalidInput, apiErr.Kind)
	require.False(t, apiErr.Retryable())
}

func TestDiagnoseTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "", 20*time.Millisecond, nil, logging.Default())

	_, err := client.Diagnose(context.Background(), Request{Symptoms: []string{"fever"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindTimeout, apiErr.Kind)
	require.True(t, apiErr.Retryable())
}

func TestDiagnoseUnreachableHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", time.Second, nil, logging.Default())

	_, err := client.Diagnose(context.Background(), Request{Symptoms: []string{"fever"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindNetwork, apiErr.Kind)
	require.True(t, apiErr.Retryable())
}

func TestDiagnoseUndecodableBody(t *testing.T) {
	client := newClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	})

	_, err := client.Diagnose(context.Background(), Request{Symptoms: []string{"fever"}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, KindUnknown, apiErr.Kind)
	require.False(t, apiErr.Retryable())
}
