package diagnosis

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/platform/pkg/logging"
)

func newChatHandler(t *testing.T, upstream http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	client := NewClient(srv.URL, "key", 5*time.Second, nil, logging.Default())
	return NewHandler(client, NewTranscriptStore(redisClient), logging.Default())
}

func TestDiagnoseEndpointRecordsTranscript(t *testing.T) {
	h := newChatHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{
			Conditions:     []Condition{{Name: "Tension headache", Probability: 0.6}},
			Recommendation: "Hydrate and rest",
			Urgency:        "low",
		})
	})

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(diagnoseRequest{
		SessionID: "session-9",
		Symptoms:  []string{"headache", "fatigue"},
		Age:       29,
		Sex:       "male",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/diagnose", &buf)
	rec := httptest.NewRecorder()
	h.Diagnose(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp diagnoseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "session-9", resp.SessionID)
	require.Equal(t, "Hydrate and rest", resp.Result.Recommendation)

	// Both chat turns landed in the transcript.
	hreq := httptest.NewRequest(http.MethodGet, "/api/chat/history?session_id=session-9", nil)
	hrec := httptest.NewRecorder()
	h.History(hrec, hreq)
	require.Equal(t, http.StatusOK, hrec.Code)

	var msgs []TranscriptMessage
	require.NoError(t, json.Unmarshal(hrec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Role)
	require.Equal(t, "headache, fatigue", msgs[0].Body)
	require.Equal(t, "assistant", msgs[1].Role)
}

func TestDiagnoseEndpointAssignsSession(t *testing.T) {
	h := newChatHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Response{Recommendation: "See a doctor", Urgency: "medium"})
	})

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(diagnoseRequest{Symptoms: []string{"fever"}})
	req := httptest.NewRequest(http.MethodPost, "/api/chat/diagnose", &buf)
	rec := httptest.NewRecorder()
	h.Diagnose(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp diagnoseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
}

func TestDiagnoseEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		upstream int
		want     int
		kind     ErrorKind
	}{
		{http.StatusTooManyRequests, http.StatusTooManyRequests, KindRateLimit},
		{http.StatusBadRequest, http.StatusBadRequest, KindInvalidInput},
		{http.StatusGatewayTimeout, http.StatusGatewayTimeout, KindTimeout},
		{http.StatusInternalServerError, http.StatusBadGateway, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h := newChatHandler(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.upstream)
			})

			var buf bytes.Buffer
			_ = json.NewEncoder(&buf).Encode(diagnoseRequest{Symptoms: []string{"fever"}})
			req := httptest.NewRequest(http.MethodPost, "/api/chat/diagnose", &buf)
			rec := httptest.NewRecorder()
			h.Diagnose(rec, req)

			require.Equal(t, tt.want, rec.Code)
			var resp chatError
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, string(tt.kind), resp.Kind)
		})
	}
}

func TestHistoryRequiresSession(t *testing.T) {
	h := newChatHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/api/chat/history", nil)
	rec := httptest.NewRecorder()
	h.History(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
