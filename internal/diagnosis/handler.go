package diagnosis

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/mediconnect/platform/pkg/logging"
)

// Handler serves the symptom-checker chat: a request/response endpoint, a
// websocket session, and history lookup.
type Handler struct {
	client     *Client
	transcript *TranscriptStore
	logger     *logging.Logger
}

// NewHandler creates the chat handler.
func NewHandler(client *Client, transcript *TranscriptStore, logger *logging.Logger) *Handler {
	if client == nil {
		panic("diagnosis: client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{client: client, transcript: transcript, logger: logger}
}

type diagnoseRequest struct {
	SessionID string   `json:"session_id"`
	Symptoms  []string `json:"symptoms"`
	Age       int      `json:"age"`
	Sex       string   `json:"sex"`
	Language  string   `json:"language"`
}

type diagnoseResponse struct {
	SessionID string    `json:"session_id"`
	Result    *Response `json:"result"`
}

type chatError struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// Diagnose handles POST /api/chat/diagnose.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	h.record(r, req.SessionID, "user", strings.Join(req.Symptoms, ", "))

	result, err := h.client.Diagnose(r.Context(), Request{
		Symptoms: req.Symptoms,
		Patient:  PatientMeta{Age: req.Age, Sex: req.Sex},
		Language: req.Language,
	})
	if err != nil {
		h.writeAPIError(w, err)
		return
	}

	h.record(r, req.SessionID, "assistant", result.Recommendation)
	h.writeJSON(w, http.StatusOK, diagnoseResponse{SessionID: req.SessionID, Result: result})
}

// History handles GET /api/chat/history?session_id=...
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	messages, err := h.transcript.List(r.Context(), sessionID, transcriptMaxEntries)
	if err != nil {
		h.logger.Error("failed to load chat history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, messages)
}

// wsInbound is what the chat widget sends over the websocket.
type wsInbound struct {
	Type      string   `json:"type"` // "message" or "ping"
	SessionID string   `json:"session_id"`
	Symptoms  []string `json:"symptoms"`
	Age       int      `json:"age"`
	Sex       string   `json:"sex"`
	Language  string   `json:"language"`
}

// wsOutbound is what the server pushes back.
type wsOutbound struct {
	Type      string    `json:"type"` // "result", "session", "error", "pong"
	SessionID string    `json:"session_id,omitempty"`
	Result    *Response `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Retryable bool      `json:"retryable,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// WebSocket returns the chat session endpoint, GET /api/chat/ws.
func (h *Handler) WebSocket() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		defer conn.Close()
		sessionID := uuid.NewString()
		if err := websocket.JSON.Send(conn, wsOutbound{Type: "session", SessionID: sessionID}); err != nil {
			return
		}

		for {
			var in wsInbound
			if err := websocket.JSON.Receive(conn, &in); err != nil {
				return
			}
			if in.SessionID != "" {
				sessionID = in.SessionID
			}
			switch in.Type {
			case "ping":
				_ = websocket.JSON.Send(conn, wsOutbound{Type: "pong"})
			case "message":
				h.handleChatTurn(conn, sessionID, in)
			default:
				_ = websocket.JSON.Send(conn, wsOutbound{Type: "error", Error: fmt.Sprintf("unknown message type %q", in.Type)})
			}
		}
	})
}

func (h *Handler) handleChatTurn(conn *websocket.Conn, sessionID string, in wsInbound) {
	ctx := conn.Request().Context()
	if err := h.transcript.Append(ctx, sessionID, TranscriptMessage{
		Role: "user",
		Body: strings.Join(in.Symptoms, ", "),
	}); err != nil {
		h.logger.Error("failed to append chat transcript", "error", err)
	}

	result, err := h.client.Diagnose(ctx, Request{
		Symptoms: in.Symptoms,
		Patient:  PatientMeta{Age: in.Age, Sex: in.Sex},
		Language: in.Language,
	})
	if err != nil {
		var apiErr *APIError
		out := wsOutbound{Type: "error", SessionID: sessionID, Error: err.Error()}
		if errors.As(err, &apiErr) {
			out.Retryable = apiErr.Retryable()
		}
		_ = websocket.JSON.Send(conn, out)
		return
	}

	if err := h.transcript.Append(ctx, sessionID, TranscriptMessage{
		Role: "assistant",
		Body: result.Recommendation,
	}); err != nil {
		h.logger.Error("failed to append chat transcript", "error", err)
	}

	_ = websocket.JSON.Send(conn, wsOutbound{
		Type:      "result",
		SessionID: sessionID,
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) record(r *http.Request, sessionID, role, body string) {
	if body == "" {
		return
	}
	if err := h.transcript.Append(r.Context(), sessionID, TranscriptMessage{Role: role, Body: body}); err != nil {
		h.logger.Error("failed to append chat transcript", "error", err)
	}
}

func (h *Handler) writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		http.Error(w, "diagnosis failed", http.StatusInternalServerError)
		return
	}
	status := http.StatusBadGateway
	switch apiErr.Kind {
	case KindInvalidInput:
		status = http.StatusBadRequest
	case KindRateLimit:
		status = http.StatusTooManyRequests
	case KindTimeout:
		status = http.StatusGatewayTimeout
	}
	h.writeJSON(w, status, chatError{
		Error:     apiErr.Message,
		Kind:      string(apiErr.Kind),
		Retryable: apiErr.Retryable(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
