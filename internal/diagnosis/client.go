package diagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mediconnect/platform/internal/observability/metrics"
	"github.com/mediconnect/platform/pkg/logging"
)

const defaultTimeout = 20 * time.Second

// Client calls the third-party diagnosis endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.DiagnosisMetrics
	logger     *logging.Logger
}

// NewClient creates a diagnosis API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, m *metrics.DiagnosisMetrics, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger,
	}
}

// Diagnose posts a symptom list and returns the diagnosis payload. Failures
// come back as *APIError with a retryability flag.
func (c *Client) Diagnose(ctx context.Context, req Request) (*Response, error) {
	if len(req.Symptoms) == 0 {
		apiErr := &APIError{Kind: KindInvalidInput, Message: "at least one symptom is required"}
		c.metrics.ObserveRequest(string(apiErr.Kind))
		return nil, apiErr
	}
	if req.Language == "" {
		req.Language = "en"
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("diagnosis: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/diagnose", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("diagnosis: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		apiErr := classifyTransport(err)
		c.metrics.ObserveRequest(string(apiErr.Kind))
		c.logger.Error("diagnosis call failed", "kind", apiErr.Kind, "error", err)
		return nil, apiErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		apiErr := classifyTransport(err)
		c.metrics.ObserveRequest(string(apiErr.Kind))
		return nil, apiErr
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := classifyStatus(resp.StatusCode, strings.TrimSpace(string(body)))
		c.metrics.ObserveRequest(string(apiErr.Kind))
		c.logger.Error("diagnosis call rejected",
			"kind", apiErr.Kind,
			"status", resp.StatusCode,
		)
		return nil, apiErr
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		apiErr := &APIError{Kind: KindUnknown, Message: "undecodable response: " + err.Error()}
		c.metrics.ObserveRequest(string(apiErr.Kind))
		return nil, apiErr
	}

	c.metrics.ObserveRequest("none")
	return &out, nil
}

// IsRetryable reports whether err is a diagnosis API error worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}
