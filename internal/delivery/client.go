package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

// ErrorKind classifies a failed delivery attempt.
type ErrorKind string

const (
	// ErrorNetwork covers transport-level failures with no HTTP response.
	ErrorNetwork ErrorKind = "network"
	// ErrorServer covers HTTP responses outside [200, 300).
	ErrorServer ErrorKind = "server"
)

// DeliveryError describes why a send attempt failed. Status and Body are
// only set for server errors.
type DeliveryError struct {
	Kind   ErrorKind
	Status int
	Body   string
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Kind == ErrorServer {
		return fmt.Sprintf("server rejected payload with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client serializes payloads and performs single HTTP POSTs to the collector
// endpoint. It never retries; retry policy belongs to the caller.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// NewClient creates a delivery client. A nil httpClient gets a default with
// a 30 second timeout.
func NewClient(endpoint, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, token: token, httpClient: httpClient}
}

// Send POSTs one payload as JSON. A serialization failure returns a plain
// error; transport and HTTP failures return a *DeliveryError.
func (c *Client) Send(ctx context.Context, payload models.HealthPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Kind: ErrorNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &DeliveryError{Kind: ErrorServer, Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
