package receiver

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/healthrelay/healthrelay-cli/internal/models"
)

func testConfig() Config {
	return Config{
		Host:   "127.0.0.1",
		Port:   8787,
		Token:  "test-token",
		Format: "json",
	}
}

func testPayload(deviceID, timestamp string) models.HealthPayload {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return models.HealthPayload{
		DeviceID:  deviceID,
		Timestamp: timestamp,
		HourlyMetrics: []models.MetricSample{
			{
				Category: models.CategoryStepCount,
				Value:    models.SingleValue(1200),
				Interval: models.NewInterval(start, start.Add(time.Hour)),
			},
		},
	}
}

func postPayload(t *testing.T, server *Server, payload models.HealthPayload, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/health/import", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	if mutate != nil {
		mutate(req)
	}
	rr := httptest.NewRecorder()
	server.handleImport(rr, req)
	return rr
}

func TestHandleImport_ValidPayload(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	rr := postPayload(t, server, testPayload("dev-1", "2026-03-10T13:00:00Z"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}

	receipt := resp["receipt"].(map[string]any)
	if receipt["deviceId"] != "dev-1" {
		t.Errorf("receipt deviceId = %v, want dev-1", receipt["deviceId"])
	}
	sections := receipt["sections"].([]any)
	if len(sections) != 1 || sections[0] != "hourlyMetrics" {
		t.Errorf("receipt sections = %v, want [hourlyMetrics]", sections)
	}

	if buf.Len() == 0 {
		t.Error("accepted payload was not written")
	}
}

func TestHandleImport_InvalidToken(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	rr := postPayload(t, server, testPayload("dev-1", "2026-03-10T13:00:00Z"), func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong-token")
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleImport_MissingToken(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	rr := postPayload(t, server, testPayload("dev-1", "2026-03-10T13:00:00Z"), func(r *http.Request) {
		r.Header.Del("Authorization")
	})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestHandleImport_InvalidJSON(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	req := httptest.NewRequest(http.MethodPost, "/v1/health/import", bytes.NewReader([]byte("not valid json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")

	rr := httptest.NewRecorder()
	server.handleImport(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleImport_InvalidPayload(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	// Empty envelope fails validation, so nothing is written.
	rr := postPayload(t, server, models.HealthPayload{
		DeviceID:  "dev-1",
		Timestamp: "2026-03-10T13:00:00Z",
	}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if buf.Len() != 0 {
		t.Error("rejected payload was written")
	}
}

func TestHandleImport_MethodNotAllowed(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	req := httptest.NewRequest(http.MethodGet, "/v1/health/import", nil)
	rr := httptest.NewRecorder()
	server.handleImport(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleImport_DuplicateByPayloadIdentity(t *testing.T) {
	var buf bytes.Buffer
	server := NewServer(testConfig(), NewStdoutWriter(&buf, "json"))

	// No Idempotency-Key header: identity comes from deviceId@timestamp.
	payload := testPayload("dev-1", "2026-03-10T13:00:00Z")

	rr1 := postPayload(t, server, payload, nil)
	if rr1.Code != http.StatusOK {
		t.Fatalf("first request: expected status 200, got %d", rr1.Code)
	}
	var resp1 map[string]any
	json.Unmarshal(rr1.Body.Bytes(), &resp1)
	if resp1["receipt"].(map[string]any)["duplicate"] == true {
		t.Error("first request should not be marked as duplicate")
	}

	rr2 := postPayload(t, server, payload, nil)
	if rr2.Code != http.StatusOK {
		t.Fatalf("second request: expected status 200, got %d", rr2.Code)
	}
	var resp2 map[string]any
	json.Unmarshal(rr2.Body.Bytes(), &resp2)
	if resp2["receipt"].(map[string]any)["duplicate"] != true {
		t.Error("second request should be marked as duplicate")
	}

	// A different logical timestamp is a fresh identity.
	rr3 := postPayload(t, server, testPayload("dev-1", "2026-03-10T14:00:00Z"), nil)
	var resp3 map[string]any
	json.Unmarshal(rr3.Body.Bytes(), &resp3)
	if resp3["receipt"].(map[string]any)["duplicate"] == true {
		t.Error("third request should not be marked as duplicate")
	}

	stats := server.GetStats()
	if stats.TotalReceived != 3 {
		t.Errorf("expected 3 total received, got %d", stats.TotalReceived)
	}
	if stats.TotalDuplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.TotalDuplicates)
	}
}

type flakyWriter struct {
	failures int
	written  int
}

func (w *flakyWriter) Write(payload *models.HealthPayload) error {
	if w.failures > 0 {
		w.failures--
		return errors.New("disk full")
	}
	w.written++
	return nil
}

func (w *flakyWriter) Close() error {
	return nil
}

func TestHandleImport_RetryAfterWriteFailureIsNotDuplicate(t *testing.T) {
	writer := &flakyWriter{failures: 1}
	server := NewServer(testConfig(), writer)

	payload := testPayload("dev-1", "2026-03-10T13:00:00Z")

	rr1 := postPayload(t, server, payload, nil)
	if rr1.Code != http.StatusInternalServerError {
		t.Fatalf("first request: expected status 500, got %d", rr1.Code)
	}

	// The failed write must not have claimed the idempotency key.
	rr2 := postPayload(t, server, payload, nil)
	if rr2.Code != http.StatusOK {
		t.Fatalf("retry: expected status 200, got %d: %s", rr2.Code, rr2.Body.String())
	}
	var resp map[string]any
	json.Unmarshal(rr2.Body.Bytes(), &resp)
	if resp["receipt"].(map[string]any)["duplicate"] == true {
		t.Error("retry after write failure should not be marked as duplicate")
	}
	if writer.written != 1 {
		t.Errorf("expected 1 successful write, got %d", writer.written)
	}
}

func TestHandleImport_GzipPayload(t *testing.T) {
	var buf bytes.Buffer
	config := testConfig()
	config.AcceptGzip = true
	server := NewServer(config, NewStdoutWriter(&buf, "json"))

	body, _ := json.Marshal(testPayload("dev-1", "2026-03-10T13:00:00Z"))

	var compressed bytes.Buffer
	gzWriter := gzip.NewWriter(&compressed)
	gzWriter.Write(body)
	gzWriter.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/health/import", &compressed)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Authorization", "Bearer test-token")

	rr := httptest.NewRecorder()
	server.handleImport(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestIdempotencyStore(t *testing.T) {
	store := NewIdempotencyStore()

	if store.Exists("key1") {
		t.Error("key1 should not exist initially")
	}

	store.Mark("key1")
	if !store.Exists("key1") {
		t.Error("key1 should exist after marking")
	}

	if store.Exists("key2") {
		t.Error("key2 should not exist")
	}
}
