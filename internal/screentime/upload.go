package screentime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Uploader posts daily usage summaries to the screentime endpoint.
type Uploader struct {
	endpoint   string
	httpClient *http.Client
}

// NewUploader creates an uploader for the given endpoint.
func NewUploader(endpoint string) *Uploader {
	return &Uploader{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Send posts one summary. The response body is not interpreted; any status
// outside 2xx is an error.
func (u *Uploader) Send(ctx context.Context, summary Summary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("screentime send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("screentime endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// UploadDay summarizes, sends, and then clears one day's sessions. The rows
// are deleted only after a successful send so a failed upload can be
// retried.
func (u *Uploader) UploadDay(ctx context.Context, store *Store, day time.Time) (Summary, error) {
	summary, err := store.Summarize(day)
	if err != nil {
		return Summary{}, err
	}
	if err := u.Send(ctx, summary); err != nil {
		return Summary{}, err
	}
	if err := store.ClearDay(day); err != nil {
		return summary, fmt.Errorf("summary sent but sessions not cleared: %w", err)
	}
	return summary, nil
}
