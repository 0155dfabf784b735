package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPDelivery POSTs the executor's Result as JSON to the callback URL,
// matching original_source/service_clockML.py::service_s_execute's
// requests.post(request_data["C"], json=response) call.
type HTTPDelivery struct {
	client *http.Client
}

// NewHTTPDelivery creates a Delivery with a bounded per-call timeout; the
// core does not wait on the callback receiver's response beyond that
// (spec.md §6: "The core does not wait on this").
func NewHTTPDelivery(timeout time.Duration) *HTTPDelivery {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPDelivery{client: &http.Client{Timeout: timeout}}
}

// Deliver POSTs result to callbackURL as JSON.
func (d *HTTPDelivery) Deliver(ctx context.Context, callbackURL string, result Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("callback %s returned status %d", callbackURL, resp.StatusCode)
	}
	return nil
}
