// Package mast is a thin client for the two MAST portal services the
// reconstruction pipeline needs: filtered observation search and
// product download. Calls are sequential and are not retried; MAST
// rate-limits rapid repeated requests and the caller is expected to
// simply try again later.
package mast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasoctpf/internal/logging"
)

const (
	// DefaultBaseURL is the production MAST portal.
	DefaultBaseURL = "https://mast.stsci.edu"

	invokePath   = "/api/v0/invoke"
	downloadPath = "/api/v0.1/Download/file"

	userAgent = "tasoctpf/1.0"
)

// Client talks to the MAST portal API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client against the given base URL (empty means
// production MAST) with the given overall request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// invokeRequest is the envelope for the portal invoke endpoint.
type invokeRequest struct {
	Service string         `json:"service"`
	Format  string         `json:"format"`
	Params  map[string]any `json:"params"`
}

// invokeResponse is the envelope MAST wraps every invoke result in.
type invokeResponse struct {
	Status string          `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// invoke posts a service request and decodes the data payload into out.
// An async EXECUTING status is reported as an error: the portal queues
// heavy queries and this tool deliberately does not poll or retry.
func (c *Client) invoke(ctx context.Context, service string, params map[string]any, out any) error {
	reqID := uuid.NewString()
	log := logging.Get(logging.CategoryArchive)
	timer := logging.StartTimer(logging.CategoryArchive, service)
	defer timer.Stop()

	payload, err := json.Marshal(invokeRequest{Service: service, Format: "json", Params: params})
	if err != nil {
		return fmt.Errorf("mast: encode %s request: %w", service, err)
	}
	form := url.Values{"request": {string(payload)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+invokePath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mast: build %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	log.Info("[req:%s] POST %s service=%s", reqID, invokePath, service)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("mast: %s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error("[req:%s] %s returned HTTP %d", reqID, service, resp.StatusCode)
		return fmt.Errorf("mast: %s: HTTP %d: %s", service, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("mast: %s: decode response: %w", service, err)
	}
	if envelope.Status != "COMPLETE" {
		log.Warn("[req:%s] %s status=%s msg=%q", reqID, service, envelope.Status, envelope.Msg)
		return fmt.Errorf("mast: %s: query status %s (%s); the portal is still working, try again shortly",
			service, envelope.Status, envelope.Msg)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("mast: %s: decode data: %w", service, err)
	}
	return nil
}
