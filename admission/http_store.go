package admission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPStore keeps cooldown records on an external usage-tracking service.
//
// Wire contract:
//
//	GET  {base}/cooldown/{name}  -> 200 {"time": "<RFC3339>"} | 404
//	POST {base}/cooldown/{name}  <- {"timestamp": "<RFC3339>"}
//
// The store reports transport and decode problems as errors; the gate's
// fail-open policy turns them into admissions.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// HTTPStoreOption configures an HTTPStore.
type HTTPStoreOption func(*HTTPStore)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPStoreOption {
	return func(s *HTTPStore) { s.client = client }
}

// NewHTTPStore creates a store talking to the service at baseURL.
func NewHTTPStore(baseURL string, opts ...HTTPStoreOption) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *HTTPStore) endpoint(name string) string {
	return s.baseURL + "/cooldown/" + url.PathEscape(name)
}

// LastUsed implements Store.
func (s *HTTPStore) LastUsed(ctx context.Context, name string) (time.Time, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(name), nil)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build cooldown request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("fetch cooldown record: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return time.Time{}, false, nil
	case resp.StatusCode != http.StatusOK:
		return time.Time{}, false, fmt.Errorf("cooldown service returned %d", resp.StatusCode)
	}

	var payload struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return time.Time{}, false, fmt.Errorf("decode cooldown record: %w", err)
	}
	if payload.Time == "" {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(time.RFC3339, payload.Time)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse cooldown timestamp %q: %w", payload.Time, err)
	}

	return t, true, nil
}

// Record implements Store.
func (s *HTTPStore) Record(ctx context.Context, name string, t time.Time) error {
	body, err := json.Marshal(map[string]string{
		"timestamp": t.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode cooldown record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build cooldown request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("record cooldown usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cooldown service returned %d", resp.StatusCode)
	}

	return nil
}
