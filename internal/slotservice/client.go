// Package slotservice is the HTTP client for the venue slot service, the
// backend that owns slot records. The editor never writes authoritative
// state itself; every mutation goes through this client.
package slotservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"floorplan-editor/internal/slot"
)

const (
	defaultBaseURL     = "http://localhost:8080/api/v1"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// Client wraps HTTP access to the slot service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// APIError is returned when the slot service responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "slot service error"
	}
	return fmt.Sprintf("slot service error: %s: %s", e.Status, e.Body)
}

// IsNotFound reports whether the error represents a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// NewClient creates a client for the service at baseURL. If httpClient is
// nil, a default client is used. apiKey may be empty for unauthenticated
// local services.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

// SetMaxAttempts overrides how many times a request is tried in total.
func (c *Client) SetMaxAttempts(n int) {
	if n >= 1 {
		c.maxAttempts = n
	}
}

// ListSlots fetches the slots of a venue, optionally narrowed by filters.
func (c *Client) ListSlots(ctx context.Context, venueID string, filters slot.ListFilters) ([]slot.Slot, error) {
	if venueID == "" {
		return nil, errors.New("venue id is required")
	}
	endpoint := fmt.Sprintf("%s/venues/%s/slots", c.baseURL, url.PathEscape(venueID))

	q := url.Values{}
	if filters.Zone != "" && filters.Zone != slot.ZoneAll {
		q.Set("zone", filters.Zone)
	}
	if filters.Status != "" {
		q.Set("status", string(filters.Status))
	}
	if filters.Type != "" {
		q.Set("type", string(filters.Type))
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var slots []slot.Slot
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// CreateSlot creates a slot and returns the authoritative record with the
// server-assigned ID.
func (c *Client) CreateSlot(ctx context.Context, venueID string, data slot.Slot) (slot.Slot, error) {
	if venueID == "" {
		return slot.Slot{}, errors.New("venue id is required")
	}
	endpoint := fmt.Sprintf("%s/venues/%s/slots", c.baseURL, url.PathEscape(venueID))

	var created slot.Slot
	if err := c.doJSON(ctx, http.MethodPost, endpoint, data, &created); err != nil {
		return slot.Slot{}, err
	}
	if created.ID == "" {
		return slot.Slot{}, errors.New("service returned slot without id")
	}
	return created, nil
}

// UpdateSlot applies a partial update and returns the updated record.
func (c *Client) UpdateSlot(ctx context.Context, venueID, slotID string, patch slot.Patch) (slot.Slot, error) {
	if venueID == "" || slotID == "" {
		return slot.Slot{}, errors.New("venue id and slot id are required")
	}
	if patch.IsZero() {
		return slot.Slot{}, errors.New("empty patch")
	}
	endpoint := fmt.Sprintf("%s/venues/%s/slots/%s",
		c.baseURL, url.PathEscape(venueID), url.PathEscape(slotID))

	var updated slot.Slot
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, patch, &updated); err != nil {
		return slot.Slot{}, err
	}
	return updated, nil
}

// DeleteSlot removes a slot. Deleting an already-absent slot is not an
// error; the desired end state holds either way.
func (c *Client) DeleteSlot(ctx context.Context, venueID, slotID string) error {
	if venueID == "" || slotID == "" {
		return errors.New("venue id and slot id are required")
	}
	endpoint := fmt.Sprintf("%s/venues/%s/slots/%s",
		c.baseURL, url.PathEscape(venueID), url.PathEscape(slotID))

	err := c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// doJSON performs one request with retry on transient failures. Mutating
// requests carry a per-call X-Request-ID so the service can deduplicate a
// retried request that already succeeded.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, in, out any) error {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	requestID := ""
	if method != http.MethodGet {
		requestID = uuid.NewString()
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if requestID != "" {
			req.Header.Set("X-Request-ID", requestID)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			if c.shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request failed: %w", err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
			_ = res.Body.Close()

			apiErr := &APIError{
				StatusCode: res.StatusCode,
				Status:     res.Status,
				Endpoint:   endpoint,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if c.shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			return nil
		}

		dec := json.NewDecoder(res.Body)
		err = dec.Decode(out)
		_ = res.Body.Close()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode response from %s: %w", endpoint, err)
		}
		return nil
	}

	return errors.New("request failed after retries")
}

func (c *Client) shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func (c *Client) shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	cap := c.retryCap
	if cap <= 0 {
		cap = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= cap/2 {
			return cap
		}
		delay *= 2
	}
	if delay > cap {
		return cap
	}
	return delay
}
