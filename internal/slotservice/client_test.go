package slotservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"floorplan-editor/internal/slot"
)

func fastClient(serverURL string) *Client {
	c := NewClient(nil, serverURL, "")
	c.retryBase = time.Millisecond
	c.retryCap = 4 * time.Millisecond
	return c
}

func TestListSlotsBuildsQuery(t *testing.T) {
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"s1","label":"T1"},{"id":"s2","label":"T2"}]`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	slots, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{
		Zone:   "patio",
		Status: slot.StatusAvailable,
	})
	if err != nil {
		t.Fatalf("ListSlots returned error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if gotPath != "/venues/venue-1/slots" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotQuery != "status=available&zone=patio" {
		t.Errorf("unexpected query: %s", gotQuery)
	}
}

func TestListSlotsZoneAllOmitsZoneParam(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if _, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{Zone: slot.ZoneAll}); err != nil {
		t.Fatalf("ListSlots returned error: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("expected no query params, got %q", gotQuery)
	}
}

func TestCreateSlotReturnsServerRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var in slot.Slot
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		in.ID = "srv-42"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	created, err := client.CreateSlot(context.Background(), "venue-1", slot.Slot{Label: "T9"})
	if err != nil {
		t.Fatalf("CreateSlot returned error: %v", err)
	}
	if created.ID != "srv-42" {
		t.Errorf("expected server-assigned id, got %q", created.ID)
	}
	if created.Label != "T9" {
		t.Errorf("expected label preserved, got %q", created.Label)
	}
}

func TestCreateSlotRejectsMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label":"T9"}`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if _, err := client.CreateSlot(context.Background(), "venue-1", slot.Slot{Label: "T9"}); err == nil {
		t.Fatal("expected error for response without id")
	}
}

func TestUpdateSlotSendsOnlySetFields(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"s1","x":250}`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	x := 250.0
	updated, err := client.UpdateSlot(context.Background(), "venue-1", "s1", slot.Patch{X: &x})
	if err != nil {
		t.Fatalf("UpdateSlot returned error: %v", err)
	}
	if updated.X != 250 {
		t.Errorf("expected updated x=250, got %v", updated.X)
	}
	if _, ok := gotBody["x"]; !ok {
		t.Error("expected x in patch body")
	}
	if _, ok := gotBody["label"]; ok {
		t.Error("unset field label should be omitted from patch body")
	}
}

func TestUpdateSlotRejectsEmptyPatch(t *testing.T) {
	client := fastClient("http://unused.invalid")
	if _, err := client.UpdateSlot(context.Background(), "venue-1", "s1", slot.Patch{}); err == nil {
		t.Fatal("expected error for empty patch")
	}
}

func TestDeleteSlotToleratesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		http.Error(w, "no such slot", http.StatusNotFound)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if err := client.DeleteSlot(context.Background(), "venue-1", "gone"); err != nil {
		t.Fatalf("expected 404 delete to succeed, got %v", err)
	}
}

func TestRetriesTransientServerError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if _, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestSetMaxAttemptsLimitsRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	client.SetMaxAttempts(1)
	if _, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{}); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestDoesNotRetryClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, `{"error":"label must not be empty"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	_, err := client.CreateSlot(context.Background(), "venue-1", slot.Slot{})
	if err == nil {
		t.Fatal("expected error on 400")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("expected response body in error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestRequestIDStableAcrossRetries(t *testing.T) {
	var (
		attempts int32
		mu       sync.Mutex
		ids      []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		mu.Unlock()
		if atomic.AddInt32(&attempts, 1) < 2 {
			http.Error(w, "try again", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if err := client.DeleteSlot(context.Background(), "venue-1", "s1"); err != nil {
		t.Fatalf("DeleteSlot returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(ids))
	}
	if ids[0] == "" {
		t.Error("expected X-Request-ID on mutating request")
	}
	if ids[0] != ids[1] {
		t.Errorf("request id changed across retries: %q vs %q", ids[0], ids[1])
	}
}

func TestGetRequestsCarryNoRequestID(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := fastClient(server.URL)
	if _, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{}); err != nil {
		t.Fatalf("ListSlots returned error: %v", err)
	}
	if gotID != "" {
		t.Errorf("GET should not carry X-Request-ID, got %q", gotID)
	}
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(nil, server.URL, "sekrit")
	if _, err := client.ListSlots(context.Background(), "venue-1", slot.ListFilters{}); err != nil {
		t.Fatalf("ListSlots returned error: %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
}
