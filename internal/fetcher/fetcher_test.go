package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	policy := DefaultPolicy()
	policy.Backoff = time.Millisecond
	policy.MinDelay = 0
	return New(context.Background(), zap.NewNop(), policy)
}

func TestGetCleanResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent header")
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("expected an accept-language header")
		}
		w.Write([]byte("<html><body>Animator at Studio</body></html>"))
	}))
	defer srv.Close()

	resp, err := testClient(t).Get(srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGetRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("listing page"))
	}))
	defer srv.Close()

	resp, err := testClient(t).Get(srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "listing page" {
		t.Fatalf("unexpected body: %q", resp.Body)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(t).Get(srv.URL, nil); err == nil {
		t.Fatalf("expected an error after exhausting retries")
	}
}

func TestGetRotatesAgentOnBotWall(t *testing.T) {
	agents := make(map[string]bool)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents[r.Header.Get("User-Agent")] = true
		if calls.Add(1) == 1 {
			w.Write([]byte("please verify you are a human"))
			return
		}
		w.Write([]byte("real content"))
	}))
	defer srv.Close()

	resp, err := testClient(t).Get(srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Body != "real content" {
		t.Fatalf("unexpected body: %q", resp.Body)
	}
	// The rotation draws from a shared pool, so equal agents are possible but
	// the retry itself must have happened.
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestGetNonRetryableStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := testClient(t).Get(srv.URL, nil); err == nil {
		t.Fatalf("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") != "animator" {
			t.Errorf("expected search param, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"data": [{"title": "3D Animator"}]}`))
	}))
	defer srv.Close()

	var payload struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	params := url.Values{"search": []string{"animator"}}
	if err := testClient(t).GetJSON(srv.URL, params, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Title != "3D Animator" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPaceEnforcesHostDelay(t *testing.T) {
	policy := DefaultPolicy()
	policy.MinDelay = 30 * time.Millisecond
	policy.MaxDelay = 40 * time.Millisecond
	c := New(context.Background(), zap.NewNop(), policy)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := c.Get(srv.URL, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < policy.MinDelay {
		t.Fatalf("expected at least %v between same-host requests, took %v", policy.MinDelay, elapsed)
	}
}
