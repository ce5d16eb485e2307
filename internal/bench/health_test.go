package bench

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitUntilHealthyImmediate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	t.Cleanup(srv.Close)

	tgt := Target{Name: "up", BaseURL: srv.URL}
	if err := WaitUntilHealthy(context.Background(), tgt, time.Second, 10*time.Millisecond); err != nil {
		t.Fatalf("WaitUntilHealthy: %v", err)
	}
}

func TestWaitUntilHealthyRetriesUntilReady(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	tgt := Target{Name: "warming", BaseURL: srv.URL}
	if err := WaitUntilHealthy(context.Background(), tgt, 2*time.Second, 5*time.Millisecond); err != nil {
		t.Fatalf("WaitUntilHealthy: %v", err)
	}
	if calls.Load() < 3 {
		t.Errorf("probe calls = %d, want >= 3", calls.Load())
	}
}

func TestWaitUntilHealthyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "never ready", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	tgt := Target{Name: "never", BaseURL: srv.URL}
	err := WaitUntilHealthy(context.Background(), tgt, 50*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("err = %v, want ErrUnhealthy", err)
	}
}

func TestWaitUntilHealthyUnreachable(t *testing.T) {
	// Port 0 is never listening.
	tgt := Target{Name: "gone", BaseURL: "http://127.0.0.1:1"}
	err := WaitUntilHealthy(context.Background(), tgt, 50*time.Millisecond, 10*time.Millisecond)
	if !errors.Is(err, ErrUnhealthy) {
		t.Fatalf("err = %v, want ErrUnhealthy", err)
	}
}
