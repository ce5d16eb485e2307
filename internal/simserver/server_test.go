package simserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func startUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Config{Role: RoleUpstream}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func startTarget(t *testing.T, role Role, upstreamURL string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(Config{Role: role, UpstreamURL: upstreamURL}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

type ioTestBody struct {
	Server string `json:"server"`
	Timing struct {
		TotalDuration     float64 `json:"total_duration"`
		RequestsPerSecond float64 `json:"requests_per_second"`
	} `json:"timing"`
	Results struct {
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"results"`
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	up := startUpstream(t)
	var body map[string]any
	if status := getJSON(t, up.URL+"/health", &body); status != http.StatusOK {
		t.Fatalf("health status = %d, want 200", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
}

func TestSlowIOSleepsForDelay(t *testing.T) {
	up := startUpstream(t)
	start := time.Now()
	var body map[string]any
	if status := getJSON(t, up.URL+"/slow-io?delay=0.05&request_id=r1", &body); status != http.StatusOK {
		t.Fatalf("slow-io status = %d, want 200", status)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("slow-io returned in %s, want >= 50ms", elapsed)
	}
	if body["request_id"] != "r1" {
		t.Errorf("request_id = %v, want r1", body["request_id"])
	}
}

func TestSlowIORejectsOutOfRangeDelay(t *testing.T) {
	up := startUpstream(t)
	for _, q := range []string{"delay=-1", "delay=11", "delay=abc"} {
		if status := getJSON(t, up.URL+"/slow-io?"+q, nil); status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, status)
		}
	}
}

func TestIOTestParameterValidation(t *testing.T) {
	up := startUpstream(t)
	tgt := startTarget(t, RoleSyncTarget, up.URL)
	for _, q := range []string{"concurrent=0", "concurrent=101", "concurrent=x", "delay=99"} {
		if status := getJSON(t, tgt.URL+"/io-test?"+q, nil); status != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, status)
		}
	}
}

func TestSyncTargetRelaysSequentially(t *testing.T) {
	up := startUpstream(t)
	tgt := startTarget(t, RoleSyncTarget, up.URL)

	start := time.Now()
	var body ioTestBody
	if status := getJSON(t, tgt.URL+"/io-test?delay=0.03&concurrent=5", &body); status != http.StatusOK {
		t.Fatalf("io-test status = %d, want 200", status)
	}
	elapsed := time.Since(start)

	if body.Results.Successful != 5 || body.Results.Failed != 0 {
		t.Fatalf("successful/failed = %d/%d, want 5/0", body.Results.Successful, body.Results.Failed)
	}
	// Sequential relay: 5 x 30ms lower bound.
	if elapsed < 150*time.Millisecond {
		t.Errorf("sync io-test took %s, want >= 150ms", elapsed)
	}
	if body.Timing.TotalDuration < 0.15 {
		t.Errorf("reported duration = %f, want >= 0.15", body.Timing.TotalDuration)
	}
	if body.Server != string(RoleSyncTarget) {
		t.Errorf("server = %q, want %q", body.Server, RoleSyncTarget)
	}
}

func TestAsyncTargetFansOut(t *testing.T) {
	up := startUpstream(t)
	tgt := startTarget(t, RoleAsyncTarget, up.URL)

	start := time.Now()
	var body ioTestBody
	if status := getJSON(t, tgt.URL+"/io-test?delay=0.05&concurrent=10", &body); status != http.StatusOK {
		t.Fatalf("io-test status = %d, want 200", status)
	}
	elapsed := time.Since(start)

	if body.Results.Successful != 10 {
		t.Fatalf("successful = %d, want 10", body.Results.Successful)
	}
	// Fan-out overlaps the waits: far below 10 x 50ms.
	if elapsed >= 300*time.Millisecond {
		t.Errorf("async io-test took %s, want well under N x delay", elapsed)
	}
}

func TestIOTestCountsUpstreamFailures(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	t.Cleanup(down.Close)

	tgt := startTarget(t, RoleAsyncTarget, down.URL)
	var body ioTestBody
	if status := getJSON(t, tgt.URL+"/io-test?delay=0&concurrent=4", &body); status != http.StatusOK {
		t.Fatalf("io-test status = %d, want 200", status)
	}
	if body.Results.Failed != 4 || body.Results.Successful != 0 {
		t.Errorf("successful/failed = %d/%d, want 0/4", body.Results.Successful, body.Results.Failed)
	}
}

func TestIOTestDefaultsToSingleCall(t *testing.T) {
	up := startUpstream(t)
	tgt := startTarget(t, RoleSyncTarget, up.URL)
	var body ioTestBody
	if status := getJSON(t, tgt.URL+"/io-test?delay=0", &body); status != http.StatusOK {
		t.Fatalf("io-test status = %d, want 200", status)
	}
	if got := body.Results.Successful + body.Results.Failed; got != 1 {
		t.Errorf("total calls = %d, want 1", got)
	}
}
