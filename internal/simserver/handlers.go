package simserver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	maxDelaySeconds = 10.0
	maxConcurrent   = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"server":    string(s.cfg.Role),
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
	})
}

// handleSlowIO simulates a slow IO-bound dependency (an LLM call, an
// external API) by sleeping for the requested delay.
func (s *Server) handleSlowIO(w http.ResponseWriter, r *http.Request) {
	delay, err := parseDelay(r, 1.0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := r.URL.Query().Get("request_id")

	select {
	case <-time.After(secondsToDuration(delay)):
	case <-r.Context().Done():
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    fmt.Sprintf("IO operation completed after %g seconds", delay),
		"delay":      delay,
		"timestamp":  float64(time.Now().UnixNano()) / 1e9,
		"request_id": requestID,
	})
}

// handleIOTest performs `concurrent` calls against the upstream /slow-io
// endpoint, sequentially or fanned out depending on the server's role, and
// reports the timing.
func (s *Server) handleIOTest(w http.ResponseWriter, r *http.Request) {
	delay, err := parseDelay(r, 1.0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	concurrent, err := parseConcurrent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var successful, failed int
	start := time.Now()
	if s.cfg.Role == RoleAsyncTarget {
		successful, failed = s.relayConcurrent(r.Context(), delay, concurrent)
	} else {
		successful, failed = s.relaySequential(r.Context(), delay, concurrent)
	}
	total := time.Since(start).Seconds()

	rps := 0.0
	if total > 0 {
		rps = float64(concurrent) / total
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"server": string(s.cfg.Role),
		"timing": map[string]any{
			"total_duration":      total,
			"requests_per_second": rps,
		},
		"results": map[string]any{
			"successful": successful,
			"failed":     failed,
		},
	})
}

// relaySequential blocks on each upstream call before starting the next.
func (s *Server) relaySequential(ctx context.Context, delay float64, n int) (successful, failed int) {
	for i := 0; i < n; i++ {
		if s.callUpstream(ctx, delay, fmt.Sprintf("%s-req-%d", s.cfg.Role, i)) == nil {
			successful++
		} else {
			failed++
		}
	}
	return successful, failed
}

// relayConcurrent puts all upstream calls in flight before awaiting any.
func (s *Server) relayConcurrent(ctx context.Context, delay float64, n int) (successful, failed int) {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.callUpstream(ctx, delay, fmt.Sprintf("%s-req-%d", s.cfg.Role, i))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err == nil {
			successful++
		} else {
			failed++
		}
	}
	return successful, failed
}

func (s *Server) callUpstream(ctx context.Context, delay float64, requestID string) error {
	callCtx, cancel := context.WithTimeout(ctx, secondsToDuration(delay)+5*time.Second)
	defer cancel()

	q := url.Values{}
	q.Set("delay", strconv.FormatFloat(delay, 'f', -1, 64))
	q.Set("request_id", requestID)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, s.cfg.UpstreamURL+"/slow-io?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	resp, err := s.upstream.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return nil
}

func parseDelay(r *http.Request, def float64) (float64, error) {
	raw := r.URL.Query().Get("delay")
	if raw == "" {
		return def, nil
	}
	delay, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("delay must be a number")
	}
	if delay < 0 || delay > maxDelaySeconds {
		return 0, fmt.Errorf("delay must be between 0 and %g", maxDelaySeconds)
	}
	return delay, nil
}

func parseConcurrent(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("concurrent")
	if raw == "" {
		return 1, nil
	}
	concurrent, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("concurrent must be an integer")
	}
	if concurrent < 1 || concurrent > maxConcurrent {
		return 0, fmt.Errorf("concurrent must be between 1 and %d", maxConcurrent)
	}
	return concurrent, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
