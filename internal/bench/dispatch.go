package bench

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/iobench/pkg/target"
)

// CallOutcome records one request attempt. Produced by a Dispatcher,
// consumed by the aggregator, never retained past the scenario run.
type CallOutcome struct {
	Success bool
	Elapsed time.Duration
	Err     error
}

// RunResult is the measurement of one (target, scenario) pair. Immutable
// once the run completes. Succeeded+Failed always equals the scenario's
// request count.
type RunResult struct {
	Target    Target
	Scenario  Scenario
	Total     time.Duration
	Outcomes  []CallOutcome
	Succeeded int
	Failed    int
}

// Dispatcher executes one scenario against one target and measures the
// wall clock strictly around the dispatch of its calls.
type Dispatcher interface {
	Run(ctx context.Context, tgt Target, sc Scenario) (RunResult, error)
}

// ForTarget selects the dispatch strategy matching the target's default
// mode.
func ForTarget(tgt Target) Dispatcher {
	if tgt.Mode == ModeConcurrent {
		return Concurrent{}
	}
	return Sequential{}
}

// Sequential issues calls one at a time on the calling goroutine, each
// blocking until its response or timeout. This is the condition under
// comparison, so it must not overlap calls.
type Sequential struct{}

func (Sequential) Run(ctx context.Context, tgt Target, sc Scenario) (RunResult, error) {
	if err := validateScenario(sc); err != nil {
		return RunResult{}, err
	}
	cl := target.New(tgt.Name, tgt.BaseURL, sc.CallTimeout())
	defer cl.Close()

	runCtx, cancel := context.WithTimeout(ctx, sc.RunTimeout())
	defer cancel()

	delay := sc.Delay.Seconds()
	outcomes := make([]CallOutcome, sc.Requests)

	start := time.Now()
	for i := range outcomes {
		if runCtx.Err() != nil {
			// Scenario timeout: remaining calls are marked failed
			// without being dispatched. Partial results are valid.
			outcomes[i] = CallOutcome{Err: fmt.Errorf("scenario timeout: %w", runCtx.Err())}
			continue
		}
		outcomes[i] = dispatchCall(runCtx, cl, sc, delay)
	}
	total := time.Since(start)

	return finalize(tgt, sc, total, outcomes), nil
}

// Concurrent fans out every call before awaiting any of them, joined with
// a wait-all barrier. A target concurrency cap batches the fan-out through
// a semaphore instead.
type Concurrent struct{}

func (Concurrent) Run(ctx context.Context, tgt Target, sc Scenario) (RunResult, error) {
	if err := validateScenario(sc); err != nil {
		return RunResult{}, err
	}
	cl := target.New(tgt.Name, tgt.BaseURL, sc.CallTimeout())
	defer cl.Close()

	runCtx, cancel := context.WithTimeout(ctx, sc.RunTimeout())
	defer cancel()

	delay := sc.Delay.Seconds()
	outcomes := make([]CallOutcome, sc.Requests)

	var sem chan struct{}
	if tgt.MaxConcurrency > 0 {
		sem = make(chan struct{}, tgt.MaxConcurrency)
	}

	var wg sync.WaitGroup
	start := time.Now()
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-runCtx.Done():
					outcomes[i] = CallOutcome{Err: fmt.Errorf("scenario timeout: %w", runCtx.Err())}
					return
				}
			}
			outcomes[i] = dispatchCall(runCtx, cl, sc, delay)
		}(i)
	}
	wg.Wait()
	total := time.Since(start)

	return finalize(tgt, sc, total, outcomes), nil
}

// dispatchCall issues a single benchmark request. A per-call timeout
// cancels only this call; failures are absorbed into the outcome, never
// retried. Retries would distort the latency comparison being measured.
func dispatchCall(ctx context.Context, cl *target.Client, sc Scenario, delay float64) CallOutcome {
	callCtx, cancel := context.WithTimeout(ctx, sc.CallTimeout())
	defer cancel()

	start := time.Now()
	_, err := cl.IOTest(callCtx, delay, 1)
	elapsed := time.Since(start)
	if err != nil {
		return CallOutcome{Elapsed: elapsed, Err: err}
	}
	return CallOutcome{Success: true, Elapsed: elapsed}
}

func validateScenario(sc Scenario) error {
	if sc.Requests <= 0 {
		return fmt.Errorf("scenario %q: request count must be positive, got %d", sc.Name, sc.Requests)
	}
	if sc.Delay < 0 {
		return fmt.Errorf("scenario %q: delay must be non-negative, got %s", sc.Name, sc.Delay)
	}
	return nil
}

func finalize(tgt Target, sc Scenario, total time.Duration, outcomes []CallOutcome) RunResult {
	r := RunResult{Target: tgt, Scenario: sc, Total: total, Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Success {
			r.Succeeded++
		} else {
			r.Failed++
		}
	}
	slog.Debug("scenario run finished",
		"target", tgt.Name,
		"scenario", sc.Name,
		"mode", tgt.Mode,
		"duration_ms", total.Milliseconds(),
		"succeeded", r.Succeeded,
		"failed", r.Failed,
	)
	return r
}
