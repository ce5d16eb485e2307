// Package bench drives identical IO-bound workloads against HTTP targets
// that differ only in how they service requests, and reduces the timings
// into a comparative report.
package bench

import "time"

// Mode selects the calling pattern used against a target.
type Mode string

const (
	// ModeSequential issues a scenario's calls one at a time, each
	// blocking until its response. Models a worker that cannot service
	// another request while waiting on IO.
	ModeSequential Mode = "sequential"
	// ModeConcurrent fans out all calls before awaiting any of them.
	// Models a worker that multiplexes IO waits.
	ModeConcurrent Mode = "concurrent"
)

// Target is one HTTP service under comparison. Immutable after startup.
type Target struct {
	Name    string
	BaseURL string
	Mode    Mode
	// MaxConcurrency caps fan-out for ModeConcurrent. 0 means all calls
	// go out at once; with a cap C the expected duration for N calls of
	// delay D is ceil(N/C) x D.
	MaxConcurrency int
}

// Scenario is a fixed (request count, per-request delay) workload applied
// identically to every target.
type Scenario struct {
	Name     string
	Requests int
	Delay    time.Duration
}

// CallTimeout bounds a single request: twice the simulated delay plus a
// fixed grace so zero-delay scenarios still have headroom.
func (s Scenario) CallTimeout() time.Duration {
	return 2*s.Delay + time.Second
}

// RunTimeout bounds a whole scenario run. Sized for the sequential worst
// case; concurrent runs finish far inside it.
func (s Scenario) RunTimeout() time.Duration {
	return time.Duration(s.Requests) * s.CallTimeout()
}

// Catalog returns the fixed, ordered benchmark scenarios. Callers must not
// mutate the returned slice between runs; Catalog hands out a fresh copy
// each time.
func Catalog() []Scenario {
	return []Scenario{
		{Name: "Single Request (Baseline)", Requests: 1, Delay: 500 * time.Millisecond},
		{Name: "Low Concurrency", Requests: 5, Delay: time.Second},
		{Name: "Medium Concurrency", Requests: 10, Delay: time.Second},
		{Name: "High Concurrency", Requests: 20, Delay: 500 * time.Millisecond},
		{Name: "Stress", Requests: 50, Delay: 300 * time.Millisecond},
	}
}
