package bench

import (
	"math"
	"time"
)

// minComparableDuration floors the divisor in ratio computations so a
// degenerate fast run can never yield an infinite speedup.
const minComparableDuration = time.Millisecond

// Metrics are the reduced measurements of a single run.
type Metrics struct {
	Duration    time.Duration
	Throughput  float64 // successful requests per second
	SuccessRate float64 // successful requests / request count
}

// Reduce converts raw run timings into comparable metrics.
func Reduce(r RunResult) Metrics {
	d := r.Total
	if d < minComparableDuration {
		d = minComparableDuration
	}
	m := Metrics{Duration: r.Total}
	m.Throughput = float64(r.Succeeded) / d.Seconds()
	if n := len(r.Outcomes); n > 0 {
		m.SuccessRate = float64(r.Succeeded) / float64(n)
	}
	return m
}

// ComparisonResult pairs one scenario's runs against the baseline and
// comparison targets. Speedup > 1 means the comparison target is faster.
type ComparisonResult struct {
	Scenario   Scenario
	Baseline   RunResult
	Comparison RunResult
	Speedup    float64
}

// Compare computes speedup as baseline duration over comparison duration,
// with the comparison duration floored at minComparableDuration.
func Compare(baseline, comparison RunResult) ComparisonResult {
	div := comparison.Total
	if div < minComparableDuration {
		div = minComparableDuration
	}
	return ComparisonResult{
		Scenario:   baseline.Scenario,
		Baseline:   baseline,
		Comparison: comparison,
		Speedup:    baseline.Total.Seconds() / div.Seconds(),
	}
}

// Tier is the qualitative recommendation derived from the mean speedup.
type Tier string

const (
	TierMinimal     Tier = "minimal difference"
	TierModerate    Tier = "moderate async benefit"
	TierSignificant Tier = "significant async benefit"
	TierExceptional Tier = "exceptional async benefit"
)

func tierFor(meanSpeedup float64) Tier {
	switch {
	case meanSpeedup > 10:
		return TierExceptional
	case meanSpeedup >= 5:
		return TierSignificant
	case meanSpeedup >= 2:
		return TierModerate
	default:
		return TierMinimal
	}
}

// SummaryReport is the terminal artifact of a benchmark run.
type SummaryReport struct {
	Comparisons []ComparisonResult
	AvgSpeedup  float64
	MaxSpeedup  float64
	MinSpeedup  float64
	Tier        Tier
	Unavailable []string // targets that failed the health gate
}

// Summarize reduces an ordered list of comparisons into the final report.
// With no comparisons (for example every comparison target was
// unavailable) the speedup statistics are NaN and render as "n/a".
func Summarize(comps []ComparisonResult, unavailable []string) SummaryReport {
	s := SummaryReport{
		Comparisons: comps,
		AvgSpeedup:  math.NaN(),
		MaxSpeedup:  math.NaN(),
		MinSpeedup:  math.NaN(),
		Tier:        TierMinimal,
		Unavailable: unavailable,
	}
	if len(comps) == 0 {
		return s
	}
	sum := 0.0
	s.MaxSpeedup = comps[0].Speedup
	s.MinSpeedup = comps[0].Speedup
	for _, c := range comps {
		sum += c.Speedup
		if c.Speedup > s.MaxSpeedup {
			s.MaxSpeedup = c.Speedup
		}
		if c.Speedup < s.MinSpeedup {
			s.MinSpeedup = c.Speedup
		}
	}
	s.AvgSpeedup = sum / float64(len(comps))
	s.Tier = tierFor(s.AvgSpeedup)
	return s
}
