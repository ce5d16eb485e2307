package bench

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Reporter functions are pure: they format results into strings and leave
// all printing to the caller.

// FormatComparison renders one scenario's side-by-side table.
func FormatComparison(c ComparisonResult) string {
	base := Reduce(c.Baseline)
	comp := Reduce(c.Comparison)
	throughputRatio := math.NaN()
	if base.Throughput > 0 {
		throughputRatio = comp.Throughput / base.Throughput
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %-22s %-20s %-20s %s\n", "Metric", c.Baseline.Target.Name, c.Comparison.Target.Name, "Improvement")
	fmt.Fprintf(&b, "  %s\n", strings.Repeat("-", 76))
	fmt.Fprintf(&b, "  %-22s %-20s %-20s %s\n", "Total Duration",
		fmtDuration(base.Duration), fmtDuration(comp.Duration), fmtRatio(c.Speedup))
	fmt.Fprintf(&b, "  %-22s %-20s %-20s %s\n", "Requests/sec",
		fmtRate(base.Throughput), fmtRate(comp.Throughput), fmtRatio(throughputRatio))
	fmt.Fprintf(&b, "  %-22s %-20s %-20s\n", "Success Rate",
		fmtPercent(base.SuccessRate), fmtPercent(comp.SuccessRate))
	for _, r := range []RunResult{c.Baseline, c.Comparison} {
		if r.Failed > 0 {
			fmt.Fprintf(&b, "  partial failures: %s %d/%d calls failed\n", r.Target.Name, r.Failed, len(r.Outcomes))
		}
	}
	return b.String()
}

// FormatSingleRun renders a run that has no partner to compare against.
func FormatSingleRun(r RunResult) string {
	m := Reduce(r)
	var b strings.Builder
	fmt.Fprintf(&b, "  %-22s duration=%s  requests/sec=%s  success=%s\n",
		r.Target.Name, fmtDuration(m.Duration), fmtRate(m.Throughput), fmtPercent(m.SuccessRate))
	if r.Failed > 0 {
		fmt.Fprintf(&b, "  partial failures: %s %d/%d calls failed\n", r.Target.Name, r.Failed, len(r.Outcomes))
	}
	return b.String()
}

// FormatUnavailable renders the row for a target that failed the health
// gate. Its scenarios were never attempted.
func FormatUnavailable(targetName string) string {
	return fmt.Sprintf("  %-22s unavailable\n", targetName)
}

// FormatSummary renders the final summary statistics and recommendation.
func FormatSummary(s SummaryReport) string {
	var b strings.Builder
	b.WriteString("Overall Summary\n")
	fmt.Fprintf(&b, "  %s\n", strings.Repeat("=", 76))
	fmt.Fprintf(&b, "  Average Speedup: %s\n", fmtRatio(s.AvgSpeedup))
	fmt.Fprintf(&b, "  Maximum Speedup: %s\n", fmtRatio(s.MaxSpeedup))
	fmt.Fprintf(&b, "  Minimum Speedup: %s\n", fmtRatio(s.MinSpeedup))
	tier := string(s.Tier)
	if math.IsNaN(s.AvgSpeedup) {
		tier = "n/a"
	}
	fmt.Fprintf(&b, "  Recommendation:  %s\n", tier)
	if len(s.Unavailable) > 0 {
		fmt.Fprintf(&b, "  Unavailable targets: %s\n", strings.Join(s.Unavailable, ", "))
	}
	degraded := degradedScenarios(s.Comparisons)
	if len(degraded) > 0 {
		fmt.Fprintf(&b, "  Scenarios with partial failures: %s\n", strings.Join(degraded, ", "))
	}
	return b.String()
}

func degradedScenarios(comps []ComparisonResult) []string {
	var names []string
	for _, c := range comps {
		if c.Baseline.Failed > 0 || c.Comparison.Failed > 0 {
			names = append(names, c.Scenario.Name)
		}
	}
	return names
}

// fmtRatio renders a speedup multiplier, or "n/a" when it is undefined.
func fmtRatio(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", f)
}

func fmtRate(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}

func fmtPercent(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", f*100)
}

func fmtDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
