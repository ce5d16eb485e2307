package bench

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestFormatComparison(t *testing.T) {
	base := runResult(10*time.Second, 10, 0)
	base.Target = Target{Name: "sync"}
	comp := runResult(time.Second, 10, 0)
	comp.Target = Target{Name: "async"}

	out := FormatComparison(Compare(base, comp))
	for _, want := range []string{"sync", "async", "Total Duration", "Requests/sec", "Success Rate", "10.00x"} {
		if !strings.Contains(out, want) {
			t.Errorf("comparison output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "partial failures") {
		t.Errorf("no failures, but output flags some:\n%s", out)
	}
}

func TestFormatComparisonFlagsPartialFailures(t *testing.T) {
	base := runResult(10*time.Second, 8, 2)
	base.Target = Target{Name: "sync"}
	comp := runResult(time.Second, 10, 0)
	comp.Target = Target{Name: "async"}

	out := FormatComparison(Compare(base, comp))
	if !strings.Contains(out, "partial failures: sync 2/10") {
		t.Errorf("output missing partial failure note:\n%s", out)
	}
}

func TestFormatUnavailable(t *testing.T) {
	out := FormatUnavailable("async")
	if !strings.Contains(out, "async") || !strings.Contains(out, "unavailable") {
		t.Errorf("unexpected unavailable row: %q", out)
	}
}

func TestFormatSummary(t *testing.T) {
	s := Summarize([]ComparisonResult{
		{Scenario: Scenario{Name: "Low"}, Speedup: 4, Baseline: runResult(time.Second, 4, 1)},
		{Scenario: Scenario{Name: "High"}, Speedup: 12},
	}, []string{"extra"})

	out := FormatSummary(s)
	for _, want := range []string{
		"Average Speedup: 8.00x",
		"Maximum Speedup: 12.00x",
		"Minimum Speedup: 4.00x",
		string(TierSignificant),
		"Unavailable targets: extra",
		"Scenarios with partial failures: Low",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSummaryEmptyRendersNA(t *testing.T) {
	out := FormatSummary(Summarize(nil, []string{"async"}))
	if !strings.Contains(out, "Average Speedup: n/a") {
		t.Errorf("empty summary should render n/a:\n%s", out)
	}
}

func TestFmtRatioSentinels(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "n/a"},
		{math.Inf(1), "n/a"},
		{math.Inf(-1), "n/a"},
		{-1, "n/a"},
		{9.876, "9.88x"},
	}
	for _, tc := range cases {
		if got := fmtRatio(tc.in); got != tc.want {
			t.Errorf("fmtRatio(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
