package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/user/iobench/internal/bench"
	"github.com/user/iobench/internal/observability"
)

var (
	runSyncURL        string
	runAsyncURL       string
	runHealthTimeout  time.Duration
	runHealthInterval time.Duration
	runCap            int
	runDispatch       string
	runSave           string
	runOtel           bool
	runOtelEndpoint   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite against the configured targets",
	Long: `Health-checks every target, runs the fixed scenario catalog against each,
and prints a per-scenario comparison plus an overall summary.

A target that never becomes healthy is reported as unavailable; the other
targets are still benchmarked. The command exits non-zero only when no
target could be health-checked at all.`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runSyncURL, "sync-url", envDefault("IOBENCH_SYNC_URL", "http://localhost:8002"), "Base URL of the blocking target (env: IOBENCH_SYNC_URL)")
	f.StringVar(&runAsyncURL, "async-url", envDefault("IOBENCH_ASYNC_URL", "http://localhost:8003"), "Base URL of the non-blocking target (env: IOBENCH_ASYNC_URL)")
	f.DurationVar(&runHealthTimeout, "health-timeout", 30*time.Second, "How long to wait for a target to become healthy")
	f.DurationVar(&runHealthInterval, "health-interval", 500*time.Millisecond, "Interval between health probes")
	f.IntVar(&runCap, "cap", 0, "Fan-out concurrency cap for the non-blocking target (0 = uncapped)")
	f.StringVar(&runDispatch, "dispatch", "auto", "Dispatch strategy override: auto, sequential, concurrent")
	f.StringVar(&runSave, "save", "", "Write the summary as JSON to this file")
	f.BoolVar(&runOtel, "otel", false, "Enable OpenTelemetry tracing of the run")
	f.StringVar(&runOtelEndpoint, "otel-endpoint", "", "OTLP/HTTP endpoint (default: stdout exporter)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	shutdownTracer, err := observability.InitTracer(runOtel, "iobench", runOtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("tracer shutdown", "error", err)
		}
	}()

	targets := []bench.Target{
		{Name: "sync", BaseURL: runSyncURL, Mode: bench.ModeSequential},
		{Name: "async", BaseURL: runAsyncURL, Mode: bench.ModeConcurrent, MaxConcurrency: runCap},
	}
	switch runDispatch {
	case "auto":
	case "sequential", "concurrent":
		for i := range targets {
			targets[i].Mode = bench.Mode(runDispatch)
		}
	default:
		return fmt.Errorf("invalid --dispatch %q (expected auto, sequential, concurrent)", runDispatch)
	}
	baseline, comparison := targets[0], targets[1]

	healthy := make(map[string]bool, len(targets))
	var unavailable []string
	for _, tgt := range targets {
		if err := bench.WaitUntilHealthy(ctx, tgt, runHealthTimeout, runHealthInterval); err != nil {
			slog.Warn("target unavailable, skipping its scenarios", "target", tgt.Name, "error", err)
			unavailable = append(unavailable, tgt.Name)
			continue
		}
		healthy[tgt.Name] = true
	}
	if len(healthy) == 0 {
		return fmt.Errorf("no target could be health-checked (tried %s, %s)", baseline.BaseURL, comparison.BaseURL)
	}

	fmt.Println(strings.Repeat("=", 78))
	fmt.Println("IO-Bound Benchmark: blocking vs non-blocking request handling")
	fmt.Println(strings.Repeat("=", 78))

	tracer := otel.Tracer("iobench")
	var comparisons []bench.ComparisonResult

	for i, sc := range bench.Catalog() {
		fmt.Printf("\nScenario %d: %s (requests=%d, delay=%s)\n", i+1, sc.Name, sc.Requests, sc.Delay)

		results := make(map[string]bench.RunResult, len(targets))
		for _, tgt := range targets {
			if !healthy[tgt.Name] {
				fmt.Print(bench.FormatUnavailable(tgt.Name))
				continue
			}
			runCtx, span := tracer.Start(ctx, "scenario.run", trace.WithAttributes(
				attribute.String("target", tgt.Name),
				attribute.String("scenario", sc.Name),
				attribute.Int("requests", sc.Requests),
			))
			res, err := bench.ForTarget(tgt).Run(runCtx, tgt, sc)
			span.End()
			if err != nil {
				return err
			}
			results[tgt.Name] = res
		}

		if healthy[baseline.Name] && healthy[comparison.Name] {
			c := bench.Compare(results[baseline.Name], results[comparison.Name])
			comparisons = append(comparisons, c)
			fmt.Print(bench.FormatComparison(c))
		} else {
			for _, tgt := range targets {
				if healthy[tgt.Name] {
					fmt.Print(bench.FormatSingleRun(results[tgt.Name]))
				}
			}
		}
	}

	summary := bench.Summarize(comparisons, unavailable)
	fmt.Println()
	fmt.Print(bench.FormatSummary(summary))

	if runSave != "" {
		if err := saveSummary(runSave, summary); err != nil {
			return fmt.Errorf("save summary: %w", err)
		}
		slog.Info("summary saved", "path", runSave)
	}
	return nil
}

// ── summary persistence (single JSON document, no datastore) ────────────────

type saveMachineInfo struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	CPUs     int    `json:"cpus"`
	Hostname string `json:"hostname"`
}

type saveScenario struct {
	Name              string  `json:"name"`
	Requests          int     `json:"requests"`
	DelaySeconds      float64 `json:"delay_seconds"`
	BaselineSeconds   float64 `json:"baseline_seconds"`
	ComparisonSeconds float64 `json:"comparison_seconds"`
	Speedup           float64 `json:"speedup"`
	BaselineFailed    int     `json:"baseline_failed,omitempty"`
	ComparisonFailed  int     `json:"comparison_failed,omitempty"`
}

type saveData struct {
	Timestamp   string          `json:"timestamp"`
	Machine     saveMachineInfo `json:"machine"`
	Scenarios   []saveScenario  `json:"scenarios"`
	AvgSpeedup  float64         `json:"avg_speedup"`
	MaxSpeedup  float64         `json:"max_speedup"`
	MinSpeedup  float64         `json:"min_speedup"`
	Tier        string          `json:"tier"`
	Unavailable []string        `json:"unavailable,omitempty"`
}

func saveSummary(path string, s bench.SummaryReport) error {
	hostname, _ := os.Hostname()
	data := saveData{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Machine: saveMachineInfo{
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			CPUs:     runtime.NumCPU(),
			Hostname: hostname,
		},
		AvgSpeedup:  finiteOrZero(s.AvgSpeedup),
		MaxSpeedup:  finiteOrZero(s.MaxSpeedup),
		MinSpeedup:  finiteOrZero(s.MinSpeedup),
		Tier:        string(s.Tier),
		Unavailable: s.Unavailable,
	}
	for _, c := range s.Comparisons {
		data.Scenarios = append(data.Scenarios, saveScenario{
			Name:              c.Scenario.Name,
			Requests:          c.Scenario.Requests,
			DelaySeconds:      c.Scenario.Delay.Seconds(),
			BaselineSeconds:   c.Baseline.Total.Seconds(),
			ComparisonSeconds: c.Comparison.Total.Seconds(),
			Speedup:           finiteOrZero(c.Speedup),
			BaselineFailed:    c.Baseline.Failed,
			ComparisonFailed:  c.Comparison.Failed,
		})
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(out, '\n'), 0o644)
}

// finiteOrZero keeps NaN/Inf out of the JSON encoder, which rejects them.
func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
