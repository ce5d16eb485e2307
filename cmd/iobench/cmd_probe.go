package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/iobench/pkg/target"
)

var (
	probeUpstreamURL string
	probeSyncURL     string
	probeAsyncURL    string
	probeTimeout     time.Duration
)

var probeCmd = &cobra.Command{
	Use:          "probe",
	Short:        "Verify all configured servers are up before a full run",
	SilenceUsage: true,
	RunE:         runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.StringVar(&probeUpstreamURL, "upstream-url", envDefault("IOBENCH_UPSTREAM_URL", "http://localhost:8001"), "Upstream server URL (env: IOBENCH_UPSTREAM_URL)")
	f.StringVar(&probeSyncURL, "sync-url", envDefault("IOBENCH_SYNC_URL", "http://localhost:8002"), "Sync target URL (env: IOBENCH_SYNC_URL)")
	f.StringVar(&probeAsyncURL, "async-url", envDefault("IOBENCH_ASYNC_URL", "http://localhost:8003"), "Async target URL (env: IOBENCH_ASYNC_URL)")
	f.DurationVar(&probeTimeout, "timeout", 3*time.Second, "Per-server probe timeout")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	servers := []struct {
		name string
		url  string
	}{
		{"upstream", probeUpstreamURL},
		{"sync", probeSyncURL},
		{"async", probeAsyncURL},
	}

	fmt.Println("Checking server availability...")
	down := 0
	for _, srv := range servers {
		cl := target.New(srv.name, srv.url, probeTimeout)
		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		_, err := cl.Health(ctx)
		cancel()
		cl.Close()
		if err != nil {
			down++
			fmt.Printf("  FAIL %-10s %s (%v)\n", srv.name, srv.url, err)
			continue
		}
		fmt.Printf("  OK   %-10s %s\n", srv.name, srv.url)
	}
	if down > 0 {
		return fmt.Errorf("%d of %d servers unavailable", down, len(servers))
	}
	fmt.Println("All servers are up.")
	return nil
}
