package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/iobench/internal/simserver"
)

var (
	serveUpstreamAddr  string
	serveSyncAddr      string
	serveAsyncAddr     string
	serveUpstreamURL   string
	serveSyncMaxConns  int
	serveAsyncMaxConns int
	shutdownTimeout    = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the simulated upstream and target servers locally",
	Long: `Starts three HTTP servers: the upstream slow-IO simulator and the two
targets under comparison. The sync target relays to the upstream one call
at a time through a bounded listener; the async target fans its calls out.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveUpstreamAddr, "upstream-addr", envDefault("IOBENCH_UPSTREAM_ADDR", ":8001"), "Upstream server listen address (env: IOBENCH_UPSTREAM_ADDR)")
	f.StringVar(&serveSyncAddr, "sync-addr", envDefault("IOBENCH_SYNC_ADDR", ":8002"), "Sync target listen address (env: IOBENCH_SYNC_ADDR)")
	f.StringVar(&serveAsyncAddr, "async-addr", envDefault("IOBENCH_ASYNC_ADDR", ":8003"), "Async target listen address (env: IOBENCH_ASYNC_ADDR)")
	f.StringVar(&serveUpstreamURL, "upstream-url", envDefault("IOBENCH_UPSTREAM_URL", "http://localhost:8001"), "Upstream URL the targets relay to (env: IOBENCH_UPSTREAM_URL)")
	f.IntVar(&serveSyncMaxConns, "sync-max-conns", 16, "Connection bound for the sync target's worker pool")
	f.IntVar(&serveAsyncMaxConns, "async-max-conns", 256, "Connection bound for the async target")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	servers := []*simserver.Server{
		simserver.New(simserver.Config{
			Addr: serveUpstreamAddr,
			Role: simserver.RoleUpstream,
		}),
		simserver.New(simserver.Config{
			Addr:        serveSyncAddr,
			Role:        simserver.RoleSyncTarget,
			UpstreamURL: serveUpstreamURL,
			MaxConns:    serveSyncMaxConns,
		}),
		simserver.New(simserver.Config{
			Addr:        serveAsyncAddr,
			Role:        simserver.RoleAsyncTarget,
			UpstreamURL: serveUpstreamURL,
			MaxConns:    serveAsyncMaxConns,
		}),
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *simserver.Server) {
			if err := s.Start(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}(s)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("simserver failed: %w", err)
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error; forcing close", "error", err)
			if closeErr := s.Close(); closeErr != nil {
				slog.Error("force close error", "error", closeErr)
			}
		}
	}
	slog.Info("iobench servers stopped")
	return nil
}
