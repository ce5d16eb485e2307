package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/iobench/pkg/target"
)

// ErrUnhealthy reports a target that never confirmed readiness. Scenarios
// are not attempted against such a target: a still-warming service would
// produce misleadingly high latencies.
var ErrUnhealthy = errors.New("target never became healthy")

const healthProbeTimeout = 2 * time.Second

// WaitUntilHealthy polls GET /health until the target answers 2xx or the
// timeout elapses. Probe failures are expected during startup and only
// logged at debug level.
func WaitUntilHealthy(ctx context.Context, tgt Target, timeout, pollInterval time.Duration) error {
	cl := target.New(tgt.Name, tgt.BaseURL, healthProbeTimeout)
	defer cl.Close()

	deadline := time.Now().Add(timeout)
	for {
		probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
		hs, err := cl.Health(probeCtx)
		cancel()
		if err == nil {
			slog.Info("target healthy", "target", tgt.Name, "url", tgt.BaseURL, "status", hs.Status)
			return nil
		}
		slog.Debug("health probe failed", "target", tgt.Name, "error", err)

		if time.Now().After(deadline) {
			return fmt.Errorf("%s after %s: %w", tgt.Name, timeout, ErrUnhealthy)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", tgt.Name, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
