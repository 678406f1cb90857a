package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/streamdb/internal/cooldown"
	"github.com/vvka-141/streamdb/internal/db"
	"github.com/vvka-141/streamdb/internal/logging"
	"github.com/vvka-141/streamdb/internal/metrics"
	"github.com/vvka-141/streamdb/internal/retry"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

type probeFlagValues struct {
	workers     int
	cycles      int
	interval    time.Duration
	key         string
	redisURL    string
	redisPrefix string
	metricsAddr string
}

var probeFlags probeFlagValues

func resetProbeFlags() {
	probeFlags = probeFlagValues{
		workers:     4,
		cycles:      3,
		interval:    time.Second,
		redisPrefix: cooldown.DefaultRedisPrefix,
	}
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run concurrent workers that share one cooldown window",
	Long: `Start --workers stages, each with its own coordinator, that repeatedly acquire
a connection with the same configuration. Stages configured with the same
coordination label share one cooldown window: once a stage exhausts its
attempts, the others fail fast until the window closes.

With --redis-url the window lives in Redis and is shared with every other
probe pointed at the same server. With --metrics-addr the acquisition
counters are served at /metrics in the Prometheus text format.`,
	Example: `  streamdb probe --workers 8 --cycles 5 --key lookup-db
  streamdb probe --redis-url redis://localhost:6379/0 --metrics-addr :9102`,
	Args: cobra.NoArgs,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	resetProbeFlags()

	probeCmd.Flags().IntVar(&probeFlags.workers, "workers", probeFlags.workers, "Number of concurrent stages")
	probeCmd.Flags().IntVar(&probeFlags.cycles, "cycles", probeFlags.cycles, "Acquisition cycles per stage")
	probeCmd.Flags().DurationVar(&probeFlags.interval, "interval", probeFlags.interval, "Pause between two cycles of a stage")
	probeCmd.Flags().StringVar(&probeFlags.key, "key", "", "Coordination label (overrides global_retry_delay_label)")
	probeCmd.Flags().StringVar(&probeFlags.redisURL, "redis-url", "", "Keep the cooldown window in Redis (redis://host:port/db)")
	probeCmd.Flags().StringVar(&probeFlags.redisPrefix, "redis-prefix", probeFlags.redisPrefix, "Key prefix for the Redis cooldown window")
	probeCmd.Flags().StringVar(&probeFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// probeSummary counts cycle outcomes across all workers.
type probeSummary struct {
	acquired  atomic.Int64
	cooldown  atomic.Int64
	exhausted atomic.Int64
	failed    atomic.Int64
}

func (s *probeSummary) record(err error) {
	switch {
	case err == nil:
		s.acquired.Add(1)
	case errors.Is(err, streamdb.ErrCooldownActive):
		s.cooldown.Add(1)
	case errors.Is(err, streamdb.ErrExhausted):
		s.exhausted.Add(1)
	default:
		s.failed.Add(1)
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	if probeFlags.workers < 1 || probeFlags.cycles < 1 {
		return fmt.Errorf("invalid argument: --workers and --cycles must be at least 1")
	}

	verbose := getVerboseFlag(cmd)

	cfg, err := loadConnectionConfig(cmd)
	if err != nil {
		return err
	}
	if probeFlags.key != "" {
		cfg.CoordinationKey = probeFlags.key
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.NewConsoleLogger(verbose)

	var store streamdb.CooldownStore = cooldown.NewMemoryStore()
	if probeFlags.redisURL != "" {
		redisStore, err := cooldown.DialRedisStore(ctx, probeFlags.redisURL, probeFlags.redisPrefix)
		if err != nil {
			return fmt.Errorf("%w: %w", streamdb.ErrInvalidConfig, err)
		}
		defer redisStore.Close()
		store = redisStore
	}

	reg := prometheus.NewRegistry()
	observer := streamdb.Observers(logging.NewEventLogger(logger), metrics.NewObserver(reg))

	if probeFlags.metricsAddr != "" {
		stop, err := serveMetrics(probeFlags.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if verbose {
		printConfigSummary(os.Stderr, cfg, cfg.CoordinationKey)
	}

	factory := db.NewFactory(db.WithLogger(logger))
	summary := &probeSummary{}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < probeFlags.workers; i++ {
		workerID := uuid.NewString()
		coordinator := retry.NewCoordinator(factory, store,
			retry.WithLogger(logger),
			retry.WithObserver(observer),
		)

		g.Go(func() error {
			return probeWorker(gctx, workerID, coordinator, cfg, summary, logger)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "acquired=%d cooldown=%d exhausted=%d failed=%d\n",
		summary.acquired.Load(), summary.cooldown.Load(), summary.exhausted.Load(), summary.failed.Load())

	if summary.acquired.Load() == 0 {
		return fmt.Errorf("%w: no cycle acquired a connection", streamdb.ErrConnectionFailed)
	}
	return nil
}

// probeWorker runs the configured number of cycles for one stage. Only
// fatal errors stop the group; cycle failures are counted.
func probeWorker(ctx context.Context, id string, c *retry.Coordinator, cfg *streamdb.ConnectionConfig, summary *probeSummary, logger streamdb.Logger) error {
	for cycle := 1; cycle <= probeFlags.cycles; cycle++ {
		handle, err := c.Acquire(ctx, cfg)
		summary.record(err)

		switch {
		case err == nil:
			logger.Verbose("cycle acquired", "worker", id, "cycle", cycle, "driver", handle.Driver())
			_ = handle.Close()
		case errors.Is(err, streamdb.ErrDriverLoad), errors.Is(err, streamdb.ErrInvalidConfig),
			errors.Is(err, streamdb.ErrUnsupportedAuthMethod), errors.Is(err, context.Canceled):
			return err
		default:
			logger.Verbose("cycle failed", "worker", id, "cycle", cycle, "error", err)
		}

		if cycle == probeFlags.cycles || probeFlags.interval <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(probeFlags.interval):
		}
	}
	return nil
}

// serveMetrics exposes reg on addr and returns a function that stops the server.
func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.ConsoleLogger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Slog().Handler(), slog.LevelError),
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
