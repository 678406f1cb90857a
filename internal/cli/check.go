package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/streamdb/internal/db"
	"github.com/vvka-141/streamdb/internal/logging"
	"github.com/vvka-141/streamdb/internal/retry"
	"github.com/vvka-141/streamdb/pkg/streamdb"
)

type checkFlagValues struct {
	timeout time.Duration
}

var checkFlags checkFlagValues

func resetCheckFlags() {
	checkFlags = checkFlagValues{}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Acquire a connection once and report the outcome",
	Long: `Run a single acquisition cycle with the configured retry settings, ping the
resulting pool and close it.

A failed cycle arms the cooldown window of the coordination label only inside
this process, so consecutive check runs are never rejected by each other. Use
probe with --redis-url to exercise a cooldown shared between processes.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 0, "Abort the cycle after this long (0 = no limit)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, err := loadConnectionConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	factory := db.NewFactory(db.WithLogger(logger))
	coordinator := retry.NewCoordinator(factory, nil,
		retry.WithLogger(logger),
		retry.WithObserver(logging.NewEventLogger(logger)),
	)

	if verbose {
		printConfigSummary(os.Stderr, cfg, coordinator.ScopeKey(cfg))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if checkFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, checkFlags.timeout)
		defer cancel()
	}

	start := time.Now()
	handle, err := coordinator.Acquire(ctx, cfg)
	if err != nil {
		return err
	}
	defer handle.Close()

	if err := handle.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping after acquire: %w", streamdb.ErrConnectionFailed, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok driver=%s elapsed=%s\n", handle.Driver(), time.Since(start).Round(time.Millisecond))
	return nil
}
