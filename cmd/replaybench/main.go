// Command replaybench drives a replay table with concurrent actors and a
// learner and reports throughput.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *Config

var rootCmd = &cobra.Command{
	Use:   "replaybench",
	Short: "Load generator for prioritized replay tables",
	Long: `replaybench runs N actor goroutines that add synthetic trajectories to a
single replay table while a learner samples batches and writes back
priorities, the way an off-policy training loop would.

Every flag can also be set through an environment variable with the
REPLAYBENCH_ prefix, e.g. REPLAYBENCH_BATCH_SIZE=512.`,
	SilenceUsage: true,
	RunE:         runBench,
}

func init() {
	cfg = Default()
	f := rootCmd.Flags()

	// Table settings
	f.Int("capacity", cfg.Capacity, "Table capacity in records")
	f.Int("lag", cfg.Lag, "N-step offset between linked records")
	f.Float64("alpha", cfg.Alpha, "Priority sharpening exponent")
	f.Float64("uniform-probability", cfg.UniformProbability, "Fraction of uniform draws")
	f.String("sampler", cfg.Sampler, "Sampler (uniform, prioritized, sequence)")
	f.Float64("trace-decay", cfg.TraceDecay, "Priority propagation decay per hop (sequence sampler)")
	f.Int("trace-depth", cfg.TraceDepth, "Priority propagation depth (sequence sampler)")
	f.String("compression", cfg.Compression, "Vector compression (none, lz4, zstd)")
	f.Int64("memory-limit", cfg.MemoryLimit, "Payload memory limit in bytes (0 for unlimited)")

	// Actor settings
	f.Int("actors", cfg.Actors, "Number of concurrent actors")
	f.Int("episode-length", cfg.EpisodeLength, "Steps per episode")
	f.Int("obs-dim", cfg.ObsDim, "Observation size")
	f.Int("act-dim", cfg.ActDim, "Action size")
	f.Float64("steps-per-second", cfg.StepsPerSecond, "Per-actor step rate (0 for unlimited)")

	// Learner settings
	f.Int("batch-size", cfg.BatchSize, "Learner batch size")
	f.Float64("beta-start", cfg.BetaStart, "Importance weight exponent at start")
	f.Float64("beta-end", cfg.BetaEnd, "Importance weight exponent at end")

	// Run settings
	f.Duration("duration", cfg.Duration, "Benchmark duration")
	f.Duration("report-interval", cfg.ReportInterval, "Progress report interval")
	f.Int64("seed", cfg.Seed, "Random seed")
	f.String("metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address (e.g. :9090)")
	f.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Bind flags to viper for environment variable support
	_ = viper.BindPFlags(f)
	viper.SetEnvPrefix("REPLAYBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func runBench(cmd *cobra.Command, args []string) error {
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := Run(ctx, cfg)
	if err != nil {
		return err
	}
	summary.Print(cmd.OutOrStdout())
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
