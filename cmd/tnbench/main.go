// Command tnbench drives the storage-benchmark harness: cobra command
// tree with a root set of shared flags, a "run" subcommand for a single
// invocation, and a "batch" subcommand for a run matrix (SPEC_FULL.md
// §6.3). The interactive menu itself is out of scope; only the flags and
// the config.RunConfig/config.BatchConfig they produce are specified.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nickf1227/tn-bench-go/internal/analytics"
	"github.com/nickf1227/tn-bench-go/internal/batch"
	"github.com/nickf1227/tn-bench-go/internal/config"
	"github.com/nickf1227/tn-bench-go/internal/model"
	"github.com/nickf1227/tn-bench-go/internal/platform"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	cfg := config.Default()
	var poolsCSV, diskModesCSV string

	root := &cobra.Command{
		Use:   "tnbench",
		Short: "ZFS pool and disk storage benchmark harness",
		Long: `tnbench drives a ZFS pool under configurable parallelism, samples
zpool iostat and arcstat telemetry concurrently, classifies the timeline
into workload phases, and produces per-phase statistics plus structured
JSON results.`,
	}

	root.PersistentFlags().StringVar(&poolsCSV, "pools", "all", `pool selection: "all", "none", or a comma-separated list`)
	root.PersistentFlags().IntVar(&cfg.ZFSIterations, "zfs-iterations", cfg.ZFSIterations, "pool benchmark iterations per thread count (0..100)")
	root.PersistentFlags().IntVar(&cfg.DiskIterations, "disk-iterations", cfg.DiskIterations, "disk benchmark iterations (0..100)")
	root.PersistentFlags().StringVar(&cfg.PoolBlockSize, "pool-block-size", cfg.PoolBlockSize, "dd block size and dataset record size (16K..16M)")
	root.PersistentFlags().StringVar(&cfg.DiskBlockSize, "disk-block-size", cfg.DiskBlockSize, "disk benchmark block size (4K,32K,128K,1M)")
	root.PersistentFlags().StringVar(&diskModesCSV, "disk-modes", strings.Join(cfg.DiskModes, ","), "comma-separated disk test modes: serial,parallel,seek_stress")
	root.PersistentFlags().IntVar(&cfg.SeekThreads, "seek-threads", cfg.SeekThreads, "threads per disk for seek_stress mode (1..32)")
	root.PersistentFlags().BoolVar(&cfg.Cleanup, "cleanup", cfg.Cleanup, "remove the test dataset after the run")
	root.PersistentFlags().BoolVar(&cfg.Unattended, "unattended", false, "skip all prompts (requires --confirm)")
	root.PersistentFlags().BoolVar(&cfg.Unattended, "auto", false, "alias for --unattended")
	root.PersistentFlags().BoolVar(&cfg.Confirm, "confirm", false, "mandatory safety acknowledgement for unattended or batch runs")
	root.PersistentFlags().StringVar(&cfg.Output, "output", cfg.Output, "output path for the JSON result")
	root.PersistentFlags().IntVar(&cfg.DownsampleFactor, "downsample-factor", cfg.DownsampleFactor, "keep every Nth telemetry sample on emit")
	root.PersistentFlags().BoolVar(&cfg.CollectZpoolIostat, "zpool-iostat", cfg.CollectZpoolIostat, "collect zpool iostat telemetry")
	root.PersistentFlags().BoolVar(&cfg.CollectArcstat, "arcstat", cfg.CollectArcstat, "collect arcstat telemetry")
	root.PersistentFlags().IntVar(&cfg.ZpoolIostatIntervalS, "zpool-iostat-interval", cfg.ZpoolIostatIntervalS, "telemetry sample interval in seconds")
	root.PersistentFlags().IntVar(&cfg.ZpoolIostatWarmup, "zpool-iostat-warmup", cfg.ZpoolIostatWarmup, "warm-up sample count before benchmarking starts")
	root.PersistentFlags().IntVar(&cfg.ZpoolIostatCooldown, "zpool-iostat-cooldown", cfg.ZpoolIostatCooldown, "cool-down sample count after benchmarking ends")

	var batchConfigPath string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "execute a single benchmark invocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.SelectedPools = splitCSV(poolsCSV)
			cfg.DiskModes = splitCSV(diskModesCSV)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runSingle(cmd.Context(), logger, cfg)
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "execute a matrix of runs from a batch config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchConfigPath == "" {
				return fmt.Errorf("--config is required for batch mode")
			}
			for _, name := range []string{"pools", "zfs-iterations", "disk-iterations", "pool-block-size", "disk-block-size", "disk-modes", "seek-threads", "cleanup", "downsample-factor", "zpool-iostat", "arcstat", "zpool-iostat-interval", "zpool-iostat-warmup", "zpool-iostat-cooldown"} {
				if cmd.Flags().Changed(name) {
					return fmt.Errorf("--config is mutually exclusive with --%s", name)
				}
			}
			if !cfg.Confirm {
				return fmt.Errorf("batch mode requires --confirm")
			}
			return runBatchMode(cmd.Context(), logger, batchConfigPath, cfg.Output)
		},
	}
	batchCmd.Flags().StringVar(&batchConfigPath, "config", "", "path to JSON or YAML batch config (mutually exclusive with inline overrides)")

	root.AddCommand(runCmd, batchCmd)
	return root
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runSingle(ctx context.Context, logger *log.Logger, cfg config.RunConfig) error {
	ctx, cancel := interruptContext()
	defer cancel()

	adapter := platform.NewAdapter()
	pipeline := batch.NewPipeline(adapter, logger)

	record, err := pipeline.RunOnce(ctx, cfg)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	analysis := analytics.Analyze(record)
	analysisJSON, err := jsonMarshalIndent(analysis)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	report := fmt.Sprintf("# tn-bench results\n\nOverall grade: %s\n", analysis.OverallGrade)

	if err := model.WriteResultFiles(cfg.Output, *record, analysisJSON, report, cfg.DownsampleFactor); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.Printf("results written to %s", cfg.Output)
	return nil
}

func runBatchMode(ctx context.Context, logger *log.Logger, configPath, outputBase string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	bc, err := config.LoadBatch(configPath)
	if err != nil {
		return fmt.Errorf("load batch config: %w", err)
	}

	adapter := platform.NewAdapter()
	pipeline := batch.NewPipeline(adapter, logger)

	summary, err := batch.RunBatch(ctx, pipeline, bc, outputBase)
	if err != nil {
		return fmt.Errorf("batch run: %w", err)
	}

	summaryJSON, err := jsonMarshalIndent(summary)
	if err != nil {
		return fmt.Errorf("marshal batch summary: %w", err)
	}

	summaryPath := model.TrimJSONExt(outputBase) + "_batch_summary.json"
	if err := writeFile(summaryPath, summaryJSON); err != nil {
		return fmt.Errorf("write batch summary: %w", err)
	}

	logger.Printf("batch complete: %d succeeded, %d failed; summary at %s", summary.SuccessfulRuns, summary.FailedRuns, summaryPath)
	return nil
}
