// Package batch implements the Batch Runner (component C8): executing
// either a single invocation's pipeline or a full run matrix (a shared
// "global" RunConfig overlaid per run), with dataset safety, per-run
// result isolation and a batch summary record.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nickf1227/tn-bench-go/internal/analytics"
	"github.com/nickf1227/tn-bench-go/internal/config"
	"github.com/nickf1227/tn-bench-go/internal/coordinator"
	"github.com/nickf1227/tn-bench-go/internal/dataset"
	"github.com/nickf1227/tn-bench-go/internal/diskbench"
	"github.com/nickf1227/tn-bench-go/internal/model"
	"github.com/nickf1227/tn-bench-go/internal/platform"
	"github.com/nickf1227/tn-bench-go/internal/workload"
)

// nowFunc is indirected through a var so tests can stub timestamps without
// depending on wall-clock time; production code leaves this at its default.
var nowFunc = time.Now

// Pipeline executes the same sequence for one RunConfig, whether invoked
// standalone or as one batch entry.
type Pipeline struct {
	adapter *platform.Adapter
	logger  *log.Logger
}

func NewPipeline(adapter *platform.Adapter, logger *log.Logger) *Pipeline {
	return &Pipeline{adapter: adapter, logger: logger}
}

// RunOnce drives the full single-invocation pipeline: resolve selected
// pools, run each through the coordinator, run the disk phase, assemble a
// BenchmarkRecord (spec.md §4.7/§9 "data flow").
func (p *Pipeline) RunOnce(ctx context.Context, cfg config.RunConfig) (*model.BenchmarkRecord, error) {
	start := nowFunc()

	sysInfo, err := p.adapter.QuerySystemInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("query system info: %w", err)
	}

	record := &model.BenchmarkRecord{
		SchemaVersion: model.SchemaVersion,
		System:        sysInfo,
		Metadata: model.Metadata{
			StartTimestamp:  float64(start.Unix()),
			BenchmarkConfig: cfg,
		},
	}

	if err := p.runPoolPhase(ctx, cfg, sysInfo, record); err != nil {
		return nil, err
	}
	if err := p.runDiskPhase(ctx, cfg, sysInfo, record); err != nil {
		p.logger.Printf("WARN: disk phase failed: %v", err)
	}

	end := nowFunc()
	record.Metadata.EndTimestamp = float64(end.Unix())
	record.Metadata.DurationMinutes = end.Sub(start).Minutes()

	return record, nil
}

func (p *Pipeline) runPoolPhase(ctx context.Context, cfg config.RunConfig, sysInfo model.SystemInfo, record *model.BenchmarkRecord) error {
	if cfg.ZFSIterations <= 0 || isNone(cfg.SelectedPools) {
		return nil
	}

	allPools, err := p.adapter.QueryPools(ctx)
	if err != nil {
		return fmt.Errorf("query pools: %w", err)
	}

	selected := resolvePools(cfg.SelectedPools, allPools)

	datasets := dataset.New(p.adapter, p.logger)
	driver := workload.New(p.logger)

	coordCfg := coordinator.Config{
		ZFSIterations:       cfg.ZFSIterations,
		PoolBlockSize:       cfg.PoolBlockSize,
		PoolBlockSizeBytes:  blockSizeBytes(cfg.PoolBlockSize),
		CollectZpoolIostat:  cfg.CollectZpoolIostat,
		ZpoolIostatInterval: cfg.ZpoolIostatIntervalS,
		ZpoolIostatWarmup:   cfg.ZpoolIostatWarmup,
		ZpoolIostatCooldown: cfg.ZpoolIostatCooldown,
		CollectArcstat:      cfg.CollectArcstat,
		Cleanup:             cfg.Cleanup,
		ForceCleanup:        cfg.ForceCleanup,
		RetryCleanup:        cfg.RetryCleanup,
		DownsampleFactor:    cfg.DownsampleFactor,
	}
	coord := coordinator.New(p.adapter, datasets, driver, p.logger, coordCfg)

	for _, pool := range selected {
		result := coord.Run(ctx, pool, sysInfo.LogicalCores)
		record.Pools = append(record.Pools, result)
	}

	return nil
}

func (p *Pipeline) runDiskPhase(ctx context.Context, cfg config.RunConfig, sysInfo model.SystemInfo, record *model.BenchmarkRecord) error {
	if cfg.DiskIterations <= 0 {
		return nil
	}

	disks, err := p.adapter.QueryDisks(ctx)
	if err != nil {
		return fmt.Errorf("query disks: %w", err)
	}

	targets := make([]diskbench.Target, 0, len(disks))
	for _, d := range disks {
		targets = append(targets, diskbench.Target{
			Name:      d.Name,
			Model:     d.Model,
			Serial:    d.Serial,
			ZFSGUID:   d.ZFSGUID,
			Pool:      d.PoolName,
			SizeBytes: d.SizeBytes,
		})
	}

	blockSize := blockSizeBytes(cfg.DiskBlockSize)

	for _, modeName := range cfg.DiskModes {
		bench := diskbench.New(diskbench.Mode(modeName), blockSize, cfg.DiskIterations, cfg.SeekThreads, sysInfo.MemoryGiB, p.logger)
		if !bench.Validate(targets) {
			continue
		}
		record.Disks = append(record.Disks, bench.Run(ctx, targets)...)
	}

	return nil
}

func isNone(selectedPools []string) bool {
	return len(selectedPools) == 1 && selectedPools[0] == "none"
}

func resolvePools(selected []string, all []model.PoolInfo) []model.PoolInfo {
	if len(selected) == 1 && selected[0] == "all" {
		return all
	}

	wanted := make(map[string]bool, len(selected))
	for _, name := range selected {
		wanted[name] = true
	}

	out := make([]model.PoolInfo, 0, len(selected))
	for _, pool := range all {
		if wanted[pool.Name] {
			out = append(out, pool)
		}
	}
	return out
}

func blockSizeBytes(size string) int64 {
	mult := map[byte]int64{'K': 1 << 10, 'M': 1 << 20, 'G': 1 << 30}
	if size == "" {
		return 1 << 20
	}
	unit := size[len(size)-1]
	m, ok := mult[unit]
	if !ok {
		return 1 << 20
	}
	var n int64
	fmt.Sscanf(size[:len(size)-1], "%d", &n)
	if n <= 0 {
		return 1 << 20
	}
	return n * m
}

// RunSummary is one run's entry in the batch summary.
type RunSummary struct {
	Index          int                    `json:"index"`
	Name           string                 `json:"name"`
	Config         config.RunConfig       `json:"config"`
	Status         string                 `json:"status"`
	PoolMetrics    map[string]PoolMetrics `json:"pool_metrics,omitempty"`
	Error          string                 `json:"error,omitempty"`
	DurationMinutes float64               `json:"duration_minutes"`
	OutputFile     string                 `json:"output_file"`
}

// PoolMetrics is the peak-speed/DWPD summary extracted per pool
// (spec.md §4.8: "peak write MB/s and its thread count; peak read MB/s and
// its thread count; DWPD; duration").
type PoolMetrics struct {
	PeakWriteMBps       float64 `json:"peak_write_mbps"`
	PeakWriteThreads    int     `json:"peak_write_threads"`
	PeakReadMBps        float64 `json:"peak_read_mbps"`
	PeakReadThreads     int     `json:"peak_read_threads"`
	DWPD                float64 `json:"dwpd"`
	DurationSeconds     float64 `json:"duration_seconds"`
}

// Summary is the whole-batch result.
type Summary struct {
	StartTimestamp  float64      `json:"start_timestamp"`
	EndTimestamp    float64      `json:"end_timestamp"`
	DurationMinutes float64      `json:"duration_minutes"`
	Runs            []RunSummary `json:"runs"`
	SuccessfulRuns  int          `json:"successful_runs"`
	FailedRuns      int          `json:"failed_runs"`
}

// RunBatch executes bc.Runs sequentially, merging each overlay atop
// bc.Global, persisting per-run output under "<base>_run<N>_<name>.*", and
// returning the batch summary. outBase is the base path used for
// single-invocation output (spec.md §6's "<base>_run<N>_<name>.json").
func RunBatch(ctx context.Context, p *Pipeline, bc *config.BatchConfig, outBase string) (*Summary, error) {
	outBase = model.TrimJSONExt(outBase)

	start := nowFunc()
	summary := &Summary{StartTimestamp: float64(start.Unix())}

	for i, overlay := range bc.Runs {
		merged := config.Merge(bc.Global, overlay.RunConfig)
		runStart := nowFunc()

		outputFile := fmt.Sprintf("%s_run%d_%s.json", outBase, i+1, overlay.Name)

		rs := RunSummary{
			Index:      i + 1,
			Name:       overlay.Name,
			Config:     merged,
			OutputFile: outputFile,
		}

		record, err := p.RunOnce(ctx, merged)
		rs.DurationMinutes = nowFunc().Sub(runStart).Minutes()

		if err != nil {
			rs.Status = "failed"
			rs.Error = err.Error()
			summary.FailedRuns++
			summary.Runs = append(summary.Runs, rs)
			if !bc.ContinueOnError {
				break
			}
			continue
		}

		rs.Status = "success"
		rs.PoolMetrics = extractPoolMetrics(record)

		analysis := analytics.Analyze(record)
		analysisJSON, _ := json.MarshalIndent(analysis, "", "  ")

		if err := model.WriteResultFiles(outputFile, *record, analysisJSON, "", merged.DownsampleFactor); err != nil {
			rs.Status = "failed"
			rs.Error = fmt.Sprintf("write result files: %v", err)
			summary.FailedRuns++
			summary.Runs = append(summary.Runs, rs)
			if !bc.ContinueOnError {
				break
			}
			continue
		}

		summary.SuccessfulRuns++
		summary.Runs = append(summary.Runs, rs)
	}

	end := nowFunc()
	summary.EndTimestamp = float64(end.Unix())
	summary.DurationMinutes = end.Sub(start).Minutes()

	return summary, nil
}

func extractPoolMetrics(record *model.BenchmarkRecord) map[string]PoolMetrics {
	out := make(map[string]PoolMetrics, len(record.Pools))
	for _, pool := range record.Pools {
		var pm PoolMetrics
		for _, b := range pool.Benchmark {
			if b.AverageWriteMBps > pm.PeakWriteMBps {
				pm.PeakWriteMBps = b.AverageWriteMBps
				pm.PeakWriteThreads = b.ThreadCount
			}
			if b.AverageReadMBps > pm.PeakReadMBps {
				pm.PeakReadMBps = b.AverageReadMBps
				pm.PeakReadThreads = b.ThreadCount
			}
		}
		pm.DWPD = pool.DWPD
		pm.DurationSeconds = pool.BenchmarkDurationSeconds
		out[pool.Name] = pm
	}
	return out
}
