// Package coordinator implements the Benchmark Coordinator (component C7):
// drives one pool through its thread sweep, owns the workload driver, the
// telemetry collectors and the phase detector they carry, and assembles the
// pool's model.PoolResult.
package coordinator

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/nickf1227/tn-bench-go/internal/dataset"
	"github.com/nickf1227/tn-bench-go/internal/model"
	"github.com/nickf1227/tn-bench-go/internal/platform"
	"github.com/nickf1227/tn-bench-go/internal/stats"
	"github.com/nickf1227/tn-bench-go/internal/telemetry"
	"github.com/nickf1227/tn-bench-go/internal/workload"
)

// Config bundles the subset of RunConfig the coordinator needs; kept as an
// independent struct so internal/coordinator does not import internal/config
// (config is the CLI-facing layer; the coordinator only needs the resolved
// values), matching the teacher's preference for small, local config shapes
// over one shared mega-struct.
type Config struct {
	ZFSIterations        int
	PoolBlockSize        string
	PoolBlockSizeBytes   int64
	CollectZpoolIostat   bool
	ZpoolIostatInterval  int
	ZpoolIostatWarmup    int
	ZpoolIostatCooldown  int
	CollectArcstat       bool
	Cleanup              bool
	ForceCleanup         bool
	RetryCleanup         int
	DownsampleFactor     int
}

// Coordinator drives one pool end-to-end.
type Coordinator struct {
	adapter  *platform.Adapter
	datasets *dataset.Manager
	driver   *workload.Driver
	logger   *log.Logger
	cfg      Config
}

func New(adapter *platform.Adapter, datasets *dataset.Manager, driver *workload.Driver, logger *log.Logger, cfg Config) *Coordinator {
	return &Coordinator{adapter: adapter, datasets: datasets, driver: driver, logger: logger, cfg: cfg}
}

// Run executes the full sequence of spec.md §4.7 for one pool.
func (c *Coordinator) Run(ctx context.Context, pool model.PoolInfo, cores int) model.PoolResult {
	result := model.PoolResult{
		Name:   pool.Name,
		Path:   pool.Path,
		Status: pool.Status,
		Vdevs:  pool.Vdevs,
	}

	if ok := c.datasets.PreRunSafetyCheck(ctx, pool.Name); !ok {
		c.logger.Printf("WARN: pre-run safety check failed for %s, proceeding anyway", pool.Name)
	}

	mountpoint, err := c.datasets.EnsureDataset(ctx, pool.Name, c.cfg.PoolBlockSize)
	if err != nil {
		result.Skipped = true
		result.SkipReason = "dataset unavailable: " + err.Error()
		return result
	}

	sweep := workload.Sweep(cores)
	maxThreads := sweep[len(sweep)-1]

	if ok, avail, req, err := c.datasets.ValidateSpace(ctx, pool.Name, maxThreads); err != nil || !ok {
		result.Skipped = true
		if err != nil {
			result.SkipReason = "space validation error: " + err.Error()
		} else {
			result.SkipReason = "insufficient space: need " + formatGiB(req) + " GiB, have " + formatGiB(avail) + " GiB"
		}
		c.datasets.DeleteDatasetRobust(ctx, pool.Name, c.cfg.RetryCleanup, c.cfg.ForceCleanup)
		return result
	}

	var iostatCollector *telemetry.Collector[model.IostatSample]
	var arcCollector *telemetry.Collector[model.ArcSample]

	if c.cfg.CollectZpoolIostat {
		iostatCollector = telemetry.New(telemetry.IostatSpec(pool.Name, c.cfg.ZpoolIostatInterval, true))
		if err := iostatCollector.Start(ctx, c.cfg.ZpoolIostatWarmup); err != nil {
			c.logger.Printf("WARN: iostat telemetry spawn failed for %s, continuing without it: %v", pool.Name, err)
			iostatCollector = nil
		}
	}
	if c.cfg.CollectArcstat {
		hasL2, err := c.adapter.DetectL2ARC(ctx, pool.Name)
		if err != nil {
			c.logger.Printf("WARN: L2ARC detection failed for %s: %v", pool.Name, err)
		}
		arcCollector = telemetry.New(telemetry.ArcSpec(c.cfg.ZpoolIostatInterval, hasL2))
		if err := arcCollector.Start(ctx, c.cfg.ZpoolIostatWarmup); err != nil {
			c.logger.Printf("WARN: arcstat telemetry spawn failed for %s, continuing without it: %v", pool.Name, err)
			arcCollector = nil
		}
	}

	onSegmentChange := func(label string) {
		if iostatCollector != nil {
			iostatCollector.SignalSegmentChange(label)
		}
		if arcCollector != nil {
			arcCollector.SignalSegmentChange(label)
		}
	}

	startTime := time.Now()
	var totalBytesWritten int64

	for sweepIdx, threads := range sweep {
		cfgResult := model.ThreadConfigResult{ThreadCount: threads, Iterations: c.cfg.ZFSIterations}

		for iter := 1; iter <= c.cfg.ZFSIterations; iter++ {
			if sweepIdx == 0 && iter == 1 {
				if iostatCollector != nil {
					iostatCollector.SignalBenchmarkStart()
				}
				if arcCollector != nil {
					arcCollector.SignalBenchmarkStart()
				}
			}

			res, err := c.driver.Run(ctx, threads, c.poolBlockSizeBytes(), "file", mountpoint, onSegmentChange)
			if err != nil {
				c.logger.Printf("WARN: iteration failed for %s threads=%d iter=%d: %v", pool.Name, threads, iter, err)
				continue
			}

			cfgResult.WriteSpeedsMBps = append(cfgResult.WriteSpeedsMBps, res.WriteSpeedMBps)
			cfgResult.ReadSpeedsMBps = append(cfgResult.ReadSpeedsMBps, res.ReadSpeedMBps)
			cfgResult.BytesWritten += res.BytesWritten
			totalBytesWritten += res.BytesWritten

			if sweepIdx == len(sweep)-1 && iter == c.cfg.ZFSIterations {
				if iostatCollector != nil {
					iostatCollector.SignalBenchmarkEnd()
				}
				if arcCollector != nil {
					arcCollector.SignalBenchmarkEnd()
				}
			}
		}

		cfgResult.AverageWriteMBps = stats.Reduce(cfgResult.WriteSpeedsMBps).Mean
		cfgResult.AverageReadMBps = stats.Reduce(cfgResult.ReadSpeedsMBps).Mean
		result.Benchmark = append(result.Benchmark, cfgResult)
	}

	durationSeconds := time.Since(startTime).Seconds()

	if iostatCollector != nil {
		iostatResult := iostatCollector.Stop(ctx, c.cfg.ZpoolIostatCooldown)
		result.ZpoolIostatTelemetry = buildIostatStream(iostatResult)
	}
	if arcCollector != nil {
		arcResult := arcCollector.Stop(ctx, c.cfg.ZpoolIostatCooldown)
		result.ArcstatTelemetry = buildArcStream(arcResult)
	}

	totalWritesGiB := float64(totalBytesWritten) / (1 << 30)
	result.TotalWritesGiB = totalWritesGiB
	result.BenchmarkDurationSeconds = durationSeconds
	result.DWPD = computeDWPD(totalWritesGiB, float64(pool.CapacityBytes)/(1<<30), durationSeconds)

	workload.CleanupResidual(mountpoint, c.logger)

	if c.cfg.Cleanup {
		if !c.datasets.DeleteDatasetRobust(ctx, pool.Name, c.cfg.RetryCleanup, c.cfg.ForceCleanup) {
			c.logger.Printf("ERROR: failed to clean up dataset for %s after retries", pool.Name)
		}
	}

	return result
}

// poolBlockSizeBytes is the dd/write block size used against the pool's own
// benchmark dataset, derived from cfg.PoolBlockSize (see batch.blockSizeBytes)
// — distinct from the per-disk raw-device block size internal/diskbench uses.
func (c *Coordinator) poolBlockSizeBytes() int64 {
	if c.cfg.PoolBlockSizeBytes > 0 {
		return c.cfg.PoolBlockSizeBytes
	}
	return 1 << 20
}

// computeDWPD implements spec.md §4.7 step 7's formula, with the
// poolCapacityGiB<=0 guard.
func computeDWPD(totalWritesGiB, poolCapacityGiB, durationSeconds float64) float64 {
	if poolCapacityGiB <= 0 || durationSeconds <= 0 {
		return 0
	}
	return (totalWritesGiB / poolCapacityGiB) / durationSeconds * 86400
}

func formatGiB(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
