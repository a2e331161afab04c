package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// DefaultDownsampleFactor keeps every Nth telemetry sample on emit, per
// spec.md §4.9 ("typical default 5 for size control").
const DefaultDownsampleFactor = 5

// Round2 rounds to two decimals, the emit-time rounding spec.md §4.9
// requires ("numerics are rounded to two decimals before emit").
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// WriteResultFiles persists the three-file output spec.md §6 requires:
// "<out>.json" (raw result, downsampled telemetry), "<out>_analytics.json"
// and "<out>_report.md" (a stub formatter, spec.md's reporting layer being
// out of scope). downsampleFactor keeps every Nth sample; the in-memory
// record passed in is NOT mutated — a rounded, downsampled copy is built
// for serialisation.
func WriteResultFiles(outPath string, record BenchmarkRecord, analyticsJSON []byte, reportMarkdown string, downsampleFactor int) error {
	emit := prepareForEmit(record, downsampleFactor)

	data, err := json.MarshalIndent(emit, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	analyticsPath := siblingPath(outPath, "_analytics.json")
	if err := os.WriteFile(analyticsPath, analyticsJSON, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", analyticsPath, err)
	}

	reportPath := siblingPath(outPath, "_report.md")
	if err := os.WriteFile(reportPath, []byte(reportMarkdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", reportPath, err)
	}

	return nil
}

// siblingPath replaces a trailing ".json" with suffix, or appends suffix
// if outPath has no ".json" extension.
func siblingPath(outPath, suffix string) string {
	return TrimJSONExt(outPath) + suffix
}

// TrimJSONExt strips a trailing ".json" extension, if present. It is the
// base-stem operation spec.md §6's batch filenames are built from
// ("<base>_run<N>_<name>.json", "<base>_batch_summary.json") so a
// "results.json" output path doesn't turn into "results.json_batch_summary.json".
func TrimJSONExt(path string) string {
	const ext = ".json"
	if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
		return path[:len(path)-len(ext)]
	}
	return path
}

// prepareForEmit rounds all numerics to two decimals and downsamples
// telemetry sample slices, without mutating the input.
func prepareForEmit(record BenchmarkRecord, downsampleFactor int) BenchmarkRecord {
	if downsampleFactor < 1 {
		downsampleFactor = 1
	}

	out := record
	out.Pools = make([]PoolResult, len(record.Pools))
	for i, p := range record.Pools {
		out.Pools[i] = roundPool(p, downsampleFactor)
	}

	out.Disks = make([]DiskResult, len(record.Disks))
	for i, d := range record.Disks {
		out.Disks[i] = roundDisk(d)
	}

	out.System.LoadAverage1m = Round2(record.System.LoadAverage1m)
	out.System.LoadAverage5m = Round2(record.System.LoadAverage5m)
	out.System.LoadAverage15m = Round2(record.System.LoadAverage15m)
	out.System.MemoryGiB = Round2(record.System.MemoryGiB)

	return out
}

func roundPool(p PoolResult, downsampleFactor int) PoolResult {
	out := p
	out.Benchmark = make([]ThreadConfigResult, len(p.Benchmark))
	for i, b := range p.Benchmark {
		out.Benchmark[i] = roundThreadConfig(b)
	}
	out.TotalWritesGiB = Round2(p.TotalWritesGiB)
	out.DWPD = Round2(p.DWPD)
	out.BenchmarkDurationSeconds = Round2(p.BenchmarkDurationSeconds)

	if p.ZpoolIostatTelemetry != nil {
		// Rollups are computed from the full, not-yet-downsampled sample
		// population, since downsampling on emit is a size optimisation for
		// the raw series and must not change the statistics derived from it.
		rollups := IostatRollups(*p.ZpoolIostatTelemetry)
		stream := downsampleIostat(*p.ZpoolIostatTelemetry, downsampleFactor)
		stream.Rollups = rollups
		out.ZpoolIostatTelemetry = &stream
	}
	if p.ArcstatTelemetry != nil {
		stream := downsampleArc(*p.ArcstatTelemetry, downsampleFactor)
		out.ArcstatTelemetry = &stream
	}

	return out
}

func roundThreadConfig(b ThreadConfigResult) ThreadConfigResult {
	out := b
	out.WriteSpeedsMBps = roundSlice(b.WriteSpeedsMBps)
	out.ReadSpeedsMBps = roundSlice(b.ReadSpeedsMBps)
	out.AverageWriteMBps = Round2(b.AverageWriteMBps)
	out.AverageReadMBps = Round2(b.AverageReadMBps)
	return out
}

func roundSlice(vals []float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = Round2(v)
	}
	return out
}

func roundDisk(d DiskResult) DiskResult {
	out := d
	out.SizeGiB = Round2(d.SizeGiB)
	out.Benchmark.Speeds = roundSlice(d.Benchmark.Speeds)
	out.Benchmark.AverageSpeed = Round2(d.Benchmark.AverageSpeed)
	return out
}

func downsampleIostat(stream TelemetryStream, factor int) TelemetryStream {
	out := stream
	out.IostatSamples = nil
	for i, s := range stream.IostatSamples {
		if i%factor == 0 {
			out.IostatSamples = append(out.IostatSamples, s)
		}
	}
	return out
}

func downsampleArc(stream TelemetryStream, factor int) TelemetryStream {
	out := stream
	out.ArcSamples = nil
	for i, s := range stream.ArcSamples {
		if i%factor == 0 {
			out.ArcSamples = append(out.ArcSamples, s)
		}
	}
	return out
}
