// Package analytics implements the Analytics pass (SPEC_FULL.md §6.2): a
// pure function over a model.BenchmarkRecord producing per-pool scaling
// efficiency, optimal thread counts, bottleneck detection, disk-variance
// analysis, an overall letter grade and a deduplicated issue/recommendation
// list. Restates original_source/core/analysis.py's BenchmarkAnalyzer class
// as a stateless function over the already-typed record instead of a
// stateful wrapper around a JSON dict.
package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/nickf1227/tn-bench-go/internal/model"
	"github.com/nickf1227/tn-bench-go/internal/stats"
	"github.com/nickf1227/tn-bench-go/internal/telemetry"
)

// ScalingEfficiency mirrors analysis.py's _calculate_scaling_efficiency
// return shape.
type ScalingEfficiency struct {
	EfficiencyPercent float64 `json:"efficiency_percent"`
	LinearSpeedup     float64 `json:"linear_speedup"`
	SingleThreadSpeed float64 `json:"single_thread_speed,omitempty"`
	MaxThreadSpeed    float64 `json:"max_thread_speed,omitempty"`
	TheoreticalMax    float64 `json:"theoretical_max,omitempty"`
}

// PoolAnalysis is one pool's analysis section.
type PoolAnalysis struct {
	Grade              string                       `json:"grade"`
	ScalingEfficiency  map[string]ScalingEfficiency `json:"scaling_efficiency"`
	OptimalThreadWrite *int                         `json:"optimal_thread_write"`
	OptimalThreadRead  *int                         `json:"optimal_thread_read"`
	BottleneckDetected bool                         `json:"bottleneck_detected"`
	Issues             []string                     `json:"issues"`
	// SteadyStateWriteIOPS/SteadyStateReadIOPS are the mean ops/sec across
	// the steady_state rollup of the pool's iostat telemetry, when telemetry
	// was collected and reached steady state. Nil otherwise.
	SteadyStateWriteIOPS *float64 `json:"steady_state_write_iops,omitempty"`
	SteadyStateReadIOPS  *float64 `json:"steady_state_read_iops,omitempty"`
	// AverageBandwidth*/AverageLatency* are derived on demand from the raw
	// iostat telemetry strings (telemetry.BandwidthMBps, telemetry.LatencyMs)
	// across every captured sample. Latency is nil when the pool's telemetry
	// was collected without the extended (-l) flag, so no wait-time strings
	// were ever available.
	AverageBandwidthWriteMBps *float64 `json:"average_bandwidth_write_mbps,omitempty"`
	AverageBandwidthReadMBps  *float64 `json:"average_bandwidth_read_mbps,omitempty"`
	AverageLatencyWriteMs     *float64 `json:"average_latency_write_ms,omitempty"`
	AverageLatencyReadMs      *float64 `json:"average_latency_read_ms,omitempty"`
}

// DiskAnalysis is one disk's variance-from-average section.
type DiskAnalysis struct {
	AverageSpeed    float64  `json:"average_speed"`
	VsPoolAverage   string   `json:"vs_pool_average,omitempty"`
	VariancePercent *float64 `json:"variance_percent"`
}

// Summary is the high-level counters section.
type Summary struct {
	TotalPoolsTested     int      `json:"total_pools_tested"`
	TotalDisksTested     int      `json:"total_disks_tested"`
	FastestPoolWrite     *PoolPeak `json:"fastest_pool_write"`
	FastestPoolRead      *PoolPeak `json:"fastest_pool_read"`
	SlowestPoolWrite     *PoolPeak `json:"slowest_pool_write"`
	TotalDataWrittenGiB  float64  `json:"total_data_written_gib"`
}

// PoolPeak names the pool holding a peak speed.
type PoolPeak struct {
	Pool  string  `json:"pool"`
	Speed float64 `json:"speed"`
}

// ScalingAnalysis is the system-wide scaling rollup.
type ScalingAnalysis struct {
	PoolsWithGoodScaling    []string `json:"pools_with_good_scaling"`
	PoolsWithPoorScaling    []string `json:"pools_with_poor_scaling"`
	ScalingRecommendations  []string `json:"scaling_recommendations"`
}

// Analysis is the full report.
type Analysis struct {
	Summary         Summary                 `json:"summary"`
	PoolAnalysis    map[string]PoolAnalysis `json:"pool_analysis"`
	DiskAnalysis    map[string]DiskAnalysis `json:"disk_analysis"`
	ScalingAnalysis ScalingAnalysis         `json:"scaling_analysis"`
	Issues          []string                `json:"issues"`
	Recommendations []string                `json:"recommendations"`
	OverallGrade    string                  `json:"overall_grade"`
}

// collector threads issues/recommendations through the analysis pass the
// way analysis.py's BenchmarkAnalyzer accumulates into self.issues /
// self.recommendations, but as a local value instead of instance state so
// Analyze stays a pure function (testable property 9, SPEC_FULL.md §9).
type collector struct {
	issues          []string
	recommendations []string
}

func (c *collector) addIssue(s string) {
	for _, e := range c.issues {
		if e == s {
			return
		}
	}
	c.issues = append(c.issues, s)
}

func (c *collector) addRecommendation(s string) {
	for _, e := range c.recommendations {
		if e == s {
			return
		}
	}
	c.recommendations = append(c.recommendations, s)
}

// Analyze is a pure, deterministic pass over record (testable property 9).
func Analyze(record *model.BenchmarkRecord) Analysis {
	c := &collector{}

	poolAnalysis := make(map[string]PoolAnalysis)
	grades := make(map[string]string)

	for _, pool := range record.Pools {
		if len(pool.Benchmark) == 0 {
			continue
		}

		writeEff := scalingEfficiency(pool.Benchmark, true)
		readEff := scalingEfficiency(pool.Benchmark, false)

		optWrite := optimalThreads(pool.Benchmark, true)
		optRead := optimalThreads(pool.Benchmark, false)

		disksInPool := 0
		for _, v := range pool.Vdevs {
			disksInPool += v.DiskCount
		}

		pa := PoolAnalysis{
			ScalingEfficiency:  map[string]ScalingEfficiency{"write": writeEff, "read": readEff},
			OptimalThreadWrite: optWrite,
			OptimalThreadRead:  optRead,
		}

		for _, n := range detectNegativeScaling(pool.Benchmark) {
			pa.BottleneckDetected = true
			msg := pool.Name + ": " + n
			pa.Issues = append(pa.Issues, msg)
			c.addIssue(msg)
			c.addRecommendation("Check " + pool.Name + " ZFS recordsize and vdev configuration")
		}

		if writeEff.EfficiencyPercent < 10 {
			pa.BottleneckDetected = true
			msg := pool.Name + ": write scaling only " + formatPercent(writeEff.EfficiencyPercent) + "% efficient"
			pa.Issues = append(pa.Issues, msg)
			c.addIssue(msg)
			c.addRecommendation("Investigate " + pool.Name + " write path - possible recordsize mismatch or missing SLOG")
		}

		if pool.ZpoolIostatTelemetry != nil {
			annotateIostatMetrics(&pa, pool.Name, pool.ZpoolIostatTelemetry, c)
		}

		pa.Grade = gradePool(len(pa.Issues), writeEff.EfficiencyPercent, readEff.EfficiencyPercent, pa.BottleneckDetected, disksInPool)
		grades[pool.Name] = pa.Grade
		poolAnalysis[pool.Name] = pa
	}

	diskAnalysis := analyzeDisks(record.Disks, c)

	return Analysis{
		Summary:         summarize(record),
		PoolAnalysis:    poolAnalysis,
		DiskAnalysis:    diskAnalysis,
		ScalingAnalysis: analyzeScaling(poolAnalysis),
		Issues:          c.issues,
		Recommendations: c.recommendations,
		OverallGrade:    overallGrade(grades),
	}
}

func summarize(record *model.BenchmarkRecord) Summary {
	s := Summary{
		TotalPoolsTested: len(record.Pools),
		TotalDisksTested: len(record.Disks),
	}

	for _, pool := range record.Pools {
		if len(pool.Benchmark) > 0 {
			peakWrite := maxOf(pool.Benchmark, func(b model.ThreadConfigResult) float64 { return b.AverageWriteMBps })
			peakRead := maxOf(pool.Benchmark, func(b model.ThreadConfigResult) float64 { return b.AverageReadMBps })

			if s.FastestPoolWrite == nil || peakWrite > s.FastestPoolWrite.Speed {
				s.FastestPoolWrite = &PoolPeak{Pool: pool.Name, Speed: peakWrite}
			}
			if s.FastestPoolRead == nil || peakRead > s.FastestPoolRead.Speed {
				s.FastestPoolRead = &PoolPeak{Pool: pool.Name, Speed: peakRead}
			}
			if s.SlowestPoolWrite == nil || peakWrite < s.SlowestPoolWrite.Speed {
				s.SlowestPoolWrite = &PoolPeak{Pool: pool.Name, Speed: peakWrite}
			}
		}
		s.TotalDataWrittenGiB += pool.TotalWritesGiB
	}

	return s
}

func maxOf(items []model.ThreadConfigResult, f func(model.ThreadConfigResult) float64) float64 {
	best := 0.0
	for i, it := range items {
		v := f(it)
		if i == 0 || v > best {
			best = v
		}
	}
	return best
}

func scalingEfficiency(benchmark []model.ThreadConfigResult, write bool) ScalingEfficiency {
	if len(benchmark) < 2 {
		return ScalingEfficiency{}
	}

	sorted := make([]model.ThreadConfigResult, len(benchmark))
	copy(sorted, benchmark)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ThreadCount < sorted[j].ThreadCount })

	single := sorted[0]
	maxT := sorted[len(sorted)-1]

	speedOf := func(r model.ThreadConfigResult) float64 {
		if write {
			return r.AverageWriteMBps
		}
		return r.AverageReadMBps
	}

	singleSpeed := speedOf(single)
	maxSpeed := speedOf(maxT)

	if singleSpeed <= 0 || maxT.ThreadCount <= single.ThreadCount {
		return ScalingEfficiency{}
	}

	theoretical := singleSpeed * (float64(maxT.ThreadCount) / float64(single.ThreadCount))
	efficiency := (maxSpeed / theoretical) * 100
	speedup := maxSpeed / singleSpeed

	return ScalingEfficiency{
		EfficiencyPercent: round2(efficiency),
		LinearSpeedup:     round2(speedup),
		SingleThreadSpeed: round2(singleSpeed),
		MaxThreadSpeed:    round2(maxSpeed),
		TheoreticalMax:    round2(theoretical),
	}
}

func optimalThreads(benchmark []model.ThreadConfigResult, write bool) *int {
	if len(benchmark) == 0 {
		return nil
	}
	bestSpeed := 0.0
	var bestThreads *int
	for _, b := range benchmark {
		speed := b.AverageWriteMBps
		if !write {
			speed = b.AverageReadMBps
		}
		if speed > bestSpeed {
			bestSpeed = speed
			t := b.ThreadCount
			bestThreads = &t
		}
	}
	return bestThreads
}

func detectNegativeScaling(benchmark []model.ThreadConfigResult) []string {
	if len(benchmark) < 2 {
		return nil
	}

	sorted := make([]model.ThreadConfigResult, len(benchmark))
	copy(sorted, benchmark)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ThreadCount < sorted[j].ThreadCount })

	var issues []string
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]

		for _, kind := range []string{"write", "read"} {
			prevSpeed, currSpeed := prev.AverageWriteMBps, curr.AverageWriteMBps
			if kind == "read" {
				prevSpeed, currSpeed = prev.AverageReadMBps, curr.AverageReadMBps
			}
			if prevSpeed > 0 && currSpeed < prevSpeed*0.8 {
				dropPercent := round1((1 - currSpeed/prevSpeed) * 100)
				issues = append(issues, fmt.Sprintf("negative scaling at %dT (%s, %.1f%% drop)", curr.ThreadCount, kind, dropPercent))
			}
		}
	}
	return issues
}

func gradePool(issueCount int, writeEff, readEff float64, bottleneck bool, diskCount int) string {
	bestEff := writeEff
	if readEff > bestEff {
		bestEff = readEff
	}

	switch {
	case issueCount == 0 && bestEff > 35:
		return "A"
	case issueCount <= 1 && bestEff > 25:
		return "B"
	case issueCount <= 2 && bestEff > 15:
		return "C"
	case !bottleneck || bestEff > 10:
		return "D"
	default:
		return "F"
	}
}

// annotateIostatMetrics re-derives the §4.6 rollups from the pool's iostat
// telemetry (component C6, the same statistical reducer C9 invokes when
// writing the telemetry stream to disk) and surfaces the steady-state ops/sec
// means, plus on-demand bandwidth/latency conversions of the raw telemetry
// strings. A pool whose telemetry never committed a steady_state span at all
// is flagged as an issue: the benchmark ran, but the workload never looked
// saturated to the phase detector, which usually means the iterations or
// durations are too short for this pool's speed.
func annotateIostatMetrics(pa *PoolAnalysis, poolName string, stream *model.TelemetryStream, c *collector) {
	if rollups := model.IostatRollups(*stream); rollups != nil {
		write := rollups["operations_write"]
		read := rollups["operations_read"]

		if write.SteadyState.Count > 0 {
			v := round2(write.SteadyState.Mean)
			pa.SteadyStateWriteIOPS = &v
		}
		if read.SteadyState.Count > 0 {
			v := round2(read.SteadyState.Mean)
			pa.SteadyStateReadIOPS = &v
		}

		if write.SteadyState.Count == 0 && read.SteadyState.Count == 0 {
			msg := poolName + ": telemetry never reached steady state"
			c.addIssue(msg)
			c.addRecommendation("Increase zfs_iterations or pool_block_size for " + poolName + " so the workload holds steady long enough for telemetry to classify it")
		}
	}

	var bwWrite, bwRead, latWrite, latRead []float64
	for _, s := range stream.IostatSamples {
		bwWrite = append(bwWrite, telemetry.BandwidthMBps(s.BandwidthWrite))
		bwRead = append(bwRead, telemetry.BandwidthMBps(s.BandwidthRead))
		if s.TotalWaitWrite != "-" {
			latWrite = append(latWrite, telemetry.LatencyMs(s.TotalWaitWrite))
		}
		if s.TotalWaitRead != "-" {
			latRead = append(latRead, telemetry.LatencyMs(s.TotalWaitRead))
		}
	}

	if r := stats.Reduce(bwWrite); r.Count > 0 {
		v := round2(r.Mean)
		pa.AverageBandwidthWriteMBps = &v
	}
	if r := stats.Reduce(bwRead); r.Count > 0 {
		v := round2(r.Mean)
		pa.AverageBandwidthReadMBps = &v
	}
	if r := stats.Reduce(latWrite); r.Count > 0 {
		v := round2(r.Mean)
		pa.AverageLatencyWriteMs = &v
	}
	if r := stats.Reduce(latRead); r.Count > 0 {
		v := round2(r.Mean)
		pa.AverageLatencyReadMs = &v
	}
}

func analyzeDisks(disks []model.DiskResult, c *collector) map[string]DiskAnalysis {
	out := make(map[string]DiskAnalysis)
	if len(disks) == 0 {
		return out
	}

	var speeds []float64
	for _, d := range disks {
		if d.Benchmark.AverageSpeed > 0 {
			speeds = append(speeds, d.Benchmark.AverageSpeed)
		}
	}
	if len(speeds) == 0 {
		return out
	}

	avg := mean(speeds)

	for _, d := range disks {
		da := DiskAnalysis{AverageSpeed: round2(d.Benchmark.AverageSpeed)}

		if d.Benchmark.AverageSpeed > 0 && avg > 0 {
			variance := ((d.Benchmark.AverageSpeed - avg) / avg) * 100
			v := round1(variance)
			da.VariancePercent = &v
			switch {
			case variance > 5:
				da.VsPoolAverage = "above"
			case variance < -5:
				da.VsPoolAverage = "below"
			default:
				da.VsPoolAverage = "normal"
			}
			if math.Abs(variance) > 15 {
				c.addIssue(d.Name + ": variance from average")
			}
		}

		out[d.Name] = da
	}
	return out
}

func analyzeScaling(poolAnalysis map[string]PoolAnalysis) ScalingAnalysis {
	var sc ScalingAnalysis
	for name, pa := range poolAnalysis {
		writeEff := pa.ScalingEfficiency["write"].EfficiencyPercent
		readEff := pa.ScalingEfficiency["read"].EfficiencyPercent

		if writeEff > 30 || readEff > 50 {
			sc.PoolsWithGoodScaling = append(sc.PoolsWithGoodScaling, name)
		} else {
			sc.PoolsWithPoorScaling = append(sc.PoolsWithPoorScaling, name)
			sc.ScalingRecommendations = append(sc.ScalingRecommendations, name+": consider ZFS tuning (recordsize, SLOG, or vdev layout)")
		}
	}
	sort.Strings(sc.PoolsWithGoodScaling)
	sort.Strings(sc.PoolsWithPoorScaling)
	sort.Strings(sc.ScalingRecommendations)
	return sc
}

func overallGrade(grades map[string]string) string {
	if len(grades) == 0 {
		return "N/A"
	}
	values := map[string]int{"A": 4, "B": 3, "C": 2, "D": 1, "F": 0}
	reverse := map[int]string{4: "A", 3: "B", 2: "C", 1: "D", 0: "F"}

	total := 0
	for _, g := range grades {
		total += values[g]
	}
	avg := int(math.Round(float64(total) / float64(len(grades))))
	if g, ok := reverse[avg]; ok {
		return g
	}
	return "C"
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f", round1(v))
}
