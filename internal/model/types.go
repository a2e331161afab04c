// Package model holds the canonical, JSON-serialisable data model described
// in spec §3 (component C9: Result Model & Persistence) plus the platform
// snapshot types (SystemInfo, PoolInfo, DiskInfo) that the Platform Adapter
// returns and the coordinator assembles into a BenchmarkRecord.
package model

import (
	"strconv"

	"github.com/nickf1227/tn-bench-go/internal/stats"
)

// SchemaVersion is the stable schema version emitted in every
// BenchmarkRecord.
const SchemaVersion = "1.0"

// SystemInfo is captured once per invocation.
type SystemInfo struct {
	OSVersion     string    `json:"os_version"`
	LoadAverage1m float64   `json:"load_average_1m"`
	LoadAverage5m float64   `json:"load_average_5m"`
	LoadAverage15m float64  `json:"load_average_15m"`
	CPUModel      string    `json:"cpu_model"`
	LogicalCores  int       `json:"logical_cores"`
	PhysicalCores int       `json:"physical_cores"`
	SystemProduct string    `json:"system_product"`
	MemoryGiB     float64   `json:"memory_gib"`
}

// Vdev is one redundancy group within a pool's topology.
type Vdev struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	DiskCount int    `json:"disk_count"`
}

// PoolInfo is a snapshot of one ZFS pool.
type PoolInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	CapacityBytes int64 `json:"-"`
	Vdevs       []Vdev `json:"vdevs"`
}

// DiskInfo is a snapshot of one physical disk. PoolName is resolved via a
// mapping built once from []PoolInfo; unresolved disks carry PoolNone.
type DiskInfo struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Serial   string `json:"serial"`
	SizeBytes int64 `json:"-"`
	ZFSGUID  string `json:"zfs_guid"`
	PoolName string `json:"pool"`
}

// PoolNone is the sentinel pool name for a disk that cannot be mapped to any
// known pool.
const PoolNone = "none"

// WorkloadPhase is the write or read half of one iteration: the "<phase>"
// part of a segment's "<threads>T-<phase>" label.
type WorkloadPhase string

const (
	PhaseWrite WorkloadPhase = "write"
	PhaseRead  WorkloadPhase = "read"
)

// WorkloadSegment identifies one write or read slice of one iteration at a
// fixed thread count.
type WorkloadSegment struct {
	ThreadCount    int
	Phase          WorkloadPhase
	IterationIndex int // 1-based
}

// Label returns the canonical "<threads>T-<phase>" form.
func (s WorkloadSegment) Label() string {
	return strconv.Itoa(s.ThreadCount) + "T-" + string(s.Phase)
}

// ThreadConfigResult is one thread count's sweep of iterations.
type ThreadConfigResult struct {
	ThreadCount      int       `json:"threads"`
	WriteSpeedsMBps  []float64 `json:"write_speeds"`
	AverageWriteMBps float64   `json:"average_write_speed"`
	ReadSpeedsMBps   []float64 `json:"read_speeds"`
	AverageReadMBps  float64   `json:"average_read_speed"`
	Iterations       int       `json:"iterations"`
	BytesWritten     int64     `json:"-"`
}

// IostatSample is one row of pool-iostat telemetry.
type IostatSample struct {
	Timestamp       float64 `json:"timestamp"`
	TimestampISO    string  `json:"timestamp_iso"`
	PoolName        string  `json:"pool_name"`
	CapacityUsed    string  `json:"capacity_used"`
	CapacityAvail   string  `json:"capacity_avail"`
	OperationsRead  float64 `json:"operations_read"`
	OperationsWrite float64 `json:"operations_write"`
	BandwidthRead   string  `json:"bandwidth_read"`
	BandwidthWrite  string  `json:"bandwidth_write"`
	TotalWaitRead   string  `json:"total_wait_read"`
	TotalWaitWrite  string  `json:"total_wait_write"`
	DiskWaitRead    string  `json:"disk_wait_read"`
	DiskWaitWrite   string  `json:"disk_wait_write"`
	SyncqWaitRead   string  `json:"syncq_wait_read"`
	SyncqWaitWrite  string  `json:"syncq_wait_write"`
	AsyncqWaitRead  string  `json:"asyncq_wait_read"`
	AsyncqWaitWrite string  `json:"asyncq_wait_write"`
	ScrubWait       string  `json:"scrub_wait"`
	TrimWait        string  `json:"trim_wait"`
	Phase           string  `json:"phase"`
	SegmentLabel    string  `json:"segment_label"`
}

// ArcSample is one row of ARC telemetry.
type ArcSample struct {
	Timestamp        float64 `json:"timestamp"`
	HitPercent       float64 `json:"hit_percent"`
	MissPercent      float64 `json:"miss_percent"`
	ArcSizeGiB       float64 `json:"arc_size_gib"`
	ReadsPerSec      float64 `json:"reads_per_sec"`
	HitsPerSec       float64 `json:"hits_per_sec"`
	MissesPerSec     float64 `json:"misses_per_sec"`
	DemandHitPercent float64 `json:"demand_hit_percent"`
	DemandMissPercent float64 `json:"demand_miss_percent"`
	PrefetchHitPercent float64 `json:"prefetch_hit_percent"`
	PrefetchMissPercent float64 `json:"prefetch_miss_percent"`
	MFUSizePercent   float64 `json:"mfu_size_percent"`
	MFUHitsPerSec    float64 `json:"mfu_hits_per_sec"`
	MRUSizePercent   float64 `json:"mru_size_percent"`
	MRUHitsPerSec    float64 `json:"mru_hits_per_sec"`
	L2Present        bool    `json:"l2_present"`
	L2HitPercent     float64 `json:"l2_hit_percent"`
	L2SizeGiB        float64 `json:"l2_size_gib"`
	L2BytesMBps      float64 `json:"l2_bytes_mbps"`
	ZfetchHits       float64 `json:"zfetch_hits"`
	ZfetchMisses     float64 `json:"zfetch_misses"`
	SegmentLabel     string  `json:"segment_label"`
}

// PhaseSpan is one labelled, contiguous range of samples.
type PhaseSpan struct {
	Phase        string  `json:"phase"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
	StartIndex   int     `json:"start_index"`
	EndIndex     int     `json:"end_index"`
	SampleCount  int     `json:"sample_count"`
	SegmentLabel string  `json:"segment_label"`
}

// TelemetryStream is the full capture of one collector's lifetime.
type TelemetryStream struct {
	StartTime         float64        `json:"start_time"`
	EndTime           float64        `json:"end_time"`
	WarmupIterations  int            `json:"warmup_iterations"`
	CooldownIterations int           `json:"cooldown_iterations"`
	IostatSamples     []IostatSample `json:"samples,omitempty"`
	ArcSamples        []ArcSample    `json:"arc_samples,omitempty"`
	PhaseSpans        []PhaseSpan    `json:"phase_spans,omitempty"`
	// Rollups holds the iostat stream's five-way statistical summaries,
	// keyed by source metric ("operations_write", "operations_read"). Nil
	// for the ARC stream, which carries no phase classification to roll up
	// against (only the iostat collector has a phase detector attached).
	Rollups map[string]stats.Rollups `json:"rollups,omitempty"`
}

// IostatRollups computes the §4.6 rollup set separately for the write and
// read ops counters of an iostat TelemetryStream, using each sample's
// already-tagged Phase/SegmentLabel. Per spec, active_only is gated on that
// counter's own nonzero value ("write-active subset for write metrics,
// read-active subset for read metrics"), not a combined read-or-write flag.
// Returns nil for a stream with no iostat samples (e.g. the ARC stream).
func IostatRollups(stream TelemetryStream) map[string]stats.Rollups {
	if len(stream.IostatSamples) == 0 {
		return nil
	}

	spanCounts := make([]stats.PhaseSpanCount, 0, len(stream.PhaseSpans))
	for _, sp := range stream.PhaseSpans {
		spanCounts = append(spanCounts, stats.PhaseSpanCount{Phase: sp.Phase, SampleCount: sp.SampleCount})
	}

	phased := func(value func(IostatSample) float64) []stats.PhasedSample {
		out := make([]stats.PhasedSample, len(stream.IostatSamples))
		for i, s := range stream.IostatSamples {
			v := value(s)
			out[i] = stats.PhasedSample{
				Value:        v,
				Phase:        s.Phase,
				SegmentLabel: s.SegmentLabel,
				Active:       v != 0,
			}
		}
		return out
	}

	return map[string]stats.Rollups{
		"operations_write": stats.ComputeRollups(phased(func(s IostatSample) float64 { return s.OperationsWrite }), spanCounts),
		"operations_read":  stats.ComputeRollups(phased(func(s IostatSample) float64 { return s.OperationsRead }), spanCounts),
	}
}

// PoolResult is one pool's full benchmark record.
type PoolResult struct {
	Info                  PoolInfo              `json:"-"`
	Name                   string                `json:"name"`
	Path                   string                `json:"path"`
	Status                 string                `json:"status"`
	Vdevs                  []Vdev                `json:"vdevs"`
	Benchmark              []ThreadConfigResult  `json:"benchmark"`
	TotalWritesGiB         float64               `json:"total_writes_gib"`
	DWPD                   float64               `json:"dwpd"`
	BenchmarkDurationSeconds float64             `json:"benchmark_duration_seconds"`
	ZpoolIostatTelemetry   *TelemetryStream      `json:"zpool_iostat_telemetry,omitempty"`
	ArcstatTelemetry       *TelemetryStream      `json:"arcstat_telemetry,omitempty"`
	Skipped                bool                  `json:"skipped,omitempty"`
	SkipReason             string                `json:"skip_reason,omitempty"`
}

// DiskBenchmarkResult is one disk's raw-block benchmark outcome.
type DiskBenchmarkResult struct {
	Speeds       []float64 `json:"speeds"`
	AverageSpeed float64   `json:"average_speed"`
	Iterations   int       `json:"iterations"`
	TestMode     string    `json:"test_mode"`
}

// DiskResult is one disk's identity plus its benchmark outcome.
type DiskResult struct {
	Name      string              `json:"name"`
	Model     string              `json:"model"`
	Serial    string              `json:"serial"`
	ZFSGUID   string              `json:"zfs_guid"`
	Pool      string              `json:"pool"`
	SizeGiB   float64             `json:"size_gib"`
	Benchmark DiskBenchmarkResult `json:"benchmark"`
}

// Metadata carries the run's timing and echoed configuration.
type Metadata struct {
	StartTimestamp   float64     `json:"start_timestamp"`
	EndTimestamp     float64     `json:"end_timestamp"`
	DurationMinutes  float64     `json:"duration_minutes"`
	BenchmarkConfig  interface{} `json:"benchmark_config"`
}

// BenchmarkRecord is the whole-run canonical record, schema version "1.0".
type BenchmarkRecord struct {
	SchemaVersion string       `json:"schema_version"`
	Metadata      Metadata     `json:"metadata"`
	System        SystemInfo   `json:"system"`
	Pools         []PoolResult `json:"pools"`
	Disks         []DiskResult `json:"disks"`
}

