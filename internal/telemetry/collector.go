// Package telemetry implements the Telemetry Collector (component C4): a
// generic long-running line-stream parser with warm-up/cool-down gating,
// instantiated once for pool-iostat and once for ARC statistics. The
// generic type parameter is the already-parsed sample type
// (model.IostatSample / model.ArcSample) so Spec.ParseLine does the mapping
// once, at ingest time, rather than through an intermediate raw-row type.
package telemetry

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nickf1227/tn-bench-go/internal/phase"
	"github.com/nickf1227/tn-bench-go/internal/platform"
)

// pollInterval bounds how often Start/Stop poll the sample count, per spec
// §5 ("short sleep between polls, <= 100 ms").
const pollInterval = 50 * time.Millisecond

// Spec parameterises Collector for one telemetry source.
type Spec[S any] struct {
	// Command returns the external command to spawn (e.g. "zpool", ["iostat", "-H", "-y", pool, interval]).
	Command func() (name string, args []string)

	// IsHeader reports whether a whitespace-split line is a header line to
	// be dropped (spec §4.4: "Lines that look like headers ... are dropped").
	IsHeader func(fields []string) bool

	// ParseLine converts a whitespace-split, non-header line into a sample.
	// The second return value is false for malformed lines, which are
	// dropped without affecting the sample count. Nothing is logged for a
	// dropped line.
	ParseLine func(fields []string, timestamp float64, timestampISO string) (S, bool)

	// TotalIOPS extracts the value the phase detector classifies on. Nil
	// means this source has no attached phase detector (the ARC stream;
	// spec §4.5: "Attached to the iostat collector only").
	TotalIOPS func(S) float64

	// SetPhase and SetSegment tag the sample in place before it is
	// appended, matching spec §4.5 step 5 ("Write the current committed
	// phase and current segment label onto the sample before it leaves
	// the collector").
	SetPhase   func(sample *S, phase string)
	SetSegment func(sample *S, label string)
}

// Result is everything Stop returns: the captured stream plus the phase
// spans (only non-nil when Spec.TotalIOPS is set).
type Result[S any] struct {
	StartTime           float64
	EndTime             float64
	WarmupIterations    int
	CooldownIterations  int
	Samples             []S
	Spans               []phase.Span
	BenchmarkStartIndex int
	BenchmarkEndIndex   int
}

// Collector is one running (or completed) telemetry stream.
type Collector[S any] struct {
	spec     Spec[S]
	detector *phase.Detector

	proc       *platform.Process
	ingestDone chan struct{}

	segmentLabel atomic.Pointer[string]
	sampleCount  atomic.Int64

	mu      sync.Mutex
	samples []S

	benchmarkStartIndex atomic.Int64
	benchmarkEndIndex   atomic.Int64

	startTime          float64
	warmupIterations   int
	cooldownIterations int

	stopOnce sync.Once
	result   Result[S]
}

// New creates a Collector bound to spec. If spec.TotalIOPS is non-nil, a
// phase.Detector with default parameters is attached.
func New[S any](spec Spec[S]) *Collector[S] {
	c := &Collector[S]{
		spec:       spec,
		ingestDone: make(chan struct{}),
	}
	c.benchmarkStartIndex.Store(-1)
	c.benchmarkEndIndex.Store(-1)
	empty := ""
	c.segmentLabel.Store(&empty)
	if spec.TotalIOPS != nil {
		c.detector = phase.New(phase.DefaultParams())
	}
	return c
}

// Start spawns the external process, begins background ingestion, and
// blocks the caller until warmupN samples have been ingested.
func (c *Collector[S]) Start(ctx context.Context, warmupN int) error {
	name, args := c.spec.Command()
	proc, err := platform.Spawn(ctx, name, args...)
	if err != nil {
		return err
	}
	c.proc = proc
	c.warmupIterations = warmupN
	c.startTime = nowSeconds()

	go c.ingestLoop()
	c.pollUntilCount(ctx, int64(warmupN))

	return nil
}

func (c *Collector[S]) ingestLoop() {
	defer close(c.ingestDone)
	for line := range c.proc.Lines() {
		fields := strings.Fields(line)
		if len(fields) == 0 || c.spec.IsHeader(fields) {
			continue
		}

		ts := nowSeconds()
		sample, ok := c.spec.ParseLine(fields, ts, isoTime(ts))
		if !ok {
			continue
		}

		label := c.CurrentSegmentLabel()
		c.spec.SetSegment(&sample, label)

		if c.detector != nil {
			iops := c.spec.TotalIOPS(sample)
			committed := c.detector.Observe(iops, ts, label)
			c.spec.SetPhase(&sample, string(committed))
		}

		c.mu.Lock()
		c.samples = append(c.samples, sample)
		c.mu.Unlock()
		c.sampleCount.Add(1)
	}
}

// SignalSegmentChange updates the single segment-label slot read by the
// ingest loop. Visible to the ingest loop on its next line read (spec §5).
func (c *Collector[S]) SignalSegmentChange(label string) {
	l := label
	c.segmentLabel.Store(&l)
}

// CurrentSegmentLabel returns the slot's current value.
func (c *Collector[S]) CurrentSegmentLabel() string {
	return *c.segmentLabel.Load()
}

// SignalBenchmarkStart records the sample index at which the benchmark
// workload began (bookkeeping only, per spec §4.4).
func (c *Collector[S]) SignalBenchmarkStart() {
	c.benchmarkStartIndex.Store(c.sampleCount.Load())
}

// SignalBenchmarkEnd records the sample index at which the benchmark
// workload ended.
func (c *Collector[S]) SignalBenchmarkEnd() {
	c.benchmarkEndIndex.Store(c.sampleCount.Load())
}

// Stop waits for cooldownN additional samples, terminates the child process
// (graceful then forced, via platform.Process.Terminate), and returns the
// captured stream. Safe to call multiple times; later calls return the
// already-captured Result. Like Start, the wait is abandoned early if the
// child process has already exited or ctx is cancelled.
func (c *Collector[S]) Stop(ctx context.Context, cooldownN int) Result[S] {
	c.stopOnce.Do(func() {
		c.cooldownIterations = cooldownN
		target := c.sampleCount.Load() + int64(cooldownN)
		c.pollUntilCount(ctx, target)

		_ = c.proc.Terminate()
		<-c.ingestDone

		var spans []phase.Span
		if c.detector != nil {
			spans = c.detector.Finish()
		}

		c.mu.Lock()
		samples := make([]S, len(c.samples))
		copy(samples, c.samples)
		c.mu.Unlock()

		c.result = Result[S]{
			StartTime:           c.startTime,
			EndTime:             nowSeconds(),
			WarmupIterations:    c.warmupIterations,
			CooldownIterations:  c.cooldownIterations,
			Samples:             samples,
			Spans:               spans,
			BenchmarkStartIndex: int(c.benchmarkStartIndex.Load()),
			BenchmarkEndIndex:   int(c.benchmarkEndIndex.Load()),
		}
	})
	return c.result
}

// pollUntilCount blocks until sampleCount reaches target, the child process's
// stdout has been fully drained (ingestDone closed, meaning no further
// samples will ever arrive), or ctx is cancelled. Checking ingestDone is what
// keeps a telemetry source that spawned but then exited immediately (wrong
// pool name, bad flags) from wedging Start/Stop forever waiting on a count
// that will never be reached.
func (c *Collector[S]) pollUntilCount(ctx context.Context, target int64) {
	for c.sampleCount.Load() < target {
		select {
		case <-c.ingestDone:
			return
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func isoTime(epochSeconds float64) string {
	return time.Unix(0, int64(epochSeconds*1e9)).UTC().Format(time.RFC3339Nano)
}
