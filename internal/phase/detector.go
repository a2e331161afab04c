// Package phase implements the streaming phase-detection state machine
// (component C5): it classifies a live or replayed total-IOPS series into
// labelled, non-overlapping spans with hysteresis.
package phase

import "math"

// Phase is one of the five classifications a sample's time window can
// receive.
type Phase string

const (
	Idle        Phase = "idle"
	Warmup      Phase = "warmup"
	SteadyState Phase = "steady_state"
	Cooldown    Phase = "cooldown"
	Transition  Phase = "transition"
)

// Params tunes the classifier. Zero-value Params is invalid; use
// DefaultParams().
type Params struct {
	IdleThreshold    float64
	ActiveThreshold  float64
	SteadyCVMax      float64 // percent
	WindowSize       int
	MinHoldSamples   int
}

// DefaultParams returns the defaults named in spec §4.5.
func DefaultParams() Params {
	return Params{
		IdleThreshold:   500,
		ActiveThreshold: 5000,
		SteadyCVMax:     50,
		WindowSize:      3,
		MinHoldSamples:  2,
	}
}

// Span is one completed or open phase span, index- and time-bounded.
// Invariants (enforced by Detector): StartIndex <= EndIndex, spans are
// non-overlapping and index-contiguous, and the concatenation of all spans'
// index ranges equals [0, N-1] for the N samples fed to the detector.
type Span struct {
	Phase        Phase
	StartTime    float64
	EndTime      float64
	StartIndex   int
	EndIndex     int // inclusive
	SampleCount  int
	SegmentLabel string
}

// Detector is a streaming classifier. It is NOT safe for concurrent use; the
// contract (spec §5) is that it is owned exclusively by one ingest
// goroutine.
type Detector struct {
	params Params

	window []float64 // rolling window, bounded length params.WindowSize

	committed Phase
	candidate Phase
	candCount int

	prevWindowMean float64
	haveCandidate  bool

	spans []Span
	open  *Span

	index int
}

// New creates a Detector in the IDLE committed state with no open span yet;
// the first sample observed opens the first span.
func New(params Params) *Detector {
	return &Detector{
		params:    params,
		committed: Idle,
	}
}

// Observe classifies one (totalIOPS, timestamp, segmentLabel) sample,
// advances the state machine, and returns the phase now committed for this
// sample (which may differ from the phase committed for the *previous*
// sample, i.e. a transition may commit on this very call).
func (d *Detector) Observe(totalIOPS float64, timestamp float64, segmentLabel string) Phase {
	d.pushWindow(totalIOPS)

	raw := d.classify()

	if d.haveCandidate && raw == d.candidate {
		d.candCount++
	} else {
		d.candidate = raw
		d.candCount = 1
		d.haveCandidate = true
	}

	if d.candCount >= d.params.MinHoldSamples && raw != d.committed {
		d.commit(raw, timestamp, segmentLabel)
	}

	if d.open == nil {
		d.open = &Span{
			Phase:        d.committed,
			StartTime:    timestamp,
			EndTime:      timestamp,
			StartIndex:   d.index,
			EndIndex:     d.index,
			SampleCount:  0,
			SegmentLabel: segmentLabel,
		}
	}
	d.open.EndIndex = d.index
	d.open.EndTime = timestamp
	d.open.SampleCount++

	d.index++

	// Update "previous window mean" only when the window is full, since
	// WARMUP/COOLDOWN classification compares against the last full window.
	if len(d.window) == d.params.WindowSize {
		d.prevWindowMean = windowMean(d.window)
	}

	return d.committed
}

func (d *Detector) pushWindow(v float64) {
	d.window = append(d.window, v)
	if len(d.window) > d.params.WindowSize {
		d.window = d.window[1:]
	}
}

func (d *Detector) classify() Phase {
	mean := windowMean(d.window)
	full := len(d.window) == d.params.WindowSize

	if mean < d.params.IdleThreshold {
		return Idle
	}

	if full {
		cv := windowCV(d.window, mean)
		if mean >= d.params.ActiveThreshold && cv < d.params.SteadyCVMax {
			return SteadyState
		}
	}

	if (d.committed == Idle || d.committed == Transition) &&
		mean >= d.params.IdleThreshold && d.prevWindowMean > 0 && mean > 1.5*d.prevWindowMean {
		return Warmup
	}

	if d.committed == SteadyState && d.prevWindowMean > 0 && mean < 0.5*d.prevWindowMean {
		return Cooldown
	}

	return Transition
}

// commit closes the currently open span and starts a new one at the
// current index under the new committed phase.
func (d *Detector) commit(newPhase Phase, timestamp float64, segmentLabel string) {
	if d.open != nil {
		d.spans = append(d.spans, *d.open)
	}
	d.committed = newPhase
	d.open = &Span{
		Phase:        newPhase,
		StartTime:    timestamp,
		EndTime:      timestamp,
		StartIndex:   d.index,
		EndIndex:     d.index,
		SampleCount:  0,
		SegmentLabel: segmentLabel,
	}
}

// Finish closes the currently open span (if any) and returns the full
// ordered span list. Safe to call once; calling it again returns the same
// result with no further mutation.
func (d *Detector) Finish() []Span {
	if d.open != nil {
		d.spans = append(d.spans, *d.open)
		d.open = nil
	}
	return d.spans
}

func windowMean(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

func windowCV(window []float64, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range window {
		d := v - mean
		sqDiff += d * d
	}
	variance := sqDiff / float64(len(window))
	stdDev := math.Sqrt(variance)
	return stdDev / mean * 100
}
