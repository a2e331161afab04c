package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(d *Detector, values []float64) []Phase {
	got := make([]Phase, len(values))
	for i, v := range values {
		got[i] = d.Observe(v, float64(i), "0")
	}
	return got
}

func TestDetector_IdleUntilActive(t *testing.T) {
	d := New(DefaultParams())
	got := feed(d, []float64{0, 0, 0})
	for _, p := range got {
		assert.Equal(t, Idle, p)
	}
}

func TestDetector_CommitsSteadyStateAfterHysteresis(t *testing.T) {
	d := New(DefaultParams())
	// Ramp into a flat, active, low-CV window so classify() returns
	// SteadyState, then hold for MinHoldSamples before it commits.
	values := []float64{0, 0, 8000, 8000, 8000, 8000, 8000}
	got := feed(d, values)

	spans := d.Finish()
	require.NotEmpty(t, spans)

	lastPhase := got[len(got)-1]
	assert.Equal(t, SteadyState, lastPhase)
}

func TestDetector_SpansAreContiguousAndCoverAllSamples(t *testing.T) {
	d := New(DefaultParams())
	values := []float64{0, 0, 8000, 8000, 8000, 8000, 100, 100, 100}
	feed(d, values)
	spans := d.Finish()

	require.NotEmpty(t, spans)
	assert.Equal(t, 0, spans[0].StartIndex)
	assert.Equal(t, len(values)-1, spans[len(spans)-1].EndIndex)

	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].EndIndex+1, spans[i].StartIndex, "spans must be index-contiguous")
	}

	total := 0
	for _, s := range spans {
		total += s.SampleCount
		assert.LessOrEqual(t, s.StartIndex, s.EndIndex)
	}
	assert.Equal(t, len(values), total)
}

func TestDetector_FinishIsIdempotent(t *testing.T) {
	d := New(DefaultParams())
	feed(d, []float64{0, 8000, 8000, 8000, 8000})
	first := d.Finish()
	second := d.Finish()
	assert.Equal(t, first, second)
}

func TestDetector_SegmentLabelCarriesIntoSpan(t *testing.T) {
	d := New(DefaultParams())
	d.Observe(0, 0, "0")
	d.Observe(0, 1, "1")
	spans := d.Finish()
	require.NotEmpty(t, spans)
	// the open span's SegmentLabel is set from the first sample that opened it
	assert.Equal(t, "0", spans[0].SegmentLabel)
}
