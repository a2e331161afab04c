package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRollups_SplitsByPhaseAndSegment(t *testing.T) {
	samples := []PhasedSample{
		{Value: 100, Phase: "idle", SegmentLabel: "0", Active: false},
		{Value: 5000, Phase: "warmup", SegmentLabel: "0", Active: true},
		{Value: 8000, Phase: "steady_state", SegmentLabel: "0", Active: true},
		{Value: 8200, Phase: "steady_state", SegmentLabel: "0", Active: true},
		{Value: 7900, Phase: "steady_state", SegmentLabel: "1", Active: true},
		{Value: 8100, Phase: "steady_state", SegmentLabel: "1", Active: true},
	}
	spans := []PhaseSpanCount{
		{Phase: "idle", SampleCount: 1},
		{Phase: "warmup", SampleCount: 1},
		{Phase: "steady_state", SampleCount: 4},
	}

	r := ComputeRollups(samples, spans)

	require.Equal(t, 6, r.AllSamples.Count)
	require.Equal(t, 5, r.ActiveOnly.Count)
	require.Equal(t, 4, r.SteadyState.Count)

	require.Contains(t, r.PerSegmentSteadyState, "0")
	require.Contains(t, r.PerSegmentSteadyState, "1")
	assert.Equal(t, 2, r.PerSegmentSteadyState["0"].Count)
	assert.Equal(t, 2, r.PerSegmentSteadyState["1"].Count)

	// warmup span has only 1 sample, below MinPhaseSamples, so it is excluded
	// from per_phase even though warmup samples exist.
	_, warmupPresent := r.PerPhase["warmup"]
	assert.False(t, warmupPresent)

	require.Contains(t, r.PerPhase, "steady_state")
	assert.Equal(t, 4, r.PerPhase["steady_state"].Count)
}

func TestComputeRollups_EmptyInput(t *testing.T) {
	r := ComputeRollups(nil, nil)
	assert.Zero(t, r.AllSamples.Count)
	assert.Zero(t, r.ActiveOnly.Count)
	assert.Zero(t, r.SteadyState.Count)
	assert.Empty(t, r.PerSegmentSteadyState)
	assert.Empty(t, r.PerPhase)
}

func TestComputeRollups_BelowMinPhaseSamplesExcludedFromPerPhase(t *testing.T) {
	samples := []PhasedSample{
		{Value: 8000, Phase: "steady_state", SegmentLabel: "0", Active: true},
		{Value: 8200, Phase: "steady_state", SegmentLabel: "0", Active: true},
	}
	spans := []PhaseSpanCount{{Phase: "steady_state", SampleCount: 2}}

	r := ComputeRollups(samples, spans)

	assert.Equal(t, 2, r.SteadyState.Count)
	_, present := r.PerPhase["steady_state"]
	assert.False(t, present, "span below MinPhaseSamples must not produce a per_phase entry")
}
