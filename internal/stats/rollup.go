package stats

// MinPhaseSamples is the minimum number of samples a PhaseSpan must contain
// before its per-phase rollup is reported (spec: min_phase_samples = 3).
const MinPhaseSamples = 3

// PhasedSample is the minimal view a rollup needs of one telemetry sample:
// its numeric value for this rollup, its committed phase label, and its
// segment label. internal/model.IostatRollups builds these via small adapter
// closures over IostatSample rather than embedding Value/Active directly on
// the wire type.
type PhasedSample struct {
	Value        float64
	Phase        string
	SegmentLabel string
	Active       bool // true if this sample counts as "active" for active_only rollups
}

// Rollups holds the five sample-population summaries named in spec §4.6.
type Rollups struct {
	AllSamples           Summary            `json:"all_samples"`
	ActiveOnly           Summary            `json:"active_only"`
	SteadyState          Summary            `json:"steady_state"`
	PerSegmentSteadyState map[string]Summary `json:"per_segment_steady_state"`
	PerPhase             map[string]Summary `json:"per_phase"`
}

// PhaseSpanCount is the minimal view of a PhaseSpan a rollup needs: its
// phase label and how many samples it covers.
type PhaseSpanCount struct {
	Phase       string
	SampleCount int
}

// ComputeRollups builds all five rollups from a flat list of phased samples
// plus the span list (needed to know which phases had >= MinPhaseSamples
// samples in a single contiguous span — spec: "per_phase: keyed by
// PhaseSpan.phase for spans with >= min_phase_samples samples").
func ComputeRollups(samples []PhasedSample, spans []PhaseSpanCount) Rollups {
	all := make([]float64, 0, len(samples))
	active := make([]float64, 0, len(samples))
	steady := make([]float64, 0, len(samples))
	perSegment := make(map[string][]float64)

	for _, s := range samples {
		all = append(all, s.Value)
		if s.Active {
			active = append(active, s.Value)
		}
		if s.Phase == "steady_state" {
			steady = append(steady, s.Value)
			perSegment[s.SegmentLabel] = append(perSegment[s.SegmentLabel], s.Value)
		}
	}

	perSegmentSummary := make(map[string]Summary, len(perSegment))
	for label, vals := range perSegment {
		perSegmentSummary[label] = Reduce(vals)
	}

	eligiblePhases := make(map[string]bool)
	for _, span := range spans {
		if span.SampleCount >= MinPhaseSamples {
			eligiblePhases[span.Phase] = true
		}
	}

	perPhaseValues := make(map[string][]float64)
	for _, s := range samples {
		if eligiblePhases[s.Phase] {
			perPhaseValues[s.Phase] = append(perPhaseValues[s.Phase], s.Value)
		}
	}
	perPhaseSummary := make(map[string]Summary, len(perPhaseValues))
	for phase, vals := range perPhaseValues {
		perPhaseSummary[phase] = Reduce(vals)
	}

	return Rollups{
		AllSamples:            Reduce(all),
		ActiveOnly:             Reduce(active),
		SteadyState:            Reduce(steady),
		PerSegmentSteadyState:  perSegmentSummary,
		PerPhase:               perPhaseSummary,
	}
}
