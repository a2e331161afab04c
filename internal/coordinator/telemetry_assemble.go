package coordinator

import (
	"github.com/nickf1227/tn-bench-go/internal/model"
	"github.com/nickf1227/tn-bench-go/internal/phase"
	"github.com/nickf1227/tn-bench-go/internal/telemetry"
)

func buildIostatStream(r telemetry.Result[model.IostatSample]) *model.TelemetryStream {
	return &model.TelemetryStream{
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		WarmupIterations:    r.WarmupIterations,
		CooldownIterations:  r.CooldownIterations,
		IostatSamples:       r.Samples,
		PhaseSpans:          convertSpans(r.Spans),
	}
}

func buildArcStream(r telemetry.Result[model.ArcSample]) *model.TelemetryStream {
	return &model.TelemetryStream{
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		WarmupIterations:   r.WarmupIterations,
		CooldownIterations: r.CooldownIterations,
		ArcSamples:         r.Samples,
	}
}

func convertSpans(spans []phase.Span) []model.PhaseSpan {
	out := make([]model.PhaseSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, model.PhaseSpan{
			Phase:        string(s.Phase),
			StartTime:    s.StartTime,
			EndTime:      s.EndTime,
			StartIndex:   s.StartIndex,
			EndIndex:     s.EndIndex,
			SampleCount:  s.SampleCount,
			SegmentLabel: s.SegmentLabel,
		})
	}
	return out
}
