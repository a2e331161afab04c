package telemetry

import (
	"strconv"
	"strings"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

// arcCoreFields is always requested, matching the order
// original_source/core/arcstat_collector.py's ARCSTAT_FIELDS uses before
// the L2ARC group.
var arcCoreFields = []string{
	"hit%", "miss%", "arcsz", "read", "hits", "miss",
	"dh%", "dm%", "ph%", "pm%",
	"mfusz%", "mrusz%", "mfu", "mru",
}

var arcL2Fields = []string{"l2hit%", "l2size", "l2bytes"}

var arcZfetchFields = []string{"zhits", "zmisses", "zissued", "zahead"}

// ArcSpec builds a Spec[model.ArcSample] for `arcstat -p -f <fields>
// <interval>`. hasL2ARC selects whether the L2ARC field group is requested
// — including it on a system without L2ARC crashes the external tool, so
// the caller must resolve this via platform.Adapter.DetectL2ARC first
// (spec §4.4).
func ArcSpec(intervalSeconds int, hasL2ARC bool) Spec[model.ArcSample] {
	fields := append([]string{}, arcCoreFields...)
	if hasL2ARC {
		fields = append(fields, arcL2Fields...)
	}
	fields = append(fields, arcZfetchFields...)

	l2Offset := len(arcCoreFields)
	zfetchOffset := l2Offset
	if hasL2ARC {
		zfetchOffset += len(arcL2Fields)
	}

	return Spec[model.ArcSample]{
		Command: func() (string, []string) {
			return "arcstat", []string{"-p", "-f", strings.Join(fields, ","), strconv.Itoa(intervalSeconds)}
		},
		IsHeader: func(row []string) bool {
			for _, want := range fields {
				for _, got := range row {
					if got == want {
						return true
					}
				}
			}
			return false
		},
		ParseLine: func(row []string, ts float64, tsISO string) (model.ArcSample, bool) {
			if len(row) < len(fields) {
				return model.ArcSample{}, false
			}
			vals := make([]float64, len(fields))
			for i := range fields {
				v, err := strconv.ParseFloat(row[i], 64)
				if err != nil {
					return model.ArcSample{}, false
				}
				vals[i] = v
			}

			s := model.ArcSample{
				Timestamp:           ts,
				HitPercent:          vals[0],
				MissPercent:         vals[1],
				ArcSizeGiB:          vals[2] / (1024 * 1024 * 1024),
				ReadsPerSec:         vals[3],
				HitsPerSec:          vals[4],
				MissesPerSec:        vals[5],
				DemandHitPercent:    vals[6],
				DemandMissPercent:   vals[7],
				PrefetchHitPercent:  vals[8],
				PrefetchMissPercent: vals[9],
				MFUSizePercent:      vals[10],
				MRUSizePercent:      vals[11],
				MFUHitsPerSec:       vals[12],
				MRUHitsPerSec:       vals[13],
				L2Present:           hasL2ARC,
			}

			if hasL2ARC {
				s.L2HitPercent = vals[l2Offset]
				s.L2SizeGiB = vals[l2Offset+1] / (1024 * 1024 * 1024)
				s.L2BytesMBps = vals[l2Offset+2] / (1024 * 1024)
			}

			s.ZfetchHits = vals[zfetchOffset]
			s.ZfetchMisses = vals[zfetchOffset+1]

			_ = tsISO
			return s, true
		},
		// No TotalIOPS: phase detection attaches only to the iostat stream
		// (spec §4.5).
		TotalIOPS: nil,
		SetPhase:  func(*model.ArcSample, string) {},
		SetSegment: func(s *model.ArcSample, label string) {
			s.SegmentLabel = label
		},
	}
}
