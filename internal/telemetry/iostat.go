package telemetry

import (
	"strconv"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

// IostatSpec builds a Spec[model.IostatSample] for `zpool iostat -H -y [-l]
// <pool> <interval>`. extended selects the -l (latency) flag; the
// coordinator always passes true. When false the 7-column basic layout is
// expected and all latency fields become "-", per spec §4.4.
func IostatSpec(pool string, intervalSeconds int, extended bool) Spec[model.IostatSample] {
	return Spec[model.IostatSample]{
		Command: func() (string, []string) {
			args := []string{"iostat", "-H", "-y"}
			if extended {
				args = append(args, "-l")
			}
			args = append(args, pool, strconv.Itoa(intervalSeconds))
			return "zpool", args
		},
		IsHeader: func(fields []string) bool {
			for _, f := range fields {
				if f == "capacity" || f == "operations" {
					return true
				}
			}
			return false
		},
		ParseLine: func(fields []string, ts float64, tsISO string) (model.IostatSample, bool) {
			if len(fields) < 7 {
				return model.IostatSample{}, false
			}

			s := model.IostatSample{
				Timestamp:       ts,
				TimestampISO:    tsISO,
				PoolName:        fields[0],
				CapacityUsed:    fields[1],
				CapacityAvail:   fields[2],
				OperationsRead:  parseSuffixedCount(fields[3]),
				OperationsWrite: parseSuffixedCount(fields[4]),
				BandwidthRead:   fields[5],
				BandwidthWrite:  fields[6],
				TotalWaitRead:   "-",
				TotalWaitWrite:  "-",
				DiskWaitRead:    "-",
				DiskWaitWrite:   "-",
				SyncqWaitRead:   "-",
				SyncqWaitWrite:  "-",
				AsyncqWaitRead:  "-",
				AsyncqWaitWrite: "-",
				ScrubWait:       "-",
				TrimWait:        "-",
			}

			if extended && len(fields) >= 15 {
				s.TotalWaitRead = fields[7]
				s.TotalWaitWrite = fields[8]
				s.DiskWaitRead = fields[9]
				s.DiskWaitWrite = fields[10]
				s.SyncqWaitRead = fields[11]
				s.SyncqWaitWrite = fields[12]
				s.AsyncqWaitRead = fields[13]
				s.AsyncqWaitWrite = fields[14]
				if len(fields) > 15 {
					s.ScrubWait = fields[15]
				}
				if len(fields) > 16 {
					s.TrimWait = fields[16]
				}
			}

			return s, true
		},
		TotalIOPS: func(s model.IostatSample) float64 {
			return s.OperationsRead + s.OperationsWrite
		},
		SetPhase: func(s *model.IostatSample, p string) {
			s.Phase = p
		},
		SetSegment: func(s *model.IostatSample, label string) {
			s.SegmentLabel = label
		},
	}
}
