package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

func TestIsNone(t *testing.T) {
	assert.True(t, isNone([]string{"none"}))
	assert.False(t, isNone([]string{"all"}))
	assert.False(t, isNone([]string{"none", "tank"}))
	assert.False(t, isNone(nil))
}

func TestResolvePools_All(t *testing.T) {
	all := []model.PoolInfo{{Name: "tank"}, {Name: "backup"}}
	got := resolvePools([]string{"all"}, all)
	assert.Equal(t, all, got)
}

func TestResolvePools_Subset(t *testing.T) {
	all := []model.PoolInfo{{Name: "tank"}, {Name: "backup"}, {Name: "scratch"}}
	got := resolvePools([]string{"backup", "scratch"}, all)
	assert.Len(t, got, 2)
	assert.Equal(t, "backup", got[0].Name)
	assert.Equal(t, "scratch", got[1].Name)
}

func TestBlockSizeBytes(t *testing.T) {
	assert.Equal(t, int64(1<<20), blockSizeBytes(""))
	assert.Equal(t, int64(16<<10), blockSizeBytes("16K"))
	assert.Equal(t, int64(1<<20), blockSizeBytes("1M"))
	assert.Equal(t, int64(4<<30), blockSizeBytes("4G"))
	assert.Equal(t, int64(1<<20), blockSizeBytes("garbage"))
	assert.Equal(t, int64(1<<20), blockSizeBytes("0M"))
}

func TestExtractPoolMetrics_PicksPeaksPerPool(t *testing.T) {
	record := &model.BenchmarkRecord{
		Pools: []model.PoolResult{
			{
				Name: "tank",
				DWPD: 0.5,
				BenchmarkDurationSeconds: 120,
				Benchmark: []model.ThreadConfigResult{
					{ThreadCount: 1, AverageWriteMBps: 100, AverageReadMBps: 90},
					{ThreadCount: 4, AverageWriteMBps: 300, AverageReadMBps: 80},
					{ThreadCount: 8, AverageWriteMBps: 250, AverageReadMBps: 400},
				},
			},
		},
	}

	metrics := extractPoolMetrics(record)
	pm, ok := metrics["tank"]
	assert.True(t, ok)
	assert.Equal(t, 300.0, pm.PeakWriteMBps)
	assert.Equal(t, 4, pm.PeakWriteThreads)
	assert.Equal(t, 400.0, pm.PeakReadMBps)
	assert.Equal(t, 8, pm.PeakReadThreads)
	assert.Equal(t, 0.5, pm.DWPD)
	assert.Equal(t, 120.0, pm.DurationSeconds)
}
