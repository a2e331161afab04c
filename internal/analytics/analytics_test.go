package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickf1227/tn-bench-go/internal/model"
)

func threadResult(threads int, write, read float64) model.ThreadConfigResult {
	return model.ThreadConfigResult{ThreadCount: threads, AverageWriteMBps: write, AverageReadMBps: read}
}

func TestAnalyze_EmptyRecord(t *testing.T) {
	a := Analyze(&model.BenchmarkRecord{})
	assert.Equal(t, 0, a.Summary.TotalPoolsTested)
	assert.Equal(t, "N/A", a.OverallGrade)
	assert.Empty(t, a.PoolAnalysis)
}

func TestAnalyze_GoodLinearScalingGradesHigh(t *testing.T) {
	record := &model.BenchmarkRecord{
		Pools: []model.PoolResult{
			{
				Name: "tank",
				Benchmark: []model.ThreadConfigResult{
					threadResult(1, 100, 100),
					threadResult(2, 190, 190),
					threadResult(4, 380, 380),
				},
			},
		},
	}

	a := Analyze(record)
	pa, ok := a.PoolAnalysis["tank"]
	require.True(t, ok)
	assert.False(t, pa.BottleneckDetected)
	assert.InDelta(t, 95.0, pa.ScalingEfficiency["write"].EfficiencyPercent, 0.5)
	assert.Equal(t, "A", pa.Grade)
	assert.Equal(t, "A", a.OverallGrade)
	require.NotNil(t, pa.OptimalThreadWrite)
	assert.Equal(t, 4, *pa.OptimalThreadWrite)
}

func TestAnalyze_NegativeScalingFlagsBottleneck(t *testing.T) {
	record := &model.BenchmarkRecord{
		Pools: []model.PoolResult{
			{
				Name: "tank",
				Benchmark: []model.ThreadConfigResult{
					threadResult(1, 500, 500),
					threadResult(4, 100, 100), // 80% drop
				},
			},
		},
	}

	a := Analyze(record)
	pa := a.PoolAnalysis["tank"]
	assert.True(t, pa.BottleneckDetected)
	assert.NotEmpty(t, pa.Issues)
	assert.NotEmpty(t, a.Issues)
	assert.NotEmpty(t, a.Recommendations)
	assert.Equal(t, "F", pa.Grade)
}

func TestAnalyze_SkipsPoolsWithoutBenchmarkData(t *testing.T) {
	record := &model.BenchmarkRecord{
		Pools: []model.PoolResult{
			{Name: "empty", Skipped: true},
		},
	}
	a := Analyze(record)
	assert.Empty(t, a.PoolAnalysis)
}

func TestAnalyze_DiskVarianceDetection(t *testing.T) {
	record := &model.BenchmarkRecord{
		Disks: []model.DiskResult{
			{Name: "sda", Benchmark: model.DiskBenchmarkResult{AverageSpeed: 100}},
			{Name: "sdb", Benchmark: model.DiskBenchmarkResult{AverageSpeed: 100}},
			{Name: "sdc", Benchmark: model.DiskBenchmarkResult{AverageSpeed: 50}}, // far below avg(~83.3)
		},
	}
	a := Analyze(record)
	require.Contains(t, a.DiskAnalysis, "sdc")
	require.NotNil(t, a.DiskAnalysis["sdc"].VariancePercent)
	assert.Equal(t, "below", a.DiskAnalysis["sdc"].VsPoolAverage)
	assert.Contains(t, a.Issues, "sdc: variance from average")
}

func TestScalingEfficiency_SingleThreadOnlyReturnsZeroValue(t *testing.T) {
	eff := scalingEfficiency([]model.ThreadConfigResult{threadResult(1, 100, 100)}, true)
	assert.Equal(t, ScalingEfficiency{}, eff)
}

func TestOptimalThreads_PicksFastestThreadCount(t *testing.T) {
	benchmark := []model.ThreadConfigResult{
		threadResult(1, 100, 50),
		threadResult(2, 150, 200),
		threadResult(4, 120, 180),
	}
	write := optimalThreads(benchmark, true)
	read := optimalThreads(benchmark, false)
	require.NotNil(t, write)
	require.NotNil(t, read)
	assert.Equal(t, 2, *write)
	assert.Equal(t, 2, *read)
}

func TestOverallGrade_AveragesAcrossPools(t *testing.T) {
	assert.Equal(t, "N/A", overallGrade(nil))
	assert.Equal(t, "A", overallGrade(map[string]string{"a": "A"}))
	assert.Equal(t, "B", overallGrade(map[string]string{"a": "A", "b": "C"}))
}

func TestAnalyze_IsPure(t *testing.T) {
	record := &model.BenchmarkRecord{
		Pools: []model.PoolResult{
			{Name: "tank", Benchmark: []model.ThreadConfigResult{threadResult(1, 100, 100), threadResult(2, 150, 150)}},
		},
	}
	first := Analyze(record)
	second := Analyze(record)
	assert.Equal(t, first, second)
}
