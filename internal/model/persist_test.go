package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.234))
	assert.Equal(t, 1.24, Round2(1.236))
	assert.Equal(t, 0.0, Round2(0))
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "out_analytics.json", siblingPath("out.json", "_analytics.json"))
	assert.Equal(t, "out_report.md", siblingPath("out.json", "_report.md"))
	assert.Equal(t, "out.dat_report.md", siblingPath("out.dat", "_report.md"))
}

func TestTrimJSONExt(t *testing.T) {
	assert.Equal(t, "results", TrimJSONExt("results.json"))
	assert.Equal(t, "./tn_bench_results", TrimJSONExt("./tn_bench_results.json"))
	assert.Equal(t, "results.dat", TrimJSONExt("results.dat"))
	assert.Equal(t, "", TrimJSONExt(""))
}

func TestPrepareForEmit_DoesNotMutateInput(t *testing.T) {
	record := BenchmarkRecord{
		System: SystemInfo{MemoryGiB: 64.1234567},
		Pools: []PoolResult{
			{
				Name:           "tank",
				TotalWritesGiB: 12.3456,
				Benchmark: []ThreadConfigResult{
					{ThreadCount: 1, WriteSpeedsMBps: []float64{100.456}, AverageWriteMBps: 100.456},
				},
			},
		},
	}
	original := record

	emit := prepareForEmit(record, 5)

	assert.InDelta(t, 64.1234567, record.System.MemoryGiB, 1e-9, "input must not be mutated")
	assert.Equal(t, original.Pools[0].Benchmark[0].AverageWriteMBps, record.Pools[0].Benchmark[0].AverageWriteMBps)

	assert.InDelta(t, 64.12, emit.System.MemoryGiB, 1e-9)
	assert.Equal(t, 12.35, emit.Pools[0].TotalWritesGiB)
	assert.Equal(t, 100.46, emit.Pools[0].Benchmark[0].AverageWriteMBps)
}

func TestDownsampleIostat_KeepsEveryNthSample(t *testing.T) {
	samples := make([]IostatSample, 10)
	for i := range samples {
		samples[i] = IostatSample{Timestamp: float64(i)}
	}
	stream := TelemetryStream{IostatSamples: samples}

	out := downsampleIostat(stream, 3)
	require.Len(t, out.IostatSamples, 4) // indices 0,3,6,9
	assert.Equal(t, 0.0, out.IostatSamples[0].Timestamp)
	assert.Equal(t, 9.0, out.IostatSamples[3].Timestamp)
}

func TestDownsampleArc_KeepsEveryNthSample(t *testing.T) {
	samples := make([]ArcSample, 5)
	for i := range samples {
		samples[i] = ArcSample{Timestamp: float64(i)}
	}
	stream := TelemetryStream{ArcSamples: samples}

	out := downsampleArc(stream, 2)
	require.Len(t, out.ArcSamples, 3) // indices 0,2,4
}

func TestWriteResultFiles_WritesThreeFiles(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "result.json")

	record := BenchmarkRecord{SchemaVersion: SchemaVersion}
	err := WriteResultFiles(outPath, record, []byte(`{"overall_grade":"A"}`), "# report\n", 5)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got BenchmarkRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, SchemaVersion, got.SchemaVersion)

	analyticsData, err := os.ReadFile(filepath.Join(dir, "result_analytics.json"))
	require.NoError(t, err)
	assert.Contains(t, string(analyticsData), "overall_grade")

	reportData, err := os.ReadFile(filepath.Join(dir, "result_report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(reportData), "# report")
}

func TestWriteResultFiles_DownsampleFactorBelowOneTreatedAsOne(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "result.json")

	samples := make([]IostatSample, 3)
	record := BenchmarkRecord{
		Pools: []PoolResult{
			{Name: "tank", ZpoolIostatTelemetry: &TelemetryStream{IostatSamples: samples}},
		},
	}
	require.NoError(t, WriteResultFiles(outPath, record, []byte("{}"), "", 0))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got BenchmarkRecord
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got.Pools[0].ZpoolIostatTelemetry.IostatSamples, 3)
}
