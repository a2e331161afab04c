package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_Empty(t *testing.T) {
	s := Reduce(nil)
	assert.Equal(t, 0, s.Count)
	assert.Zero(t, s.Mean)
	assert.Zero(t, s.P99)
}

func TestReduce_SingleValue(t *testing.T) {
	s := Reduce([]float64{42})
	require.Equal(t, 1, s.Count)
	assert.Equal(t, 42.0, s.Mean)
	assert.Equal(t, 42.0, s.Median)
	assert.Equal(t, 42.0, s.Min)
	assert.Equal(t, 42.0, s.Max)
	assert.Equal(t, 42.0, s.P50)
	assert.Equal(t, 42.0, s.P99)
	assert.Zero(t, s.StdDev)
}

func TestReduce_KnownPopulation(t *testing.T) {
	samples := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s := Reduce(samples)

	require.Equal(t, 10, s.Count)
	assert.InDelta(t, 5.5, s.Mean, 1e-9)
	assert.InDelta(t, 5.5, s.Median, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
	// population std dev of 1..10
	assert.InDelta(t, 2.8722813232690143, s.StdDev, 1e-9)
	assert.InDelta(t, s.StdDev/s.Mean*100, s.CVPercent, 1e-9)
	// p50 via linear interpolation at idx 0.5*9 = 4.5 -> between samples[4]=5, samples[5]=6
	assert.InDelta(t, 5.5, s.P50, 1e-9)
	// p99 at idx 0.99*9 = 8.91 -> between samples[8]=9, samples[9]=10
	assert.InDelta(t, 9.91, s.P99, 1e-9)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	samples := []float64{5, 3, 1, 4, 2}
	original := append([]float64(nil), samples...)
	Reduce(samples)
	assert.Equal(t, original, samples)
}

func TestReduce_ZeroMeanCV(t *testing.T) {
	s := Reduce([]float64{-1, 0, 1})
	assert.Zero(t, s.CVPercent)
}
