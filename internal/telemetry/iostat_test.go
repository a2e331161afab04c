package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIostatSpec_ParseLine_Basic(t *testing.T) {
	spec := IostatSpec("tank", 5, false)
	name, args := spec.Command()
	assert.Equal(t, "zpool", name)
	assert.Equal(t, []string{"iostat", "-H", "-y", "tank", "5"}, args)

	fields := []string{"tank", "1.2T", "800G", "1.77K", "292M", "120M", "45M"}
	s, ok := spec.ParseLine(fields, 100.0, "2026-07-31T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, "tank", s.PoolName)
	assert.Equal(t, "1.2T", s.CapacityUsed)
	assert.InDelta(t, 1770, s.OperationsRead, 1e-6)
	assert.InDelta(t, 292e6, s.OperationsWrite, 1e-6)
	assert.Equal(t, "-", s.TotalWaitRead)
	assert.InDelta(t, 1770+292e6, spec.TotalIOPS(s), 1e-6)
}

func TestIostatSpec_ParseLine_TooFewFields(t *testing.T) {
	spec := IostatSpec("tank", 5, false)
	_, ok := spec.ParseLine([]string{"tank", "1.2T"}, 0, "")
	assert.False(t, ok)
}

func TestIostatSpec_ParseLine_Extended(t *testing.T) {
	spec := IostatSpec("tank", 5, true)
	name, args := spec.Command()
	assert.Equal(t, []string{"iostat", "-H", "-y", "-l", "tank", "5"}, args)

	fields := []string{
		"tank", "1.2T", "800G", "1.77K", "292M", "120M", "45M",
		"1ms", "2ms", "500us", "600us", "100us", "120us", "50us", "60us",
		"10ms", "5ms",
	}
	s, ok := spec.ParseLine(fields, 0, "")
	require.True(t, ok)
	assert.Equal(t, "1ms", s.TotalWaitRead)
	assert.Equal(t, "2ms", s.TotalWaitWrite)
	assert.Equal(t, "10ms", s.ScrubWait)
	assert.Equal(t, "5ms", s.TrimWait)
	_ = name
}

func TestIostatSpec_ParseLine_ExtendedMissingOptionalTail(t *testing.T) {
	spec := IostatSpec("tank", 5, true)
	fields := []string{
		"tank", "1.2T", "800G", "1.77K", "292M", "120M", "45M",
		"1ms", "2ms", "500us", "600us", "100us", "120us", "50us", "60us",
	}
	s, ok := spec.ParseLine(fields, 0, "")
	require.True(t, ok)
	assert.Equal(t, "-", s.ScrubWait)
	assert.Equal(t, "-", s.TrimWait)
}

func TestIostatSpec_IsHeader(t *testing.T) {
	spec := IostatSpec("tank", 5, false)
	assert.True(t, spec.IsHeader([]string{"capacity", "operations", "bandwidth"}))
	assert.False(t, spec.IsHeader([]string{"tank", "1.2T", "800G"}))
}
