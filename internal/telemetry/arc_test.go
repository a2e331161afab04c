package telemetry

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowFor(fields []string) []string {
	row := make([]string, len(fields))
	for i := range fields {
		row[i] = strconv.Itoa(i + 1)
	}
	return row
}

func TestArcSpec_NoL2ARC(t *testing.T) {
	spec := ArcSpec(1, false)
	name, args := spec.Command()
	assert.Equal(t, "arcstat", name)
	require.Len(t, args, 3)
	assert.NotContains(t, args[1], "l2hit%")

	row := rowFor(arcCoreFields)
	row = append(row, rowFor(arcZfetchFields)...)

	s, ok := spec.ParseLine(row, 0, "")
	require.True(t, ok)
	assert.False(t, s.L2Present)
	assert.Zero(t, s.L2HitPercent)
	assert.Equal(t, 1.0, s.HitPercent)
	assert.Equal(t, 2.0, s.MissPercent)
}

func TestArcSpec_WithL2ARC(t *testing.T) {
	spec := ArcSpec(1, true)
	_, args := spec.Command()
	assert.True(t, strings.Contains(args[1], "l2hit%"))

	row := rowFor(arcCoreFields)
	row = append(row, rowFor(arcL2Fields)...)
	row = append(row, rowFor(arcZfetchFields)...)

	s, ok := spec.ParseLine(row, 0, "")
	require.True(t, ok)
	assert.True(t, s.L2Present)
	assert.NotZero(t, s.L2SizeGiB)
}

func TestArcSpec_ParseLine_ShortRowRejected(t *testing.T) {
	spec := ArcSpec(1, false)
	_, ok := spec.ParseLine([]string{"1", "2"}, 0, "")
	assert.False(t, ok)
}

func TestArcSpec_TotalIOPSUnset(t *testing.T) {
	spec := ArcSpec(1, false)
	assert.Nil(t, spec.TotalIOPS)
}

func TestArcSpec_ArcSizeConvertsBytesToGiB(t *testing.T) {
	spec := ArcSpec(1, false)
	row := rowFor(arcCoreFields)
	// arcsz is the 3rd core field (index 2); override with an exact byte count.
	row[2] = strconv.FormatInt(2*1024*1024*1024, 10)
	row = append(row, rowFor(arcZfetchFields)...)

	s, ok := spec.ParseLine(row, 0, "")
	require.True(t, ok)
	assert.InDelta(t, 2.0, s.ArcSizeGiB, 1e-9)
}
