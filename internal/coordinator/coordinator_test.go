package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDWPD(t *testing.T) {
	// 100 GiB written to a 1000 GiB pool over 1 day (86400s) = 0.1 DWPD.
	assert.InDelta(t, 0.1, computeDWPD(100, 1000, 86400), 1e-9)
}

func TestComputeDWPD_GuardsAgainstDivideByZero(t *testing.T) {
	assert.Equal(t, 0.0, computeDWPD(100, 0, 86400))
	assert.Equal(t, 0.0, computeDWPD(100, 1000, 0))
}

func TestFormatGiB(t *testing.T) {
	assert.Equal(t, "12.3", formatGiB(12.34))
	assert.Equal(t, "0.0", formatGiB(0))
}

func TestCoordinator_poolBlockSizeBytes_DefaultsTo1MiB(t *testing.T) {
	c := &Coordinator{cfg: Config{}}
	assert.Equal(t, int64(1<<20), c.poolBlockSizeBytes())

	c = &Coordinator{cfg: Config{PoolBlockSizeBytes: 4096}}
	assert.Equal(t, int64(4096), c.poolBlockSizeBytes())
}
