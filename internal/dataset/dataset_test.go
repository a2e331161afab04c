package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRecordsize(t *testing.T) {
	assert.Equal(t, "1M", NormalizeRecordsize(" 1m "))
	assert.Equal(t, "128K", NormalizeRecordsize("128k"))
	assert.Equal(t, "", NormalizeRecordsize(""))
}

func TestDatasetName(t *testing.T) {
	assert.Equal(t, "tank/tn-bench", datasetName("tank"))
}
