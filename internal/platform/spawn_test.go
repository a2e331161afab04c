package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawn_StreamsLines(t *testing.T) {
	ctx := context.Background()
	proc, err := Spawn(ctx, "sh", "-c", "printf 'a\\nb\\nc\\n'")
	require.NoError(t, err)

	var got []string
	for line := range proc.Lines() {
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.NoError(t, proc.Terminate())
}

func TestSpawn_TerminateStopsLongRunningProcess(t *testing.T) {
	ctx := context.Background()
	proc, err := Spawn(ctx, "sleep", "30")
	require.NoError(t, err)

	start := time.Now()
	_ = proc.Terminate()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, killGrace+2*time.Second, "terminate should not block past the grace window plus slack")
}

func TestSpawn_TerminateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	proc, err := Spawn(ctx, "sh", "-c", "exit 0")
	require.NoError(t, err)

	for range proc.Lines() {
	}

	err1 := proc.Terminate()
	err2 := proc.Terminate()
	assert.Equal(t, err1, err2)
}

func TestSpawn_UnknownCommandReturnsTransportError(t *testing.T) {
	_, err := Spawn(context.Background(), "definitely-not-a-real-binary-xyz")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, Transport, perr.Kind)
}
