package deltacodec

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPatch_RoundTrip(t *testing.T) {
	reference := randomBytes(5 * 1024 * 1024)
	target := mutate(reference, 3*1024*1024, 1024*1024, 200*1024)

	index := Index(reference)
	delta, err := Diff(index, target)
	require.NoError(t, err)

	patched, err := Patch(reference, delta)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(target, patched))
}

func TestDiffPatch_IdenticalBytesProduceTinyDelta(t *testing.T) {
	reference := randomBytes(2 * 1024 * 1024)

	index := Index(reference)
	delta, err := Diff(index, reference)
	require.NoError(t, err)

	assert.Less(t, len(delta), len(reference)/10)

	patched, err := Patch(reference, delta)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(reference, patched))
}

func TestDiffPatch_Deterministic(t *testing.T) {
	reference := randomBytes(1024 * 1024)
	target := mutate(reference, 100*1024, 200*1024, 10*1024)

	index := Index(reference)
	d1, err := Diff(index, target)
	require.NoError(t, err)
	d2, err := Diff(index, target)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(d1, d2))
}

func TestDiffPatch_EmptyTarget(t *testing.T) {
	reference := randomBytes(1024 * 1024)
	index := Index(reference)

	delta, err := Diff(index, []byte{})
	require.NoError(t, err)

	patched, err := Patch(reference, delta)
	require.NoError(t, err)
	assert.Empty(t, patched)
}

func TestIsDelta(t *testing.T) {
	reference := randomBytes(64 * 1024)
	index := Index(reference)
	delta, err := Diff(index, reference)
	require.NoError(t, err)

	assert.True(t, IsDelta(delta))
	assert.False(t, IsDelta([]byte("not a delta")))
}

func randomBytes(n int) []byte {
	src := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(src.Uint32())
	}
	return b
}

// mutate copies src and replaces the region [start,start+length) with
// fresh random bytes, simulating a new release build that shares most
// of its content with the previous one but differs in a changed region.
func mutate(src []byte, start, length, insertSize int) []byte {
	out := make([]byte, 0, len(src)+insertSize)
	out = append(out, src[:start]...)
	out = append(out, randomBytes(insertSize)...)
	out = append(out, src[start+length:]...)
	return out
}
