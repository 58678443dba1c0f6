package dghash

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	digest, size, err := Sum(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", digest)
}

func TestSumBytes_MatchesSum(t *testing.T) {
	data := []byte("the quick brown fox")
	digest, _, err := Sum(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, digest, SumBytes(data))
}

func TestSumFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc123"), 0o644))

	digest, size, err := SumFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)
	assert.Equal(t, SumBytes([]byte("abc123")), digest)
}

func TestMatches(t *testing.T) {
	data := []byte("payload")
	assert.True(t, Matches(SumBytes(data), data))
	assert.False(t, Matches("deadbeef", data))
}
