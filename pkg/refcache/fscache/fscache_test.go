package fscache

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/beshu-tech/deltaglider/pkg/dghash"
	"github.com/beshu-tech/deltaglider/pkg/refcache"
)

func populateWith(body string) refcache.PopulateFunc {
	return func(_ context.Context) (io.ReadCloser, int64, error) {
		return io.NopCloser(stringsReader(body)), int64(len(body)), nil
	}
}

func stringsReader(s string) io.Reader {
	return &byteReadCloser{data: []byte(s)}
}

func TestGet_PopulatesOnMiss(t *testing.T) {
	c, err := New(Config{Fs: afero.NewMemMapFs(), Root: "/cache"})
	require.NoError(t, err)

	calls := 0
	populate := func(ctx context.Context) (io.ReadCloser, int64, error) {
		calls++
		return populateWith("reference-bytes")(ctx)
	}

	r, err := c.Get(context.Background(), "rel::zip", populate)
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "reference-bytes", string(data))
	assert.Equal(t, 1, calls)

	// second call hits the cached file, not populate again
	r2, err := c.Get(context.Background(), "rel::zip", populate)
	require.NoError(t, err)
	data2, _ := io.ReadAll(r2)
	assert.Equal(t, "reference-bytes", string(data2))
	assert.Equal(t, 1, calls)
}

func TestGet_EncryptsAtRest(t *testing.T) {
	fs := afero.NewMemMapFs()
	key := make([]byte, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.New(key)
	require.NoError(t, err)

	c, err := New(Config{Fs: fs, Root: "/cache", AEAD: aead})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "rel::zip", populateWith("secret-reference"))
	require.NoError(t, err)

	raw, err := afero.ReadFile(fs, "/cache/"+dghash.SumBytes([]byte("rel::zip"))+".ref")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-reference")

	r, err := c.Get(context.Background(), "rel::zip", populateWith("should-not-be-called"))
	require.NoError(t, err)
	data, _ := io.ReadAll(r)
	assert.Equal(t, "secret-reference", string(data))
}

func TestInvalidate_RemovesCachedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(Config{Fs: fs, Root: "/cache"})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "g1", populateWith("data"))
	require.NoError(t, err)

	require.NoError(t, c.Invalidate(context.Background(), "g1"))

	exists, _ := afero.Exists(fs, "/cache/"+dghash.SumBytes([]byte("g1"))+".ref")
	assert.False(t, exists)
}

func TestEviction_UnderQuota(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := New(Config{Fs: fs, Root: "/cache", QuotaBytes: 10})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "g1", populateWith("0123456789"))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "g2", populateWith("abcdefghij"))
	require.NoError(t, err)

	stats := c.Stats()
	assert.LessOrEqual(t, stats.BytesUsed, int64(10))

	g1Exists, _ := afero.Exists(fs, "/cache/"+dghash.SumBytes([]byte("g1"))+".ref")
	assert.False(t, g1Exists)
}

func TestGet_EntryLargerThanQuotaFails(t *testing.T) {
	c, err := New(Config{Fs: afero.NewMemMapFs(), Root: "/cache", QuotaBytes: 4})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "g1", populateWith("too-big"))
	assert.ErrorIs(t, err, refcache.ErrEntryTooLarge)
}
