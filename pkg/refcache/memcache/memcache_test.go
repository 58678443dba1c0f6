package memcache

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beshu-tech/deltaglider/pkg/refcache"
)

func populateOnce(body string, calls *int) refcache.PopulateFunc {
	return func(_ context.Context) (io.ReadCloser, int64, error) {
		*calls++
		return io.NopCloser(&byteReader{data: []byte(body)}), int64(len(body)), nil
	}
}

func TestGet_PopulatesOnceThenCaches(t *testing.T) {
	c, err := New(Config{MaxEntries: 16})
	require.NoError(t, err)

	calls := 0
	populate := populateOnce("reference-bytes", &calls)

	r1, err := c.Get(context.Background(), "g1", populate)
	require.NoError(t, err)
	data1, _ := io.ReadAll(r1)
	assert.Equal(t, "reference-bytes", string(data1))

	r2, err := c.Get(context.Background(), "g1", populate)
	require.NoError(t, err)
	data2, _ := io.ReadAll(r2)
	assert.Equal(t, "reference-bytes", string(data2))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestInvalidate(t *testing.T) {
	c, err := New(Config{MaxEntries: 16})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "g1", populateOnce("data", new(int)))
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(context.Background(), "g1"))
	assert.Equal(t, 0, c.Stats().Entries)
}
