package rediscache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey_NamespacedByBucket(t *testing.T) {
	s := &Store{}
	assert.Equal(t, "dg:head:bucket-a:rel/reference.bin", s.cacheKey("bucket-a", "rel/reference.bin"))
	assert.NotEqual(t, s.cacheKey("bucket-a", "k"), s.cacheKey("bucket-b", "k"))
}

func TestAbsentMarker_NeverCollidesWithValidJSON(t *testing.T) {
	assert.NotEqual(t, "{", absentMarker)
}
