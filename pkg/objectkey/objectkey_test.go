package objectkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDestination_Derivations(t *testing.T) {
	d := Destination{Bucket: "b", Key: "rel/v1.0.0.zip"}

	assert.Equal(t, "rel", d.Prefix())
	assert.Equal(t, "v1.0.0.zip", d.Filename())
	assert.Equal(t, "zip", d.Family())
	assert.Equal(t, "rel::zip", d.GroupID())
	assert.Equal(t, "rel/reference.bin", d.ReferenceKey())
	assert.Equal(t, "rel/v1.0.0.zip.dg", d.DeltaStorageKey())
	assert.Equal(t, "rel/v1.0.0.zip", d.DirectStorageKey())
}

func TestDestination_NoPrefix(t *testing.T) {
	d := Destination{Bucket: "b", Key: "notes.txt"}
	assert.Equal(t, "", d.Prefix())
	assert.Equal(t, "reference.bin", d.ReferenceKey())
	assert.Equal(t, "::txt", d.GroupID())
}

func TestLogicalKeyFromDeltaKey(t *testing.T) {
	key, isDelta := LogicalKeyFromDeltaKey("rel/v2.zip.dg")
	assert.True(t, isDelta)
	assert.Equal(t, "rel/v2.zip", key)

	key, isDelta = LogicalKeyFromDeltaKey("rel/notes.txt")
	assert.False(t, isDelta)
	assert.Equal(t, "rel/notes.txt", key)
}

func TestPrefixFromReferenceKey(t *testing.T) {
	assert.Equal(t, "rel", PrefixFromReferenceKey("rel/reference.bin"))
	assert.Equal(t, "", PrefixFromReferenceKey("reference.bin"))
}
