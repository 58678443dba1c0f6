package engine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

// The layout here is the one spec.md's grouping section describes as
// the common case: an ancestor prefix ("releases/") spanning several
// independent product groups ("releases/app/", "releases/other/"),
// each with its own reference.bin. DeleteRecursive purges every family
// it finds beneath the ancestor in one purgeGroupRecursive call per family, so
// a single call here must account for both nested groups' references.
func TestDeleteRecursive_PurgesEveryNestedGroupsReference(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payloadApp := randomPayload(1024*1024, 0x11)
	_, err := eng.PutObject(ctx, "b", "releases/app/v1.0.0.zip", bytes.NewReader(payloadApp), int64(len(payloadApp)))
	require.NoError(t, err)

	payloadOther := randomPayload(1024*1024, 0x22)
	_, err = eng.PutObject(ctx, "b", "releases/other/v1.0.0.zip", bytes.NewReader(payloadOther), int64(len(payloadOther)))
	require.NoError(t, err)

	n, err := eng.DeleteRecursive(ctx, "b", "releases")
	require.NoError(t, err)
	assert.Equal(t, 4, n) // 2 anchor deltas + 2 references

	_, err = store.Head(ctx, "b", "releases/app/reference.bin")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	_, err = store.Head(ctx, "b", "releases/other/reference.bin")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

// PurgeGroup is the single-group admin operation (the purge-group CLI
// command): unlike DeleteRecursive it must never reach past the exact
// (prefix, family) group an operator named, even under an ancestor
// prefix that also contains sibling groups, and even with force=true.
func TestPurgeGroup_DoesNotTouchSiblingGroupsUnderAncestorPrefix(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payloadApp := randomPayload(1024*1024, 0x33)
	_, err := eng.PutObject(ctx, "b", "releases/app/v1.0.0.zip", bytes.NewReader(payloadApp), int64(len(payloadApp)))
	require.NoError(t, err)

	payloadVendor := randomPayload(1024*1024, 0x44)
	_, err = eng.PutObject(ctx, "b", "releases/vendor/v1.0.0.deb", bytes.NewReader(payloadVendor), int64(len(payloadVendor)))
	require.NoError(t, err)

	// Naming the ancestor instead of the group's own directory matches
	// no group at all ("releases" has no reference.bin of its own), so
	// this is a no-op rather than reaching into "releases/vendor".
	n, err := eng.PurgeGroup(ctx, "b", "releases", "zip", true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = store.Head(ctx, "b", "releases/vendor/reference.bin")
	assert.NoError(t, err)

	n, err = eng.PurgeGroup(ctx, "b", "releases/app", "zip", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Head(ctx, "b", "releases/app/reference.bin")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	_, err = store.Head(ctx, "b", "releases/vendor/reference.bin")
	assert.NoError(t, err)
}

// The safety check that refuses a non-forced purge while deltas remain
// must also respect the same exact-group scoping: a sibling group's
// live deltas under an ancestor prefix must never block (or, worse,
// silently bypass a block on) a purge of an unrelated group.
func TestPurgeGroup_SafetyCheckIsScopedToExactGroup(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payloadApp := randomPayload(1024*1024, 0x77)
	_, err := eng.PutObject(ctx, "b", "releases/app/v1.0.0.zip", bytes.NewReader(payloadApp), int64(len(payloadApp)))
	require.NoError(t, err)
	payloadAppV2 := randomPayload(1024*1024, 0x78)
	_, err = eng.PutObject(ctx, "b", "releases/app/v2.0.0.zip", bytes.NewReader(payloadAppV2), int64(len(payloadAppV2)))
	require.NoError(t, err)

	payloadVendor := randomPayload(1024*1024, 0x99)
	_, err = eng.PutObject(ctx, "b", "releases/vendor/v1.0.0.deb", bytes.NewReader(payloadVendor), int64(len(payloadVendor)))
	require.NoError(t, err)

	// An ancestor-prefix call matches no group, so it is a no-op, not a
	// refusal and not a deletion of either sibling's deltas.
	n, err := eng.PurgeGroup(ctx, "b", "releases", "zip", false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// The "app" group genuinely has two live deltas against its own
	// reference; a non-forced purge of exactly that group must refuse.
	_, err = eng.PurgeGroup(ctx, "b", "releases/app", "zip", false)
	assert.ErrorIs(t, err, ErrReferencedByDeltas)

	_, err = store.Head(ctx, "b", "releases/app/reference.bin")
	assert.NoError(t, err)
	_, err = store.Head(ctx, "b", "releases/vendor/reference.bin")
	assert.NoError(t, err)
}
