package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
	"github.com/beshu-tech/deltaglider/pkg/objectstore/memstore"
	"github.com/beshu-tech/deltaglider/pkg/refcache/memcache"
)

func newTestEngine(t *testing.T) (*Engine, objectstore.Store) {
	t.Helper()
	store := memstore.New()
	cache, err := memcache.New(memcache.Config{MaxEntries: 64})
	require.NoError(t, err)

	eng, err := New(Config{Store: store, Cache: cache, MaxRatio: 0.5})
	require.NoError(t, err)
	return eng, store
}

func randomPayload(n int, seedByte byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seedByte
		if i%97 == 0 {
			b[i] = byte(i)
		}
	}
	return b
}

func TestPutObject_FirstUploadCreatesReferenceAndAnchor(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0xAB)
	out, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	assert.True(t, out.IsDelta)

	_, err = store.Head(ctx, "b", "rel/reference.bin")
	assert.NoError(t, err)

	_, err = store.Head(ctx, "b", "rel/v1.0.0.zip.dg")
	assert.NoError(t, err)
}

func TestPutGetObject_RoundTripThroughDelta(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	v1 := randomPayload(3*1024*1024, 0x11)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(v1), int64(len(v1)))
	require.NoError(t, err)

	v2 := append(append([]byte{}, v1[:1*1024*1024]...), randomPayload(200*1024, 0x22)...)
	v2 = append(v2, v1[1*1024*1024+200*1024:]...)
	out, err := eng.PutObject(ctx, "b", "rel/v2.0.0.zip", bytes.NewReader(v2), int64(len(v2)))
	require.NoError(t, err)
	assert.True(t, out.IsDelta)
	assert.Less(t, out.StoredSize, out.OriginalSize)

	body, info, err := eng.GetObject(ctx, "b", "rel/v2.0.0.zip")
	require.NoError(t, err)
	defer body.Close()

	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(v2, got))
	assert.Equal(t, int64(len(v2)), info.ContentLength)
}

func TestPutObject_SmallFileStoredDirect(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	small := []byte("tiny archive bytes")
	out, err := eng.PutObject(ctx, "b", "rel/tiny.zip", bytes.NewReader(small), int64(len(small)))
	require.NoError(t, err)
	assert.False(t, out.IsDelta)

	_, err = store.Head(ctx, "b", "rel/tiny.zip")
	assert.NoError(t, err)
}

func TestPutObject_TextFileStoredDirect(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x33)
	out, err := eng.PutObject(ctx, "b", "rel/CHANGELOG.md", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	assert.False(t, out.IsDelta)
}

func TestGetObject_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, _, err := eng.GetObject(context.Background(), "b", "rel/missing.zip")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestHeadObject_ReportsLogicalSize(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x44)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	head, err := eng.HeadObject(ctx, "b", "rel/v1.0.0.zip")
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), head.ContentLength)
	assert.True(t, head.IsDelta)
}

func TestListObjects_HidesReferenceAndUnwrapsDeltaSuffix(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	for i, b := range []byte{0x01, 0x02} {
		payload := randomPayload(2*1024*1024, b)
		key := "rel/v" + string(rune('0'+i)) + ".zip"
		_, err := eng.PutObject(ctx, "b", key, bytes.NewReader(payload), int64(len(payload)))
		require.NoError(t, err)
	}

	out, err := eng.ListObjects(ctx, "b", objectstore.ListOptions{Prefix: "rel/"})
	require.NoError(t, err)

	for _, obj := range out.Contents {
		assert.NotContains(t, obj.Key, "reference.bin")
		assert.NotContains(t, obj.Key, ".dg")
	}
	assert.Len(t, out.Contents, 2)
}

func TestDeleteObject_RemovesDeltaNotReference(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x55)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	_, err = eng.DeleteObject(ctx, "b", "rel/v1.0.0.zip")
	require.NoError(t, err)

	_, err = store.Head(ctx, "b", "rel/v1.0.0.zip.dg")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)

	_, err = store.Head(ctx, "b", "rel/reference.bin")
	assert.NoError(t, err)
}

func TestPurgeGroup_RefusesWhenDeltasRemain(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x66)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	_, err = eng.PurgeGroup(ctx, "b", "rel", "zip", false)
	assert.True(t, errors.Is(err, ErrReferencedByDeltas))
}

func TestPurgeGroup_ForceDeletesEverything(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x77)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	n, err := eng.PurgeGroup(ctx, "b", "rel", "zip", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // anchor delta + reference

	_, err = store.Head(ctx, "b", "rel/reference.bin")
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestVerify_DetectsCorruption(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0x88)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	assert.NoError(t, eng.Verify(ctx, "b", "rel/v1.0.0.zip"))

	// Corrupt the reference directly, bypassing the engine.
	corrupt := randomPayload(2*1024*1024, 0x99)
	_, err = store.Put(ctx, "b", "rel/reference.bin", bytes.NewReader(corrupt), int64(len(corrupt)), objectstore.PutOptions{})
	require.NoError(t, err)

	err = eng.Verify(ctx, "b", "rel/v1.0.0.zip")
	assert.Error(t, err)
}

func TestGetHeadObject_BothDirectAndDeltaExistIsStorageInconsistency(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader([]byte("direct bytes")), int64(len("direct bytes")), objectstore.PutOptions{
		Metadata: objectstore.Metadata{metaKind: kindDirect},
	})
	require.NoError(t, err)

	_, err = store.Put(ctx, "b", "rel/v1.0.0.zip.dg", bytes.NewReader(nil), 0, objectstore.PutOptions{
		Metadata: objectstore.Metadata{metaKind: kindDelta},
	})
	require.NoError(t, err)

	_, _, err = eng.GetObject(ctx, "b", "rel/v1.0.0.zip")
	assert.ErrorIs(t, err, ErrStorageInconsistency)

	_, err = eng.HeadObject(ctx, "b", "rel/v1.0.0.zip")
	assert.ErrorIs(t, err, ErrStorageInconsistency)
}

func TestPutObject_FirstUploadAnchorIsZeroByte(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(2*1024*1024, 0xCD)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	info, err := store.Head(ctx, "b", "rel/v1.0.0.zip.dg")
	require.NoError(t, err)
	assert.Equal(t, "0", info.Metadata[metaDeltaSize])
	assert.Equal(t, "rel/reference.bin", info.Metadata[metaRefKey])

	body, _, err := store.Get(ctx, "b", "rel/v1.0.0.zip.dg")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestGetObject_ReferenceCacheIsScopedPerBucket(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	payloadA := randomPayload(1024*1024, 0x01)
	_, err := eng.PutObject(ctx, "bucket-a", "rel/v1.0.0.zip", bytes.NewReader(payloadA), int64(len(payloadA)))
	require.NoError(t, err)

	payloadB := randomPayload(1024*1024, 0x02)
	_, err = eng.PutObject(ctx, "bucket-b", "rel/v1.0.0.zip", bytes.NewReader(payloadB), int64(len(payloadB)))
	require.NoError(t, err)

	bodyA, _, err := eng.GetObject(ctx, "bucket-a", "rel/v1.0.0.zip")
	require.NoError(t, err)
	gotA, err := io.ReadAll(bodyA)
	bodyA.Close()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payloadA, gotA))

	bodyB, _, err := eng.GetObject(ctx, "bucket-b", "rel/v1.0.0.zip")
	require.NoError(t, err)
	gotB, err := io.ReadAll(bodyB)
	bodyB.Close()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(payloadB, gotB))
}

func TestRehydrateAndPurgeExpiredTemp(t *testing.T) {
	eng, store := newTestEngine(t)
	ctx := context.Background()

	payload := randomPayload(1024*1024, 0xAA)
	_, err := eng.PutObject(ctx, "b", "rel/v1.0.0.zip", bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)

	tmpKey, err := eng.Rehydrate(ctx, "b", "rel/v1.0.0.zip", -time.Hour)
	require.NoError(t, err)

	_, err = store.Head(ctx, "b", tmpKey)
	assert.NoError(t, err)

	n, err := eng.PurgeExpiredTemp(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Head(ctx, "b", tmpKey)
	assert.ErrorIs(t, err, objectstore.ErrNotFound)
}
