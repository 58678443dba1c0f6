package analyzer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
	"github.com/beshu-tech/deltaglider/pkg/objectstore/memstore"
)

func put(t *testing.T, store objectstore.Store, bucket, key string, size int64) {
	t.Helper()
	_, err := store.Put(context.Background(), bucket, key, bytes.NewReader(make([]byte, size)), size, objectstore.PutOptions{})
	require.NoError(t, err)
}

func TestAnalyze_ProjectsArchiveGroupAtTypicalRatio(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	const mib = 1 << 20
	put(t, store, "b", "rel/v1.0.0.zip", 10*mib)
	put(t, store, "b", "rel/v2.0.0.zip", 10*mib)
	put(t, store, "b", "rel/v3.0.0.zip", 10*mib)

	a := New(store)
	report, err := a.Analyze(ctx, "b", "")
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	g := report.Groups[0]
	assert.Equal(t, "rel", g.Prefix)
	assert.Equal(t, "zip", g.Family)
	assert.Equal(t, 3, g.ObjectCount)
	assert.Equal(t, int64(30*mib), g.OriginalBytes)
	// one full-size reference + two deltas at 1% of their own size each.
	assert.Equal(t, int64(10*mib+2*(10*mib/100)), g.ProjectedBytes)
	assert.InDelta(t, 1-float64(g.ProjectedBytes)/float64(g.OriginalBytes), g.ProjectedRatio, 0.0001)
}

func TestAnalyze_DirectFamilyProjectsNoSavings(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	const mib = 1 << 20
	put(t, store, "b", "docs/notes-a.txt", 2*mib)
	put(t, store, "b", "docs/notes-b.txt", 2*mib)

	a := New(store)
	report, err := a.Analyze(ctx, "b", "")
	require.NoError(t, err)

	require.Len(t, report.Groups, 1)
	g := report.Groups[0]
	assert.Equal(t, "txt", g.Family)
	assert.Equal(t, g.OriginalBytes, g.ProjectedBytes)
	assert.Equal(t, float64(0), g.ProjectedRatio)
}

func TestAnalyze_DiscoversDistinctGroupsAndHidesReferenceAndTemp(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	const mib = 1 << 20
	for _, k := range []string{
		"rel/v1.0.0.zip.dg", "rel/v2.0.0.zip.dg", "rel/reference.bin",
		"rel/notes.txt", "docs/v1.pdf", ".deltaglider/tmp/abc_v1.pdf",
	} {
		put(t, store, "b", k, mib)
	}

	a := New(store)
	report, err := a.Analyze(ctx, "b", "")
	require.NoError(t, err)

	assert.Len(t, report.Groups, 3) // rel::zip, rel::txt, docs::pdf

	var totalObjects int
	for _, g := range report.Groups {
		totalObjects += g.ObjectCount
	}
	assert.Equal(t, 4, totalObjects) // 2 zip deltas + notes.txt + docs/v1.pdf
}
