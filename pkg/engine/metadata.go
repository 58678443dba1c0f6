package engine

import (
	"strconv"
	"time"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

// toolVersion is written on every stored object as dg-tool-version
// (spec.md §6.2), identifying the encoding format a future engine
// version must stay compatible with when reading objects written by
// this one.
const toolVersion = "1.0.0"

// Metadata keys in the dg-* namespace (spec.md §6.2). The objectstore
// layer is responsible for adding/stripping the wire-level "dg-"
// prefix; these constants are the bare field names the engine reads
// and writes.
const (
	metaKind        = "kind"
	metaSHA256      = "sha256"
	metaGroupID     = "group-id"
	metaSize        = "size"
	metaDeltaSize   = "delta-size"
	metaRatio       = "compression-ratio"
	metaRefKey      = "ref-key"
	metaRefSHA256   = "ref-sha256"
	metaToolVersion = "tool-version"
	metaCreatedAt   = "created-at"
	metaExpiresAt   = "expires-at"
)

const (
	kindReference = "reference"
	kindDelta     = "delta"
	kindDirect    = "direct"
)

func newObjectMetadata(kind, sha256 string, groupID string) objectstore.Metadata {
	return objectstore.Metadata{
		metaKind:        kind,
		metaSHA256:      sha256,
		metaGroupID:     groupID,
		metaToolVersion: toolVersion,
		metaCreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func withOriginalSize(m objectstore.Metadata, size int64) objectstore.Metadata {
	m[metaSize] = strconv.FormatInt(size, 10)
	return m
}

// withDeltaStats records a delta object's accounting fields: its
// physical size, the absolute key of the reference it was diffed
// against, that reference's digest, and the compression ratio spec.md
// §6.2 defines as 1 - delta_size/original_size, rendered to a fixed 6
// decimal places.
func withDeltaStats(m objectstore.Metadata, deltaSize int64, originalSize int64, refKey, referenceSHA256 string) objectstore.Metadata {
	m[metaDeltaSize] = strconv.FormatInt(deltaSize, 10)
	ratio := 1 - float64(deltaSize)/float64(max64(originalSize, 1))
	m[metaRatio] = strconv.FormatFloat(ratio, 'f', 6, 64)
	m[metaRefKey] = refKey
	m[metaRefSHA256] = referenceSHA256
	return m
}

func withExpiresAt(m objectstore.Metadata, t time.Time) objectstore.Metadata {
	m[metaExpiresAt] = t.UTC().Format(time.RFC3339)
	return m
}

func metaInt64(m objectstore.Metadata, key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func metaFloat64(m objectstore.Metadata, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func metaTime(m objectstore.Metadata, key string) (time.Time, bool) {
	v, ok := m[key]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
