// Package objectkey implements DeltaGlider's grouping and naming policy
// (spec.md §4.2): deriving group identity and physical storage keys from
// a caller-supplied destination path alone, never from content. This
// keeps put/get deterministic and list-compatible.
package objectkey

import (
	"path"
	"strings"

	"github.com/beshu-tech/deltaglider/pkg/classifier"
)

// DeltaSuffix marks a delta object's physical storage key.
const DeltaSuffix = ".dg"

// ReferenceName is the fixed filename every group's reference object is
// stored under, within its group prefix.
const ReferenceName = "reference.bin"

// Destination is a caller-supplied upload target: bucket plus the full
// key the object should appear at (prefix + filename).
type Destination struct {
	Bucket string
	Key    string
}

// Prefix returns everything up to the last "/" in the destination key, or
// "" if the key has no directory component.
func (d Destination) Prefix() string {
	idx := strings.LastIndex(d.Key, "/")
	if idx == -1 {
		return ""
	}
	return d.Key[:idx]
}

// Filename returns the last path segment of the destination key.
func (d Destination) Filename() string {
	return path.Base(d.Key)
}

// Family returns the normalized extension cluster for this destination.
func (d Destination) Family() string {
	return classifier.Family(d.Filename())
}

// GroupID returns the stable string identifying the equivalence class of
// logical objects that share one reference: "{prefix}::{family}".
func (d Destination) GroupID() string {
	return d.Prefix() + "::" + d.Family()
}

// ReferenceKey returns the one reference key for this destination's
// group: "{prefix}/reference.bin".
func (d Destination) ReferenceKey() string {
	return joinPrefix(d.Prefix(), ReferenceName)
}

// DeltaStorageKey returns the physical storage key a delta object is
// written under: "{prefix}/{filename}.dg".
func (d Destination) DeltaStorageKey() string {
	return d.Key + DeltaSuffix
}

// DirectStorageKey returns the physical storage key a direct object is
// written under: the caller's key, unchanged.
func (d Destination) DirectStorageKey() string {
	return d.Key
}

// LogicalKeyFromDeltaKey strips the delta suffix from a physical storage
// key to recover the caller-visible logical key (spec.md §4.6).
func LogicalKeyFromDeltaKey(storageKey string) (logicalKey string, isDelta bool) {
	if strings.HasSuffix(storageKey, DeltaSuffix) {
		return strings.TrimSuffix(storageKey, DeltaSuffix), true
	}
	return storageKey, false
}

// ReferenceKeyForPrefix returns the reference key for an arbitrary group
// prefix, used when an engine operation already knows the prefix (e.g.
// while handling a delta's metadata) rather than a full Destination.
func ReferenceKeyForPrefix(prefix string) string {
	return joinPrefix(prefix, ReferenceName)
}

// PrefixFromReferenceKey recovers the group prefix from a reference key,
// the inverse of ReferenceKeyForPrefix.
func PrefixFromReferenceKey(referenceKey string) string {
	return strings.TrimSuffix(strings.TrimSuffix(referenceKey, ReferenceName), "/")
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
