// Package deltacodec implements DeltaGlider's binary diff/patch codec
// (spec.md §9's delta codec capability): content-defined chunking over a
// reference and a target, emitting a COPY/INSERT op stream that
// reconstructs the target byte-for-byte given only the reference and the
// delta. The op stream is canonically CBOR-encoded and zstd-compressed,
// the same encode-then-compress shape the teacher used for its Merkle
// objects in pkg/core/hash.go, generalized from content-addressed DAG
// nodes to a two-party diff.
package deltacodec

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// encOptions/decOptions mirror the teacher's canonical-CBOR settings
// verbatim: sorted map keys, no indefinite-length items, so that two
// builds of the same op stream always produce byte-identical output.
var (
	encOptions = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		TimeTag:     cbor.EncTagNone,
	}
	decOptions = cbor.DecOptions{
		IndefLength: cbor.IndefLengthForbidden,
	}
)

var (
	em, _ = encOptions.EncMode()
	dm, _ = decOptions.DecMode()
)

const (
	opCopy   uint8 = 0
	opInsert uint8 = 1
)

type opRecord struct {
	Kind   uint8  `cbor:"k"`
	Offset int64  `cbor:"o,omitempty"`
	Length int64  `cbor:"l,omitempty"`
	Data   []byte `cbor:"d,omitempty"`
}

type deltaContainer struct {
	Ops        []opRecord `cbor:"ops"`
	TargetSize int64      `cbor:"sz"`
}

type chunkRef struct {
	offset int
	length int
}

// ChunkIndex is the reusable, reference-derived lookup table that Diff
// matches target chunks against. Building it once per reference and
// reusing it across many Diff calls against that same reference is what
// lets a group amortize the cost of indexing across every delta upload.
type ChunkIndex struct {
	reference []byte
	cutter    *cutter
	byHash    map[string]chunkRef
}

// Index cuts reference into content-defined chunks and records the
// offset and length of each distinct chunk's first occurrence, keyed by
// its SHA-256 digest. Repeated chunks within the reference are
// deduplicated: only the first occurrence is indexed, since any one
// occurrence is equally usable as a COPY source.
func Index(reference []byte) *ChunkIndex {
	c := newCutter()
	spans := c.chunks(reference)
	byHash := make(map[string]chunkRef, len(spans))
	for _, s := range spans {
		h := chunkHash(reference[s.start:s.end])
		if _, exists := byHash[h]; !exists {
			byHash[h] = chunkRef{offset: s.start, length: s.len()}
		}
	}
	return &ChunkIndex{reference: reference, cutter: c, byHash: byHash}
}

// Diff produces the compressed, encoded delta that Patch(reference, ...)
// reconstructs target from. index must have been built with Index over
// the same reference byte sequence.
func Diff(index *ChunkIndex, target []byte) ([]byte, error) {
	spans := index.cutter.chunks(target)

	var ops []opRecord
	var pending []byte

	flushInsert := func() {
		if len(pending) == 0 {
			return
		}
		ops = append(ops, opRecord{Kind: opInsert, Data: pending})
		pending = nil
	}

	for _, s := range spans {
		chunk := target[s.start:s.end]
		if ref, ok := index.byHash[chunkHash(chunk)]; ok {
			flushInsert()
			ops = append(ops, opRecord{Kind: opCopy, Offset: int64(ref.offset), Length: int64(ref.length)})
			continue
		}
		pending = append(pending, chunk...)
	}
	flushInsert()

	container := deltaContainer{Ops: ops, TargetSize: int64(len(target))}
	encoded, err := em.Marshal(container)
	if err != nil {
		return nil, fmt.Errorf("deltacodec: encode op stream: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("deltacodec: init compressor: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(encoded, nil), nil
}

// Patch reconstructs the target bytes that Diff produced delta from,
// given the same reference bytes used to build the ChunkIndex that
// produced it.
func Patch(reference, delta []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("deltacodec: init decompressor: %w", err)
	}
	defer dec.Close()

	encoded, err := dec.DecodeAll(delta, nil)
	if err != nil {
		return nil, fmt.Errorf("deltacodec: decompress delta: %w", err)
	}

	var container deltaContainer
	if err := dm.Unmarshal(encoded, &container); err != nil {
		return nil, fmt.Errorf("deltacodec: decode op stream: %w", err)
	}

	out := make([]byte, 0, container.TargetSize)
	for _, op := range container.Ops {
		switch op.Kind {
		case opCopy:
			end := op.Offset + op.Length
			if op.Offset < 0 || end > int64(len(reference)) {
				return nil, fmt.Errorf("deltacodec: copy op [%d,%d) out of reference bounds (len %d)", op.Offset, end, len(reference))
			}
			out = append(out, reference[op.Offset:end]...)
		case opInsert:
			out = append(out, op.Data...)
		default:
			return nil, fmt.Errorf("deltacodec: unknown op kind %d", op.Kind)
		}
	}

	if int64(len(out)) != container.TargetSize {
		return nil, fmt.Errorf("deltacodec: reconstructed %d bytes, expected %d", len(out), container.TargetSize)
	}
	return out, nil
}

// IsDelta reports whether data looks like a zstd-framed delta produced by
// Diff, without fully decoding it. Used by callers deciding whether a
// fetched object needs patching.
func IsDelta(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
