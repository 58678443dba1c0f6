package deltacodec

import "math"

// Chunk size bounds for the content-defined cutter. Tuned larger than the
// teacher's original ingestion-chunker constants (which targeted small
// AI-training chunks) since DeltaGlider chunks whole release archives,
// where coarser cuts mean fewer, more meaningful COPY spans per delta.
const (
	minChunkSize  = 2 * 1024        // 2 KiB
	avgChunkSize  = 64 * 1024       // 64 KiB
	maxChunkSize  = 1024 * 1024     // 1 MiB
	normalization = 2
)

// cutter is a stateless, deterministic content-defined chunk cutter: the
// same bytes always produce the same cut points, which is what lets the
// delta codec match chunks between a reference and a target purely by
// content hash. Adapted from the teacher's pkg/chunker/chunker.go.
type cutter struct {
	maskSmall uint64
	maskLarge uint64
}

func newCutter() *cutter {
	bits := int(math.Round(math.Log2(float64(avgChunkSize))))
	return &cutter{
		maskSmall: uint64(1<<(bits+normalization)) - 1,
		maskLarge: uint64(1<<(bits-normalization)) - 1,
	}
}

// cut returns the end offsets of every complete chunk found in data. Any
// trailing bytes no longer than minChunkSize are left out of the cut
// points; the caller treats them as one final chunk running to len(data).
func (c *cutter) cut(data []byte) []int {
	var cuts []int
	offset := 0
	n := len(data)

	for offset < n {
		if n-offset <= minChunkSize {
			return cuts
		}

		fingerprint := uint64(0)
		idx := offset + minChunkSize

		normLimit := min(offset+avgChunkSize, n)
		maxLimit := min(offset+maxChunkSize, n)

		scan := func(limit int, mask uint64) bool {
			for ; idx < limit; idx++ {
				fingerprint = (fingerprint << 1) + gearTable[data[idx]]
				if fingerprint&mask == 0 {
					cuts = append(cuts, idx+1)
					offset = idx + 1
					return true
				}
			}
			return false
		}

		if scan(normLimit, c.maskSmall) {
			continue
		}
		if scan(maxLimit, c.maskLarge) {
			continue
		}

		cuts = append(cuts, maxLimit)
		offset = maxLimit
	}

	return cuts
}

// chunks splits data into contiguous [start,end) spans using cut, always
// accounting for every byte (unlike cut, which omits the trailing
// sub-minimum remainder as a cut point rather than a chunk boundary).
func (c *cutter) chunks(data []byte) []span {
	cuts := c.cut(data)
	spans := make([]span, 0, len(cuts)+1)
	start := 0
	for _, end := range cuts {
		spans = append(spans, span{start, end})
		start = end
	}
	if start < len(data) {
		spans = append(spans, span{start, len(data)})
	}
	return spans
}

type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }
