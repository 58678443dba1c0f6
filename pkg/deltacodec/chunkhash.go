package deltacodec

import "github.com/beshu-tech/deltaglider/pkg/dghash"

// chunkHash keys the chunk index. A full SHA-256 is overkill for
// collision resistance at chunk scale, but reusing dghash keeps one hash
// implementation in the whole module rather than adding a second,
// weaker one just for chunk matching.
func chunkHash(chunk []byte) string {
	return dghash.SumBytes(chunk)
}
