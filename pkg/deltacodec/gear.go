package deltacodec

import "math/rand/v2"

// gearTable is the byte-to-fingerprint lookup the content-defined cutter
// mixes into its rolling hash, the same gear-hash construction the
// teacher's pkg/chunker/chunker.go used for FastCDC chunk cutting. The
// table is generated once, deterministically (fixed seed), rather than
// hand-written as 256 literals: determinism only requires that the same
// table is used on both sides of a diff/patch within one build of this
// package, which a fixed seed guarantees just as well as a literal array
// would, without spelling out 256 magic numbers by hand.
var gearTable = func() [256]uint64 {
	var table [256]uint64
	src := rand.New(rand.NewPCG(0x67656172, 0x686173683031)) // "gear" / "hash01"
	for i := range table {
		table[i] = src.Uint64()
	}
	return table
}()
