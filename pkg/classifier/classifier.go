// Package classifier decides, from a filename and size alone, whether an
// object is worth delta-encoding. The decision is advisory: the storage
// engine may still downgrade a DeltaCandidate to Direct if the measured
// delta ratio is too poor (see pkg/engine).
package classifier

import "strings"

// Decision is the classifier's verdict for one object.
type Decision int

const (
	// DeltaCandidate should be diffed against its group's reference.
	DeltaCandidate Decision = iota
	// Direct should be stored verbatim, no reference/delta machinery.
	Direct
	// SkipSmall is Direct for the specific reason that the file is too
	// small for delta overhead to pay for itself.
	SkipSmall
)

func (d Decision) String() string {
	switch d {
	case DeltaCandidate:
		return "delta-candidate"
	case Direct:
		return "direct"
	case SkipSmall:
		return "skip-small"
	default:
		return "unknown"
	}
}

// minDeltaSize is the floor below which delta overhead dominates any
// savings; files smaller than this are always Direct.
const minDeltaSize = 1 << 20 // 1 MiB

// archiveFamilies are compound/simple extensions that compress well as
// deltas against a same-family reference.
var archiveFamilies = map[string]bool{
	"zip": true, "tar": true, "tar.gz": true, "tgz": true,
	"tar.bz2": true, "tbz2": true, "tar.xz": true, "txz": true,
	"7z": true, "jar": true, "war": true, "ear": true,
	"apk": true, "ipa": true, "dmg": true, "deb": true,
	"rpm": true, "msi": true, "nupkg": true, "whl": true,
}

// textFamilies are metadata/text extensions that gain nothing from delta
// encoding (small, already diverse, or checksum/signature files whose
// bytes are expected to be unrelated to any sibling).
var textFamilies = map[string]bool{
	"txt": true, "md": true, "json": true, "yaml": true, "yml": true,
	"xml": true, "csv": true, "log": true, "sha1": true, "sha256": true,
	"sha512": true, "md5": true, "asc": true, "sig": true,
}

// rawExecutableFamilies are binaries that empirically delta-compress
// poorly due to compiler/linker-introduced churn across versions.
var rawExecutableFamilies = map[string]bool{
	"exe": true, "dll": true, "so": true, "dylib": true,
}

// Family returns the normalized extension cluster for filename, handling
// the compound archive extensions (tar.gz, tar.bz2, tar.xz) specially
// since a naive "extension after the last dot" would yield "gz"/"bz2"/"xz".
func Family(filename string) string {
	lower := strings.ToLower(filename)
	for _, compound := range []string{"tar.gz", "tar.bz2", "tar.xz"} {
		if strings.HasSuffix(lower, "."+compound) {
			return compound
		}
	}
	idx := strings.LastIndex(lower, ".")
	if idx == -1 || idx == len(lower)-1 {
		return ""
	}
	return lower[idx+1:]
}

// IsArchiveFamily reports whether family is one of the compound/simple
// archive extensions delta encoding targets, independent of any
// particular file's size. The analyzer's offline estimator uses this
// to pick a typical_ratio per group without needing a real size to
// call Classify with.
func IsArchiveFamily(family string) bool {
	return archiveFamilies[family]
}

// Classify applies spec.md §4.1's decision table to filename and size.
func Classify(filename string, size int64) Decision {
	if size < minDeltaSize {
		return SkipSmall
	}

	family := Family(filename)

	switch {
	case archiveFamilies[family]:
		return DeltaCandidate
	case textFamilies[family]:
		return Direct
	case rawExecutableFamilies[family]:
		return Direct
	default:
		// Unknown extension at or above the size floor defaults to a
		// delta candidate; the engine's ratio cutoff is the real guard
		// against pathological unknown-format files.
		return DeltaCandidate
	}
}
