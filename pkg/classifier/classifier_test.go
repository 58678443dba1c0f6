package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	const mib = 1 << 20

	tests := []struct {
		name     string
		filename string
		size     int64
		want     Decision
	}{
		{"small archive below floor", "release.zip", mib - 1, SkipSmall},
		{"archive at floor", "release.zip", mib, DeltaCandidate},
		{"compound tar.gz", "backup.tar.gz", 5 * mib, DeltaCandidate},
		{"tgz alias", "backup.tgz", 5 * mib, DeltaCandidate},
		{"text family", "CHANGELOG.md", 5 * mib, Direct},
		{"checksum sidecar", "release.zip.sha256", 5 * mib, Direct},
		{"raw executable", "app.exe", 5 * mib, Direct},
		{"raw shared lib", "libfoo.so", 5 * mib, Direct},
		{"unknown extension large", "blob.custom", 5 * mib, DeltaCandidate},
		{"no extension large", "README", 5 * mib, DeltaCandidate},
		{"deb package", "pkg.deb", 5 * mib, DeltaCandidate},
		{"whl package", "wheel.whl", 5 * mib, DeltaCandidate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.filename, tt.size))
		})
	}
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "zip", Family("v1.zip"))
	assert.Equal(t, "tar.gz", Family("archive.tar.gz"))
	assert.Equal(t, "tar.bz2", Family("archive.tar.bz2"))
	assert.Equal(t, "", Family("noextension"))
	assert.Equal(t, "", Family("trailing."))
}
