// Package analyzer implements DeltaGlider's offline savings estimator
// (spec.md §4.9): classifying every object in a bucket by filename and
// size alone and projecting what delta encoding would save, without
// reading, downloading, or diffing a single object body. This is
// distinct from engine.Stats, which reports savings already measured
// from objects that have actually gone through PutObject.
package analyzer

import (
	"context"
	"fmt"

	"github.com/beshu-tech/deltaglider/pkg/classifier"
	"github.com/beshu-tech/deltaglider/pkg/objectkey"
	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

const tempPrefix = ".deltaglider/tmp/"

// archiveTypicalRatio and directTypicalRatio are the default
// typical_ratio figures spec.md §4.9 assumes for a group with no
// objects actually delta-encoded yet: archive families compress
// against a sibling version almost completely, while families the
// classifier would store direct gain nothing from a reference.
const (
	archiveTypicalRatio = 0.99
	directTypicalRatio  = 0.0
)

// Analyzer walks a bucket's key space and projects per-group savings.
type Analyzer struct {
	store objectstore.Store
}

// New returns an Analyzer over store.
func New(store objectstore.Store) *Analyzer {
	return &Analyzer{store: store}
}

// GroupBreakdown is one group's projected savings.
type GroupBreakdown struct {
	Prefix         string
	Family         string
	ObjectCount    int
	OriginalBytes  int64
	ProjectedBytes int64
	ProjectedRatio float64
}

// Report is the bucket-wide projection spec.md §4.9 returns.
type Report struct {
	OriginalBytes  int64
	ProjectedBytes int64
	ProjectedRatio float64
	Groups         []GroupBreakdown
}

type groupKey struct {
	prefix string
	family string
}

// Analyze discovers every group under prefix in bucket and projects
// its savings: the first object encountered in each group (listing
// order, which S3 and memstore both return key-sorted) is assumed to
// become the group's reference and counts at full size; every
// subsequent object in the group is assumed to compress to
// (1 - typical_ratio) of its own size. Already-migrated delta/reference
// objects are collapsed back to their logical key and size so running
// Analyze against a bucket DeltaGlider already manages still reports a
// meaningful (if already-realized) projection rather than double
// counting physical delta bytes as separate logical files.
func (a *Analyzer) Analyze(ctx context.Context, bucket, prefix string) (Report, error) {
	var order []groupKey
	sizes := make(map[groupKey][]int64)
	startAfter := ""

	for {
		page, err := a.store.List(ctx, bucket, objectstore.ListOptions{Prefix: prefix, StartAfter: startAfter})
		if err != nil {
			return Report{}, fmt.Errorf("analyzer: list %s: %w", bucket, err)
		}

		for _, obj := range page.Objects {
			if len(obj.Key) >= len(tempPrefix) && obj.Key[:len(tempPrefix)] == tempPrefix {
				continue
			}
			logicalKey, _ := objectkey.LogicalKeyFromDeltaKey(obj.Key)
			dest := objectkey.Destination{Bucket: bucket, Key: logicalKey}
			if dest.Filename() == objectkey.ReferenceName {
				continue
			}
			key := groupKey{prefix: dest.Prefix(), family: dest.Family()}
			if _, seen := sizes[key]; !seen {
				order = append(order, key)
			}
			sizes[key] = append(sizes[key], obj.Size)
		}

		if !page.IsTruncated {
			break
		}
		startAfter = page.NextStartAfter
	}

	var report Report
	for _, key := range order {
		breakdown := projectGroup(key, sizes[key])
		report.Groups = append(report.Groups, breakdown)
		report.OriginalBytes += breakdown.OriginalBytes
		report.ProjectedBytes += breakdown.ProjectedBytes
	}
	if report.OriginalBytes > 0 {
		report.ProjectedRatio = 1 - float64(report.ProjectedBytes)/float64(report.OriginalBytes)
	}
	return report, nil
}

func projectGroup(key groupKey, fileSizes []int64) GroupBreakdown {
	ratio := typicalRatio(key.family)

	b := GroupBreakdown{Prefix: key.prefix, Family: key.family, ObjectCount: len(fileSizes)}
	for i, size := range fileSizes {
		b.OriginalBytes += size
		if i == 0 {
			b.ProjectedBytes += size
			continue
		}
		b.ProjectedBytes += int64(float64(size) * (1 - ratio))
	}
	if b.OriginalBytes > 0 {
		b.ProjectedRatio = 1 - float64(b.ProjectedBytes)/float64(b.OriginalBytes)
	}
	return b
}

func typicalRatio(family string) float64 {
	if classifier.IsArchiveFamily(family) {
		return archiveTypicalRatio
	}
	return directTypicalRatio
}
