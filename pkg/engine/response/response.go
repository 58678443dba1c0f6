// Package response shapes the engine's return values to look like
// boto3's S3 client responses (spec.md §6.1): callers migrating from
// boto3 get familiar field names (ETag, ContentLength, Metadata)
// instead of a bespoke schema. DeltaGlider's own accounting surfaces
// inside that same Metadata map under the deltaglider-* namespace
// (spec.md §6.2), so a caller unaware of DeltaGlider sees a fully
// conformant S3 response and one that wants the delta accounting
// reads a few extra, clearly-namespaced keys.
package response

import "time"

// PutObjectOutput mirrors boto3's put_object response, with
// DeltaGlider's own delta-accounting fields appended.
type PutObjectOutput struct {
	ETag         string
	IsDelta      bool
	OriginalSize int64
	StoredSize   int64
	Ratio        float64
	Metadata     map[string]string
}

// GetObjectOutput mirrors boto3's get_object response shape for the
// parts callers actually consume once the body has been read.
type GetObjectOutput struct {
	ContentLength int64
	ETag          string
	LastModified  time.Time
	Metadata      map[string]string
}

// HeadObjectOutput mirrors boto3's head_object response.
type HeadObjectOutput struct {
	ContentLength int64
	ETag          string
	LastModified  time.Time
	Metadata      map[string]string
	IsDelta       bool
}

// ObjectSummary mirrors one entry of boto3's list_objects_v2 Contents.
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// ListObjectsOutput mirrors boto3's list_objects_v2 response.
type ListObjectsOutput struct {
	Contents       []ObjectSummary
	CommonPrefixes []string
	IsTruncated    bool
	NextStartAfter string
}

// DeleteObjectOutput mirrors boto3's delete_object response.
type DeleteObjectOutput struct {
	Deleted bool
}

// CopyObjectOutput mirrors boto3's copy_object response.
type CopyObjectOutput struct {
	ETag         string
	LastModified time.Time
}

// GroupStats reports the space DeltaGlider's delta encoding saved for
// one group relative to storing every version directly.
type GroupStats struct {
	GroupID       string
	ObjectCount   int
	LogicalBytes  int64
	PhysicalBytes int64
	BytesSaved    int64
	AverageRatio  float64
}
