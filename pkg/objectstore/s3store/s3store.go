// Package s3store adapts an S3-compatible service to objectstore.Store.
// Adapted from the teacher's pkg/storage/s3/adapter.go: the key-sharding
// transform is gone (DeltaGlider keys are already caller-chosen paths,
// not content hashes to shard), Put grew the conditional-create
// semantics the engine's reference creation needs, and Copy adds a
// server-side copy.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

const metadataPrefix = "dg-"

// Store implements objectstore.Store over an S3-compatible endpoint.
type Store struct {
	client *s3.Client
}

// Config configures Store's connection. Endpoint is optional; when set,
// the client is pointed at a path-style endpoint (MinIO, localstack).
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// New builds a Store from Config. When AccessKeyID is empty, the AWS
// SDK's default credential chain is used instead of static credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{client: client}, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, data io.Reader, size int64, opts objectstore.PutOptions) (objectstore.ObjectInfo, error) {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		Body:     data,
		Metadata: namespaceMetadata(opts.Metadata),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.IfNoneMatch {
		input.IfNoneMatch = aws.String("*")
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if opts.IfNoneMatch && isPreconditionFailed(err) {
			return objectstore.ObjectInfo{}, objectstore.ErrPreconditionFailed
		}
		if isPermanent(err) {
			return objectstore.ObjectInfo{}, fmt.Errorf("%w: put %s/%s: %v", objectstore.ErrPermanent, bucket, key, err)
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("s3store: put %s/%s: %w", bucket, key, err)
	}

	info := objectstore.ObjectInfo{Key: key, Size: size, Metadata: opts.Metadata}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	return info, nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, objectstore.ObjectInfo{}, objectstore.ErrNotFound
		}
		if isPermanent(err) {
			return nil, objectstore.ObjectInfo{}, fmt.Errorf("%w: get %s/%s: %v", objectstore.ErrPermanent, bucket, key, err)
		}
		return nil, objectstore.ObjectInfo{}, fmt.Errorf("s3store: get %s/%s: %w", bucket, key, err)
	}

	info := objectstore.ObjectInfo{Key: key, Metadata: stripMetadataPrefix(out.Metadata)}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return out.Body, info, nil
}

func (s *Store) Head(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return objectstore.ObjectInfo{}, objectstore.ErrNotFound
		}
		if isPermanent(err) {
			return objectstore.ObjectInfo{}, fmt.Errorf("%w: head %s/%s: %v", objectstore.ErrPermanent, bucket, key, err)
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("s3store: head %s/%s: %w", bucket, key, err)
	}

	info := objectstore.ObjectInfo{Key: key, Metadata: stripMetadataPrefix(out.Metadata)}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ETag != nil {
		info.ETag = strings.Trim(*out.ETag, `"`)
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, nil
}

func (s *Store) List(ctx context.Context, bucket string, opts objectstore.ListOptions) (objectstore.ListPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.StartAfter != "" {
		input.StartAfter = aws.String(opts.StartAfter)
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxKeys))
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		if isPermanent(err) {
			return objectstore.ListPage{}, fmt.Errorf("%w: list %s: %v", objectstore.ErrPermanent, bucket, err)
		}
		return objectstore.ListPage{}, fmt.Errorf("s3store: list %s: %w", bucket, err)
	}

	page := objectstore.ListPage{IsTruncated: aws.ToBool(out.IsTruncated)}
	for _, obj := range out.Contents {
		info := objectstore.ObjectInfo{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
		if obj.ETag != nil {
			info.ETag = strings.Trim(*obj.ETag, `"`)
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		page.Objects = append(page.Objects, info)
		page.NextStartAfter = info.Key
	}
	for _, cp := range out.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, aws.ToString(cp.Prefix))
	}
	return page, nil
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isNotFound(err) {
		if isPermanent(err) {
			return fmt.Errorf("%w: delete %s/%s: %v", objectstore.ErrPermanent, bucket, key, err)
		}
		return fmt.Errorf("s3store: delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, bucket, srcKey, dstKey string, newMetadata objectstore.Metadata) (objectstore.ObjectInfo, error) {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(bucket + "/" + srcKey),
	}
	if newMetadata != nil {
		input.Metadata = namespaceMetadata(newMetadata)
		input.MetadataDirective = s3types.MetadataDirectiveReplace
	}

	out, err := s.client.CopyObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			return objectstore.ObjectInfo{}, objectstore.ErrNotFound
		}
		if isPermanent(err) {
			return objectstore.ObjectInfo{}, fmt.Errorf("%w: copy %s/%s -> %s: %v", objectstore.ErrPermanent, bucket, srcKey, dstKey, err)
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("s3store: copy %s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}

	info := objectstore.ObjectInfo{Key: dstKey, Metadata: newMetadata}
	if out.CopyObjectResult != nil && out.CopyObjectResult.ETag != nil {
		info.ETag = strings.Trim(*out.CopyObjectResult.ETag, `"`)
	}
	return info, nil
}

func namespaceMetadata(m objectstore.Metadata) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, metadataPrefix) {
			out[k] = v
			continue
		}
		out[metadataPrefix+k] = v
	}
	return out
}

func stripMetadataPrefix(m map[string]string) objectstore.Metadata {
	if len(m) == 0 {
		return nil
	}
	out := make(objectstore.Metadata, len(m))
	for k, v := range m {
		// AWS SDK lower-cases metadata keys on the wire; match either case.
		lower := strings.ToLower(k)
		if strings.HasPrefix(lower, metadataPrefix) {
			out[strings.TrimPrefix(lower, metadataPrefix)] = v
			continue
		}
		out[k] = v
	}
	return out
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	return strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "NotFound")
}

func isPermanent(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "NoSuchBucket", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "PreconditionFailed" || code == "ConditionalRequestConflict" {
			return true
		}
	}
	return strings.Contains(err.Error(), "PreconditionFailed") || strings.Contains(err.Error(), "412")
}
