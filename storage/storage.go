package storage

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/operations/copy"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/operations/delete"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/operations/list"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/validation"
	"github.com/input-output-hk/catalyst-forge-housekeeping/s3types"
)

// Copy copies an object server side. Objects above the single-request limit
// are copied with a sequential multipart copy. The object data and metadata
// are copied unmodified.
//
// Errors:
//   - ErrInvalidInput: If a bucket or key is invalid, or source equals destination
//   - ErrObjectNotFound: If the source object doesn't exist
//   - ErrBucketNotFound: If either bucket doesn't exist
//   - ErrAccessDenied: If the credentials lack permission to read or write
func (c *Client) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := validateLocation("copy", srcBucket, srcKey); err != nil {
		return err
	}
	if err := validateLocation("copy", dstBucket, dstKey); err != nil {
		return err
	}
	if srcBucket == dstBucket && srcKey == dstKey {
		return errors.NewObjectError("copy", srcBucket, srcKey, errors.ErrInvalidInput).
			WithMessage("cannot copy object to itself")
	}

	start := time.Now()
	err := copy.NewCopier(c.s3Client).Copy(ctx, srcBucket, srcKey, dstBucket, dstKey)
	if err != nil {
		c.logger.DebugContext(ctx, "copy failed",
			"source_bucket", srcBucket,
			"dest_bucket", dstBucket,
			"key", dstKey,
			"error", err)
		return errors.NewObjectError("copy", dstBucket, dstKey, err)
	}

	c.logger.DebugContext(ctx, "object copied",
		"source_bucket", srcBucket,
		"dest_bucket", dstBucket,
		"key", dstKey,
		"duration", time.Since(start))
	return nil
}

// Delete deletes the current object at bucket/key. Deleting a key that does
// not exist succeeds, as it does in S3.
//
// Errors:
//   - ErrInvalidInput: If bucket or key is invalid
//   - ErrBucketNotFound: If the bucket doesn't exist
//   - ErrAccessDenied: If the credentials lack permission to delete
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	if err := validateLocation("delete", bucket, key); err != nil {
		return err
	}

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.NewObjectError("delete", bucket, key, errors.FromAWS(err))
	}

	c.logger.DebugContext(ctx, "object deleted", "bucket", bucket, "key", key)
	return nil
}

// DeleteVersions deletes the given (key, version) entries in batches of at
// most 1000. Entries with an empty VersionID delete the current object.
//
// The returned result lists the entries S3 deleted and the ones it refused.
// A request-level failure stops the remaining batches and is returned along
// with the partial result.
func (c *Client) DeleteVersions(
	ctx context.Context,
	bucket string,
	entries []s3types.ObjectVersion,
) (*s3types.DeleteResult, error) {
	if bucket == "" {
		return nil, errors.NewBucketError("deleteVersions", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}
	if len(entries) == 0 {
		return &s3types.DeleteResult{}, nil
	}
	for _, entry := range entries {
		if entry.Key == "" {
			return nil, errors.NewBucketError("deleteVersions", bucket, errors.ErrInvalidInput).
				WithMessage("empty key in entries")
		}
	}

	result, err := delete.New(c.s3Client).DeleteBatch(ctx, bucket, entries)
	if err != nil {
		return result, errors.NewBucketError("deleteVersions", bucket, errors.FromAWS(err))
	}

	c.logger.DebugContext(ctx, "batch deleted",
		"bucket", bucket,
		"deleted", len(result.Deleted),
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// VersioningStatus returns the versioning state of a bucket.
func (c *Client) VersioningStatus(ctx context.Context, bucket string) (s3types.VersioningStatus, error) {
	if bucket == "" {
		return s3types.VersioningUnset, errors.NewBucketError("getVersioning", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	output, err := c.s3Client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return s3types.VersioningUnset, errors.NewBucketError("getVersioning", bucket, errors.FromAWS(err))
	}

	return s3types.VersioningStatus(output.Status), nil
}

// SuspendVersioning sets the versioning state of a bucket to Suspended.
func (c *Client) SuspendVersioning(ctx context.Context, bucket string) error {
	if bucket == "" {
		return errors.NewBucketError("suspendVersioning", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	_, err := c.s3Client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: aws.String(bucket),
		VersioningConfiguration: &types.VersioningConfiguration{
			Status: types.BucketVersioningStatusSuspended,
		},
	})
	if err != nil {
		return errors.NewBucketError("suspendVersioning", bucket, errors.FromAWS(err))
	}

	c.logger.InfoContext(ctx, "versioning suspended", "bucket", bucket)
	return nil
}

// ObjectPager pages through the current objects of a bucket.
type ObjectPager struct {
	bucket    string
	paginator *list.ObjectPaginator
}

// ObjectPages returns a pager over the current objects of bucket. A pageSize
// outside (0, 1000] uses the S3 maximum.
func (c *Client) ObjectPages(bucket string, pageSize int32) *ObjectPager {
	return &ObjectPager{
		bucket: bucket,
		paginator: list.NewObjectPaginator(c.s3Client, list.Config{
			Bucket:   bucket,
			PageSize: pageSize,
		}),
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *ObjectPager) HasMorePages() bool {
	return p.paginator.HasMorePages()
}

// NextPage fetches the next page of current objects.
func (p *ObjectPager) NextPage(ctx context.Context) (*s3types.ObjectPage, error) {
	page, err := p.paginator.NextPage(ctx)
	if err != nil {
		return nil, errors.NewBucketError("listObjects", p.bucket, errors.FromAWS(err))
	}
	return page, nil
}

// VersionPager pages through the versions and delete markers of a bucket.
type VersionPager struct {
	bucket    string
	paginator *list.VersionPaginator
}

// VersionPages returns a pager over every version and delete marker of
// bucket. A pageSize outside (0, 1000] uses the S3 maximum.
func (c *Client) VersionPages(bucket string, pageSize int32) *VersionPager {
	return &VersionPager{
		bucket: bucket,
		paginator: list.NewVersionPaginator(c.s3Client, list.Config{
			Bucket:   bucket,
			PageSize: pageSize,
		}),
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *VersionPager) HasMorePages() bool {
	return p.paginator.HasMorePages()
}

// NextPage fetches the next page of versions and delete markers.
func (p *VersionPager) NextPage(ctx context.Context) (*s3types.VersionPage, error) {
	page, err := p.paginator.NextPage(ctx)
	if err != nil {
		return nil, errors.NewBucketError("listObjectVersions", p.bucket, errors.FromAWS(err))
	}
	return page, nil
}

func validateLocation(op, bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return errors.NewError(op, err)
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return errors.NewError(op, err).WithBucket(bucket)
	}
	return nil
}
