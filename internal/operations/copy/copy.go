package copy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

const (
	// MaxSimpleCopySize is the AWS limit for a single CopyObject request (5GB).
	MaxSimpleCopySize = 5 * 1024 * 1024 * 1024

	// DefaultPartSize is the part size used for multipart copies.
	DefaultPartSize = 256 * 1024 * 1024

	// maxParts is the S3 limit on parts per multipart upload.
	maxParts = 10000
)

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	HeadObject(
		ctx context.Context,
		params *s3.HeadObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.HeadObjectOutput, error)
	CopyObject(
		ctx context.Context,
		params *s3.CopyObjectInput,
		optFns ...func(*s3.Options),
	) (*s3.CopyObjectOutput, error)
	CreateMultipartUpload(
		ctx context.Context,
		params *s3.CreateMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.CreateMultipartUploadOutput, error)
	UploadPartCopy(
		ctx context.Context,
		params *s3.UploadPartCopyInput,
		optFns ...func(*s3.Options),
	) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUpload(
		ctx context.Context,
		params *s3.CompleteMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(
		ctx context.Context,
		params *s3.AbortMultipartUploadInput,
		optFns ...func(*s3.Options),
	) (*s3.AbortMultipartUploadOutput, error)
}

// Copier performs server-side copies with automatic multipart support.
type Copier struct {
	s3Client S3Interface
	partSize int64
}

// NewCopier creates a new copy operation handler.
func NewCopier(s3Client S3Interface) *Copier {
	return &Copier{
		s3Client: s3Client,
		partSize: DefaultPartSize,
	}
}

// Copy copies srcBucket/srcKey to dstBucket/dstKey, choosing between a simple
// and a multipart copy based on the source size.
func (c *Copier) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	head, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(srcBucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return errors.NewObjectError("headObject", srcBucket, srcKey, errors.FromAWS(err)).
			WithMessage("failed to get source object metadata")
	}

	size := aws.ToInt64(head.ContentLength)
	if size > MaxSimpleCopySize {
		return c.multipartCopy(ctx, srcBucket, srcKey, dstBucket, dstKey, head)
	}

	return c.simpleCopy(ctx, srcBucket, srcKey, dstBucket, dstKey)
}

// simpleCopy performs a simple copy operation using CopyObject.
func (c *Copier) simpleCopy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	copySource := CopySource(srcBucket, srcKey)

	_, err := c.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return errors.NewObjectError("copyObject", dstBucket, dstKey, errors.FromAWS(err)).
			WithMessage("failed to copy from " + srcBucket + "/" + srcKey)
	}

	return nil
}

// multipartCopy copies a large object part by part. A multipart upload does
// not inherit anything from the source, so the headers and user metadata from
// head are set on the new upload.
func (c *Copier) multipartCopy(
	ctx context.Context,
	srcBucket, srcKey, dstBucket, dstKey string,
	head *s3.HeadObjectOutput,
) error {
	objectSize := aws.ToInt64(head.ContentLength)
	partSize := c.partSizeFor(objectSize)
	numParts := calculateParts(objectSize, partSize)

	created, err := c.s3Client.CreateMultipartUpload(ctx, multipartUploadInput(dstBucket, dstKey, head))
	if err != nil {
		return errors.NewObjectError("createMultipartUpload", dstBucket, dstKey, errors.FromAWS(err))
	}
	uploadID := aws.ToString(created.UploadId)

	parts := make([]awstypes.CompletedPart, 0, numParts)
	copySource := CopySource(srcBucket, srcKey)
	for i := 0; i < numParts; i++ {
		partNumber := int32(i + 1)
		offset := int64(i) * partSize
		end := offset + partSize - 1
		if end >= objectSize {
			end = objectSize - 1
		}

		output, err := c.s3Client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:          aws.String(dstBucket),
			Key:             aws.String(dstKey),
			CopySource:      aws.String(copySource),
			CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", offset, end)),
			UploadId:        aws.String(uploadID),
			PartNumber:      aws.Int32(partNumber),
		})
		if err != nil {
			c.abortMultipartUpload(ctx, dstBucket, dstKey, uploadID)
			return errors.NewObjectError("uploadPartCopy", dstBucket, dstKey, errors.FromAWS(err)).
				WithMessage(fmt.Sprintf("failed to copy part %d", partNumber))
		}

		var etag *string
		if output.CopyPartResult != nil {
			etag = output.CopyPartResult.ETag
		}
		parts = append(parts, awstypes.CompletedPart{
			ETag:       etag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	_, err = c.s3Client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(dstBucket),
		Key:      aws.String(dstKey),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		c.abortMultipartUpload(ctx, dstBucket, dstKey, uploadID)
		return errors.NewObjectError("completeMultipartUpload", dstBucket, dstKey, errors.FromAWS(err))
	}

	return nil
}

// multipartUploadInput carries the source object's headers onto the upload.
func multipartUploadInput(bucket, key string, head *s3.HeadObjectOutput) *s3.CreateMultipartUploadInput {
	input := &s3.CreateMultipartUploadInput{
		Bucket:             aws.String(bucket),
		Key:                aws.String(key),
		ContentType:        head.ContentType,
		ContentEncoding:    head.ContentEncoding,
		ContentLanguage:    head.ContentLanguage,
		ContentDisposition: head.ContentDisposition,
		CacheControl:       head.CacheControl,
	}
	if head.StorageClass != "" {
		input.StorageClass = head.StorageClass
	}
	if len(head.Metadata) > 0 {
		input.Metadata = make(map[string]string, len(head.Metadata))
		for k, v := range head.Metadata {
			input.Metadata[k] = v
		}
	}
	return input
}

// partSizeFor grows the part size when the default would exceed the part limit.
func (c *Copier) partSizeFor(objectSize int64) int64 {
	partSize := c.partSize
	if calculateParts(objectSize, partSize) > maxParts {
		partSize = (objectSize + maxParts - 1) / maxParts
	}
	return partSize
}

// abortMultipartUpload cleans up a failed multipart copy.
func (c *Copier) abortMultipartUpload(ctx context.Context, bucket, key, uploadID string) {
	// Ignore errors during cleanup
	_, _ = c.s3Client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}

// calculateParts calculates the number of parts needed.
func calculateParts(size, partSize int64) int {
	if size == 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}

// CopySource builds the URL-encoded "bucket/key" value CopyObject expects.
func CopySource(bucket, key string) string {
	return (&url.URL{Path: bucket + "/" + key}).EscapedPath()
}
