package delete

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-housekeeping/s3types"
)

// MaxBatchSize is the S3 limit on identifiers per DeleteObjects request.
const MaxBatchSize = 1000

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	DeleteObjects(
		ctx context.Context,
		input *s3.DeleteObjectsInput,
		opts ...func(*s3.Options),
	) (*s3.DeleteObjectsOutput, error)
}

// BatchDeleter deletes (key, version) identifiers in S3-sized batches.
// Batches are sent one after another.
type BatchDeleter struct {
	client       S3Interface
	maxBatchSize int
}

// New creates a new BatchDeleter.
func New(client S3Interface) *BatchDeleter {
	return &BatchDeleter{
		client:       client,
		maxBatchSize: MaxBatchSize,
	}
}

// DeleteBatch deletes the given entries. An empty VersionID deletes the
// current object (or places a delete marker in an Enabled bucket).
//
// A request-level failure aborts the remaining batches and is returned as the
// error; per-entry failures reported by S3 are collected in the result.
func (b *BatchDeleter) DeleteBatch(
	ctx context.Context,
	bucket string,
	entries []s3types.ObjectVersion,
) (*s3types.DeleteResult, error) {
	start := time.Now()
	result := &s3types.DeleteResult{
		Deleted: make([]s3types.ObjectVersion, 0, len(entries)),
	}

	for _, batch := range splitIntoBatches(entries, b.maxBatchSize) {
		output, err := b.deleteBatchDirect(ctx, bucket, batch)
		if err != nil {
			result.Duration = time.Since(start)
			return result, err
		}
		mergeOutput(result, output)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// deleteBatchDirect handles a single batch deletion.
func (b *BatchDeleter) deleteBatchDirect(
	ctx context.Context,
	bucket string,
	entries []s3types.ObjectVersion,
) (*s3.DeleteObjectsOutput, error) {
	identifiers := make([]types.ObjectIdentifier, 0, len(entries))
	for _, entry := range entries {
		id := types.ObjectIdentifier{
			Key: aws.String(entry.Key),
		}
		if entry.VersionID != "" {
			id.VersionId = aws.String(entry.VersionID)
		}
		identifiers = append(identifiers, id)
	}

	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: identifiers,
			Quiet:   aws.Bool(false), // Get detailed results
		},
	}

	output, err := b.client.DeleteObjects(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("delete objects: %w", err)
	}

	return output, nil
}

// mergeOutput folds one DeleteObjects response into the running result.
func mergeOutput(result *s3types.DeleteResult, output *s3.DeleteObjectsOutput) {
	for _, deleted := range output.Deleted {
		result.Deleted = append(result.Deleted, s3types.ObjectVersion{
			Key:          aws.ToString(deleted.Key),
			VersionID:    aws.ToString(deleted.VersionId),
			DeleteMarker: aws.ToBool(deleted.DeleteMarker),
		})
	}

	for _, e := range output.Errors {
		result.Errors = append(result.Errors, s3types.DeleteError{
			Key:     aws.ToString(e.Key),
			Version: aws.ToString(e.VersionId),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}
}

// splitIntoBatches splits a slice into batches of specified size.
func splitIntoBatches(entries []s3types.ObjectVersion, batchSize int) [][]s3types.ObjectVersion {
	batches := make([][]s3types.ObjectVersion, 0, (len(entries)+batchSize-1)/batchSize)

	for i := 0; i < len(entries); i += batchSize {
		end := i + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batches = append(batches, entries[i:end])
	}

	return batches
}
