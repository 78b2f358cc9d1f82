package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// GenerateTestBucketName generates a valid test bucket name.
// Bucket names must be DNS-compliant and globally unique.
func GenerateTestBucketName(prefix string) string {
	timestamp := time.Now().Unix()
	random := rand.Int31n(10000)
	name := fmt.Sprintf("%s-%d-%d", prefix, timestamp, random)
	// Ensure DNS compliance
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// GenerateKeys returns n keys of the form "<prefix>object-0000".
func GenerateKeys(prefix string, n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%sobject-%04d", prefix, i)
	}
	return keys
}

// CreateListObjectVersionsOutput builds a ListObjectVersions response with one
// latest version per key in versions and one delete marker per key in markers.
func CreateListObjectVersionsOutput(versions, markers []string, truncated bool) *s3.ListObjectVersionsOutput {
	output := &s3.ListObjectVersionsOutput{
		Name:        aws.String("test-bucket"),
		IsTruncated: aws.Bool(truncated),
	}
	for i, key := range versions {
		output.Versions = append(output.Versions, types.ObjectVersion{
			Key:       aws.String(key),
			VersionId: aws.String(fmt.Sprintf("v%d", i)),
			IsLatest:  aws.Bool(true),
			Size:      aws.Int64(1),
		})
	}
	for i, key := range markers {
		output.DeleteMarkers = append(output.DeleteMarkers, types.DeleteMarkerEntry{
			Key:       aws.String(key),
			VersionId: aws.String(fmt.Sprintf("m%d", i)),
			IsLatest:  aws.Bool(true),
		})
	}
	if truncated {
		output.NextKeyMarker = aws.String("next-key")
		output.NextVersionIdMarker = aws.String("next-version")
	}
	return output
}

// CreateListObjectsV2Output creates a ListObjectsV2 response with one object per key.
func CreateListObjectsV2Output(keys []string, truncated bool) *s3.ListObjectsV2Output {
	output := &s3.ListObjectsV2Output{
		Name:        aws.String("test-bucket"),
		KeyCount:    aws.Int32(int32(len(keys))),
		MaxKeys:     aws.Int32(1000),
		IsTruncated: aws.Bool(truncated),
	}
	for _, key := range keys {
		output.Contents = append(output.Contents, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(1),
		})
	}
	if truncated {
		output.NextContinuationToken = aws.String("next-token")
	}
	return output
}
