package list

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-housekeeping/s3types"
)

// MaxPageSize is the largest page S3 returns for either listing.
const MaxPageSize = 1000

// S3Interface defines the S3 operations we need.
type S3Interface interface {
	ListObjectsV2(
		ctx context.Context,
		input *s3.ListObjectsV2Input,
		opts ...func(*s3.Options),
	) (*s3.ListObjectsV2Output, error)
	ListObjectVersions(
		ctx context.Context,
		input *s3.ListObjectVersionsInput,
		opts ...func(*s3.Options),
	) (*s3.ListObjectVersionsOutput, error)
}

// Config holds configuration for list operations.
type Config struct {
	Bucket   string
	Prefix   string
	PageSize int32
}

// ObjectPaginator pages through the current objects of a bucket.
type ObjectPaginator struct {
	client            S3Interface
	config            Config
	pageSize          int32
	continuationToken *string
	hasMorePages      bool
	firstPage         bool
}

// NewObjectPaginator creates a paginator over ListObjectsV2.
func NewObjectPaginator(client S3Interface, config Config) *ObjectPaginator {
	return &ObjectPaginator{
		client:    client,
		config:    config,
		pageSize:  optimalPageSize(config.PageSize),
		firstPage: true,
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *ObjectPaginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// NextPage fetches the next page of results.
func (p *ObjectPaginator) NextPage(ctx context.Context) (*s3types.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.config.Bucket),
		MaxKeys: aws.Int32(p.pageSize),
	}
	if p.config.Prefix != "" {
		input.Prefix = aws.String(p.config.Prefix)
	}
	if !p.firstPage && p.continuationToken != nil {
		input.ContinuationToken = p.continuationToken
	}

	output, err := p.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list objects page: %w", err)
	}

	p.firstPage = false
	p.hasMorePages = aws.ToBool(output.IsTruncated) && output.NextContinuationToken != nil
	p.continuationToken = output.NextContinuationToken

	page := &s3types.ObjectPage{
		Objects: make([]s3types.Object, 0, len(output.Contents)),
	}
	for _, obj := range output.Contents {
		page.Objects = append(page.Objects, s3types.Object{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}

	return page, nil
}

// VersionPaginator pages through every version and delete marker of a bucket.
type VersionPaginator struct {
	client          S3Interface
	config          Config
	pageSize        int32
	keyMarker       *string
	versionIDMarker *string
	hasMorePages    bool
	firstPage       bool
}

// NewVersionPaginator creates a paginator over ListObjectVersions.
func NewVersionPaginator(client S3Interface, config Config) *VersionPaginator {
	return &VersionPaginator{
		client:    client,
		config:    config,
		pageSize:  optimalPageSize(config.PageSize),
		firstPage: true,
	}
}

// HasMorePages returns true if there are more pages to fetch.
func (p *VersionPaginator) HasMorePages() bool {
	return p.firstPage || p.hasMorePages
}

// NextPage fetches the next page of versions and delete markers.
func (p *VersionPaginator) NextPage(ctx context.Context) (*s3types.VersionPage, error) {
	input := &s3.ListObjectVersionsInput{
		Bucket:  aws.String(p.config.Bucket),
		MaxKeys: aws.Int32(p.pageSize),
	}
	if p.config.Prefix != "" {
		input.Prefix = aws.String(p.config.Prefix)
	}
	if !p.firstPage {
		input.KeyMarker = p.keyMarker
		input.VersionIdMarker = p.versionIDMarker
	}

	output, err := p.client.ListObjectVersions(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list object versions page: %w", err)
	}

	p.firstPage = false
	p.hasMorePages = aws.ToBool(output.IsTruncated) && output.NextKeyMarker != nil
	p.keyMarker = output.NextKeyMarker
	p.versionIDMarker = output.NextVersionIdMarker

	page := &s3types.VersionPage{
		Versions:      make([]s3types.ObjectVersion, 0, len(output.Versions)),
		DeleteMarkers: make([]s3types.ObjectVersion, 0, len(output.DeleteMarkers)),
	}
	for _, v := range output.Versions {
		page.Versions = append(page.Versions, s3types.ObjectVersion{
			Key:       aws.ToString(v.Key),
			VersionID: aws.ToString(v.VersionId),
			IsLatest:  aws.ToBool(v.IsLatest),
		})
	}
	for _, m := range output.DeleteMarkers {
		page.DeleteMarkers = append(page.DeleteMarkers, s3types.ObjectVersion{
			Key:          aws.ToString(m.Key),
			VersionID:    aws.ToString(m.VersionId),
			IsLatest:     aws.ToBool(m.IsLatest),
			DeleteMarker: true,
		})
	}

	return page, nil
}

// optimalPageSize clamps the requested page size to what S3 accepts.
func optimalPageSize(size int32) int32 {
	if size > 0 && size <= MaxPageSize {
		return size
	}
	return MaxPageSize
}
