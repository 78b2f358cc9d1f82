package drain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-multierror"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/s3types"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
)

// DefaultPageSize is the listing page size used when none is configured.
const DefaultPageSize = 1000

// nullVersion addresses the object S3 stores while versioning is suspended.
const nullVersion = "null"

// Result summarizes what a drain deleted.
type Result struct {
	// BucketMissing is set when the bucket did not exist
	BucketMissing bool

	// VersioningSuspended is set when the drain switched versioning from
	// Enabled to Suspended
	VersioningSuspended bool

	DeleteMarkers int
	Versions      int
	Objects       int
}

// Drainer empties buckets through a storage client.
type Drainer struct {
	store    *storage.Client
	pageSize int32
	logger   *slog.Logger
}

// Option configures a Drainer.
type Option func(*Drainer)

// WithPageSize sets the number of entries requested per listing page.
func WithPageSize(pageSize int32) Option {
	return func(d *Drainer) {
		if pageSize > 0 {
			d.pageSize = pageSize
		}
	}
}

// WithLogger sets the logger used for drain progress.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Drainer) {
		d.logger = logger
	}
}

// New creates a Drainer.
func New(store *storage.Client, opts ...Option) *Drainer {
	d := &Drainer{
		store:    store,
		pageSize: DefaultPageSize,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Drain deletes every version, delete marker and current object in bucket.
//
// Entries S3 refuses to delete do not stop the drain; they are collected and
// returned together once both passes have run. Any other storage error stops
// the drain immediately.
func (d *Drainer) Drain(ctx context.Context, bucket string) (*Result, error) {
	result := &Result{}
	if bucket == "" {
		return result, errors.NewError("drain", errors.ErrInvalidInput).WithMessage("bucket name is required")
	}

	logger := d.logger.With("bucket", bucket)

	err := d.drain(ctx, logger, bucket, result)
	if errors.IsBucketNotFound(err) {
		logger.InfoContext(ctx, "bucket does not exist, nothing to drain")
		result.BucketMissing = true
		return result, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "drain failed",
			"delete_markers", result.DeleteMarkers,
			"versions", result.Versions,
			"objects", result.Objects,
			"error", err)
		return result, err
	}

	logger.InfoContext(ctx, "bucket drained",
		"versioning_suspended", result.VersioningSuspended,
		"delete_markers", result.DeleteMarkers,
		"versions", result.Versions,
		"objects", result.Objects)
	return result, nil
}

func (d *Drainer) drain(ctx context.Context, logger *slog.Logger, bucket string, result *Result) error {
	status, err := d.store.VersioningStatus(ctx, bucket)
	if err != nil {
		return err
	}

	if status == s3types.VersioningEnabled {
		if err := d.store.SuspendVersioning(ctx, bucket); err != nil {
			return err
		}
		result.VersioningSuspended = true
	}

	var rejected *multierror.Error

	if err := d.drainVersions(ctx, logger, bucket, result, &rejected); err != nil {
		return err
	}
	if err := d.drainObjects(ctx, bucket, status != s3types.VersioningUnset, result, &rejected); err != nil {
		return err
	}

	if rejected != nil {
		return errors.NewBucketError("drain", bucket, rejected.ErrorOrNil())
	}
	return nil
}

// drainVersions deletes delete markers and versions one listing page at a time.
func (d *Drainer) drainVersions(
	ctx context.Context,
	logger *slog.Logger,
	bucket string,
	result *Result,
	rejected **multierror.Error,
) error {
	pager := d.store.VersionPages(bucket, d.pageSize)
	for pager.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return errors.NewBucketError("drain", bucket, errors.FromAWS(err))
		}

		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}

		markers, err := d.delete(ctx, bucket, page.DeleteMarkers, rejected)
		if err != nil {
			return err
		}
		result.DeleteMarkers += markers

		versions, err := d.delete(ctx, bucket, page.Versions, rejected)
		if err != nil {
			return err
		}
		result.Versions += versions

		logger.DebugContext(ctx, "version page drained",
			"delete_markers", markers,
			"versions", versions)
	}
	return nil
}

// drainObjects deletes whatever current objects remain. In a bucket that was
// ever versioned the null version is deleted explicitly so no new delete
// marker is left behind.
func (d *Drainer) drainObjects(
	ctx context.Context,
	bucket string,
	versioned bool,
	result *Result,
	rejected **multierror.Error,
) error {
	pager := d.store.ObjectPages(bucket, d.pageSize)
	for pager.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return errors.NewBucketError("drain", bucket, errors.FromAWS(err))
		}

		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}

		entries := make([]s3types.ObjectVersion, 0, len(page.Objects))
		for _, obj := range page.Objects {
			entry := s3types.ObjectVersion{Key: obj.Key}
			if versioned {
				entry.VersionID = nullVersion
			}
			entries = append(entries, entry)
		}

		deleted, err := d.delete(ctx, bucket, entries, rejected)
		if err != nil {
			return err
		}
		result.Objects += deleted
	}
	return nil
}

// delete removes entries and records every entry S3 refused in rejected.
func (d *Drainer) delete(
	ctx context.Context,
	bucket string,
	entries []s3types.ObjectVersion,
	rejected **multierror.Error,
) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	res, err := d.store.DeleteVersions(ctx, bucket, entries)
	if err != nil {
		return 0, err
	}

	for _, e := range res.Errors {
		cause := errors.FromAWS(&smithy.GenericAPIError{Code: e.Code, Message: e.Message})
		*rejected = multierror.Append(*rejected, fmt.Errorf("delete %s (version %s): %w", e.Key, e.Version, cause))
	}
	return len(res.Deleted), nil
}
