package transfer

import (
	"context"
	"log/slog"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

// Storage is the subset of the storage client a transfer needs.
type Storage interface {
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
}

// Request describes one set of objects shared between two buckets.
type Request struct {
	SourceBucket string
	DestBucket   string
	Prefix       string
	Objects      []string
}

// Keys returns the full object keys, in list order.
func (r Request) Keys() []string {
	keys := make([]string, len(r.Objects))
	for i, name := range r.Objects {
		keys[i] = r.Prefix + name
	}
	return keys
}

// Validate reports the first structural problem with the request.
func (r Request) Validate() error {
	if r.SourceBucket == "" {
		return errors.NewError("transfer", errors.ErrInvalidInput).WithMessage("source bucket is required")
	}
	if r.DestBucket == "" {
		return errors.NewError("transfer", errors.ErrInvalidInput).WithMessage("destination bucket is required")
	}
	for _, name := range r.Objects {
		if name == "" {
			return errors.NewError("transfer", errors.ErrInvalidInput).WithMessage("object names cannot be empty")
		}
	}
	return nil
}

// Result lists the keys that were processed before the run ended.
type Result struct {
	Processed []string
}

// Copier runs transfers against a Storage.
type Copier struct {
	store  Storage
	logger *slog.Logger
}

// Option configures a Copier.
type Option func(*Copier)

// WithLogger sets the logger used for per-object progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Copier) {
		c.logger = logger
	}
}

// New creates a Copier.
func New(store Storage, opts ...Option) *Copier {
	c := &Copier{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Copy copies every object of the request from the source bucket to the
// destination bucket. A missing source object fails the run.
func (c *Copier) Copy(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return &Result{}, err
	}

	result := &Result{Processed: make([]string, 0, len(req.Objects))}
	for _, key := range req.Keys() {
		if err := ctx.Err(); err != nil {
			return result, errors.NewError("copy", errors.FromAWS(err)).WithKey(key)
		}

		if err := c.store.Copy(ctx, req.SourceBucket, key, req.DestBucket, key); err != nil {
			c.logger.ErrorContext(ctx, "copy failed",
				"source_bucket", req.SourceBucket,
				"dest_bucket", req.DestBucket,
				"key", key,
				"copied", len(result.Processed),
				"error", err)
			return result, err
		}

		c.logger.InfoContext(ctx, "object copied",
			"source_bucket", req.SourceBucket,
			"dest_bucket", req.DestBucket,
			"key", key)
		result.Processed = append(result.Processed, key)
	}

	return result, nil
}

// Remove deletes every object of the request from the destination bucket.
// Absent objects are skipped by S3, and a destination bucket that no longer
// exists means there is nothing left to remove.
func (c *Copier) Remove(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return &Result{}, err
	}

	result := &Result{Processed: make([]string, 0, len(req.Objects))}
	for _, key := range req.Keys() {
		if err := ctx.Err(); err != nil {
			return result, errors.NewError("remove", errors.FromAWS(err)).WithKey(key)
		}

		err := c.store.Delete(ctx, req.DestBucket, key)
		if errors.IsBucketNotFound(err) {
			c.logger.WarnContext(ctx, "destination bucket is gone, nothing to remove",
				"dest_bucket", req.DestBucket)
			return result, nil
		}
		if err != nil {
			c.logger.ErrorContext(ctx, "remove failed",
				"dest_bucket", req.DestBucket,
				"key", key,
				"removed", len(result.Processed),
				"error", err)
			return result, err
		}

		c.logger.InfoContext(ctx, "object removed", "dest_bucket", req.DestBucket, "key", key)
		result.Processed = append(result.Processed, key)
	}

	return result, nil
}
