package s3types

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// VersioningStatus represents the versioning state of a bucket.
type VersioningStatus string

// Bucket versioning states. A bucket that never had versioning enabled
// reports VersioningUnset.
const (
	VersioningUnset     VersioningStatus = ""
	VersioningEnabled   VersioningStatus = "Enabled"
	VersioningSuspended VersioningStatus = "Suspended"
)

// Object represents an S3 object with its basic metadata.
type Object struct {
	// Key is the S3 object key (path)
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag for the object
	ETag string
}

// ObjectVersion identifies one historical revision of an object, or a
// delete marker, in a versioned bucket.
type ObjectVersion struct {
	// Key is the S3 object key
	Key string

	// VersionID is the version identifier ("null" for unversioned writes)
	VersionID string

	// IsLatest reports whether this is the current version of the key
	IsLatest bool

	// DeleteMarker reports whether this entry is a delete marker
	DeleteMarker bool
}

// VersionPage is one page of a version listing, split into versions and
// delete markers as S3 returns them.
type VersionPage struct {
	Versions      []ObjectVersion
	DeleteMarkers []ObjectVersion
}

// ObjectPage is one page of a current-object listing.
type ObjectPage struct {
	Objects []Object
}

// DeleteResult contains the results of a batch delete operation.
type DeleteResult struct {
	// Deleted contains the entries that were successfully deleted
	Deleted []ObjectVersion

	// Errors contains the entries S3 refused to delete
	Errors []DeleteError

	// Duration is how long the delete took
	Duration time.Duration
}

// DeleteError represents a single failed deletion in a batch.
type DeleteError struct {
	// Key is the object key that failed to delete
	Key string

	// Version is the version ID (if applicable)
	Version string

	// Code is the S3 error code
	Code string

	// Message is the error message
	Message string
}

// ClientConfig holds configuration for the storage client.
type ClientConfig struct {
	// Region is the AWS region
	Region string

	// Endpoint is a custom S3 endpoint (LocalStack, S3-compatible services)
	Endpoint string

	// ForcePathStyle forces path-style addressing
	ForcePathStyle bool

	// MaxRetries is the maximum number of attempts the SDK retryer makes
	MaxRetries int

	// Timeout bounds each HTTP request made by the SDK
	Timeout time.Duration

	// CustomAWSConfig replaces the default credential chain when set
	CustomAWSConfig *aws.Config

	// CustomHTTPClient replaces the SDK HTTP client when set
	CustomHTTPClient *http.Client

	// Logger receives operation logs; nil disables logging
	Logger *slog.Logger
}

// Option configures a ClientConfig.
type Option func(*ClientConfig)
