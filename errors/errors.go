package errors

import (
	"errors"
	"fmt"
)

// Error records where a housekeeping step failed: the step name and, when
// known, the bucket and key it was working on.
type Error struct {
	// Op names the step, such as "copy", "delete" or "listObjectVersions".
	Op string

	// Bucket is empty for failures that happen before a bucket is chosen.
	Bucket string

	// Key is empty for bucket-level steps.
	Key string

	// Err is the cause. It usually wraps one of the sentinels below.
	Err error
}

// Error renders "op bucket/key: cause", dropping whichever location parts
// are unknown.
func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	case e.Key != "":
		return fmt.Sprintf("%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket sets the bucket and returns e.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey sets the object key and returns e.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage prefixes the cause with message. The cause stays reachable
// through errors.Is.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError wraps err for step op.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// NewBucketError wraps err for a step that works on a whole bucket.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Err: err}
}

// NewObjectError wraps err for a step that works on a single object.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// Failure classes. FromAWS maps S3 errors onto them and CodeOf turns them
// into the code that prefixes a FAILED reason.
var (
	// ErrObjectNotFound means a source object to copy is missing.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound means the bucket is gone. Drain and Remove treat it
	// as already done.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied means the function's role may not perform the call.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidInput means the resource properties or a bucket or key name
	// were rejected before any S3 call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrThrottled means S3 asked the caller to slow down.
	ErrThrottled = errors.New("request throttled")

	// ErrTimeout means the call, or the whole invocation, ran out of time.
	ErrTimeout = errors.New("operation timed out")
)

// IsObjectNotFound reports whether err wraps ErrObjectNotFound.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound reports whether err wraps ErrBucketNotFound.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
