// Package storage provides the S3 client used by the housekeeping operations.
//
// The Client wraps the AWS SDK with the small set of calls the copy and drain
// routines need: server-side copies, single and batched deletes, versioning
// control and paginated listings of objects and object versions. Every SDK
// error is classified so callers can test it with errors.Is against the
// sentinels of the errors package.
package storage
