// Package internal holds the S3 plumbing behind the storage package.
//
// Subpackages:
//   - s3api: the subset of the S3 API the housekeeper calls
//   - operations: copy, batched delete and listing built on s3api
//   - validation: bucket name and key checks
//   - testutil: mocks, an in-memory S3 and LocalStack helpers
package internal
