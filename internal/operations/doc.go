// Package operations groups the S3 calls the storage client is built from.
//
// Each subpackage wraps one concern: copy for server-side and multipart
// copies, delete for batched version deletes and list for object and
// version paging.
package operations
