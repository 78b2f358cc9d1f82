// Package s3api defines interfaces for S3 operations to enable testing and mocking.
package s3api
