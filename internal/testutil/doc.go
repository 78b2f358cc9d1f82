// Package testutil provides test utilities and fakes for S3 operations.
// This package is internal and should only be used for testing within this module.
package testutil
