// Package s3types provides shared type definitions for the storage layer.
package s3types
