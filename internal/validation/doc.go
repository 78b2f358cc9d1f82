// Package validation checks bucket names and object keys before they reach S3.
package validation
