package validation

import (
	"net/netip"
	"unicode"
	"unicode/utf8"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

// MaxKeyLength is the S3 limit on object key length in bytes.
const MaxKeyLength = 1024

// ValidateBucketName validates that a bucket name follows the S3 naming rules.
func ValidateBucketName(bucket string) error {
	if bucket == "" {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name cannot be empty")
	}

	// Bucket names must be between 3 and 63 characters long
	if len(bucket) < 3 || len(bucket) > 63 {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name must be between 3 and 63 characters long")
	}

	for _, char := range bucket {
		if !isValidBucketChar(char) {
			return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
				WithMessage("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	first, last := bucket[0], bucket[len(bucket)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name must start and end with a letter or number")
	}

	for i := 0; i < len(bucket)-1; i++ {
		if bucket[i] == '.' && bucket[i+1] == '.' {
			return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
				WithMessage("bucket name cannot contain two adjacent periods")
		}
	}

	if addr, err := netip.ParseAddr(bucket); err == nil && addr.Is4() {
		return errors.NewBucketError("validateBucketName", bucket, errors.ErrInvalidInput).
			WithMessage("bucket name cannot be formatted as an IP address")
	}

	return nil
}

// ValidateObjectKey validates that an object key is usable with S3.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.NewObjectError("validateObjectKey", "", key, errors.ErrInvalidInput).
			WithMessage("object key cannot be empty")
	}

	if len(key) > MaxKeyLength {
		return errors.NewObjectError("validateObjectKey", "", key, errors.ErrInvalidInput).
			WithMessage("object key cannot exceed 1024 bytes")
	}

	if !utf8.ValidString(key) {
		return errors.NewObjectError("validateObjectKey", "", key, errors.ErrInvalidInput).
			WithMessage("object key must be valid UTF-8")
	}

	for _, char := range key {
		if unicode.IsControl(char) {
			return errors.NewObjectError("validateObjectKey", "", key, errors.ErrInvalidInput).
				WithMessage("object key cannot contain control characters")
		}
	}

	return nil
}

// isValidBucketChar checks if a character is valid in a bucket name
func isValidBucketChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}
