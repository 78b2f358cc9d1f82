package errors

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 error codes as returned in smithy API errors.
const (
	codeNoSuchBucket       = "NoSuchBucket"
	codeNoSuchKey          = "NoSuchKey"
	codeNotFound           = "NotFound"
	codeAccessDenied       = "AccessDenied"
	codeForbidden          = "Forbidden"
	codeSlowDown           = "SlowDown"
	codeThrottling         = "Throttling"
	codeThrottlingExc      = "ThrottlingException"
	codeRequestLimit       = "RequestLimitExceeded"
	codeTooManyRequests    = "TooManyRequestsException"
	codeRequestTimeout     = "RequestTimeout"
	codeInvalidBucketName  = "InvalidBucketName"
	codeInvalidArgument    = "InvalidArgument"
	codeInvalidRequest     = "InvalidRequest"
	codeMalformedXML       = "MalformedXML"
	codeKeyTooLongError    = "KeyTooLongError"
	codeInvalidObjectState = "InvalidObjectState"
)

// FromAWS converts an AWS SDK error into one that matches the package
// sentinels with errors.Is while keeping the original error in the chain.
// Errors that cannot be classified are returned unchanged.
func FromAWS(err error) error {
	if err == nil {
		return nil
	}

	if sentinel := sentinelFor(err); sentinel != nil && !errors.Is(err, sentinel) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}

	return err
}

func sentinelFor(err error) error {
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return ErrBucketNotFound
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return ErrObjectNotFound
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ErrObjectNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case codeNoSuchBucket:
			return ErrBucketNotFound
		case codeNoSuchKey, codeNotFound:
			return ErrObjectNotFound
		case codeAccessDenied, codeForbidden:
			return ErrAccessDenied
		case codeSlowDown, codeThrottling, codeThrottlingExc, codeRequestLimit, codeTooManyRequests:
			return ErrThrottled
		case codeRequestTimeout:
			return ErrTimeout
		case codeInvalidBucketName, codeInvalidArgument, codeInvalidRequest,
			codeMalformedXML, codeKeyTooLongError, codeInvalidObjectState:
			return ErrInvalidInput
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	return nil
}

// CodeOf classifies an error into the ErrorCode reported to the orchestrator.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	err = FromAWS(err)

	switch {
	case errors.Is(err, ErrBucketNotFound), errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrThrottled):
		return CodeRateLimit
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeNetwork
	}

	return CodeUnknown
}
