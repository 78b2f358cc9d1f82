// Package errors provides error classification for the housekeeping handlers.
// It pairs string error codes, which end up in the reason reported to
// CloudFormation, with an operation-scoped error type and sentinels for the
// storage failures the handlers care about.
package errors
