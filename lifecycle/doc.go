// Package lifecycle turns CloudFormation custom-resource events into copy or
// drain operations and reports exactly one outcome back to CloudFormation.
//
// An Event is resolved at the boundary into a Request, which is either a
// CopyRequest or a DrainRequest. Properties are validated strictly so a bad
// template fails before any storage call is made.
//
// The Dispatcher runs the operation and delivers the outcome through a
// single-assignment slot. When the invocation has a deadline, a guard timer
// races the operation: whichever of the two claims the slot first sends its
// outcome, and the other attempt is dropped.
//
// A Delete whose properties are invalid is reported as SUCCESS because no
// resource could have been created from them.
package lifecycle
