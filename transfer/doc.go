// Package transfer copies a fixed list of objects between buckets and removes
// them again.
//
// A Request names a source bucket, a destination bucket, a shared key prefix
// and the object names relative to that prefix. The same list drives both the
// copy performed on stack Create/Update and the removal performed on Delete,
// so setup and teardown touch exactly the same keys.
//
// Objects are processed one at a time in list order. The first failure stops
// the run; objects copied before it are left in place and a retry of the whole
// request is safe because both directions are idempotent.
package transfer
