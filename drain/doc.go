// Package drain empties a bucket so that it can be deleted.
//
// A drain runs in three steps. Versioning is suspended first if it is
// enabled, so no new versions appear mid-drain. Every delete marker and every
// object version is then deleted page by page. Finally any current object
// still listed is deleted. Both passes re-read the bucket, which makes a
// drain idempotent: draining an empty bucket deletes nothing and succeeds.
//
// A bucket that does not exist is already drained.
package drain
