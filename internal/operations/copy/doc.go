// Package copy handles server-side object copies.
//
// Objects up to the single-request limit are copied with CopyObject. Larger
// objects are copied part by part with UploadPartCopy. Parts are copied
// sequentially; a failed multipart copy is aborted so no partial upload is
// left behind.
package copy
