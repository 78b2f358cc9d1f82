package testutil

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/s3api"
)

// nullVersion is the version id S3 assigns to writes made while versioning is
// unset or suspended.
const nullVersion = "null"

type memVersion struct {
	versionID    string
	seq          uint64
	deleteMarker bool
	size         int64
	modified     time.Time
}

type memBucket struct {
	versioning types.BucketVersioningStatus
	// keys holds every version of a key, oldest first.
	keys map[string][]*memVersion
	// seqs remembers the ordering of every version id ever issued so that
	// listing markers keep working after the marked version is deleted.
	seqs map[string]uint64
}

// MemoryS3 is an in-memory, version-aware S3 fake. It models the subset of
// bucket semantics the housekeeping operations rely on: versioning states,
// delete markers, "null" versions and paginated listings.
type MemoryS3 struct {
	mu      sync.Mutex
	seq     uint64
	buckets map[string]*memBucket
	calls   map[string]int
}

// NewMemoryS3 creates an empty fake with no buckets.
func NewMemoryS3() *MemoryS3 {
	return &MemoryS3{
		buckets: make(map[string]*memBucket),
		calls:   make(map[string]int),
	}
}

// CreateBucket adds an empty, unversioned bucket.
func (m *MemoryS3) CreateBucket(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[name] = &memBucket{
		keys: make(map[string][]*memVersion),
		seqs: make(map[string]uint64),
	}
}

// SetVersioning changes the bucket versioning status directly.
func (m *MemoryS3) SetVersioning(bucket string, status types.BucketVersioningStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mustBucket(bucket).versioning = status
}

// PutObject writes a new object of the given size and returns its version id.
func (m *MemoryS3) PutObject(bucket, key string, size int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(m.mustBucket(bucket), key, size, false)
}

// RemoveObject deletes key without a version id, as DeleteObject would.
func (m *MemoryS3) RemoveObject(bucket, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCurrent(m.mustBucket(bucket), key)
}

// CurrentKeys returns the sorted keys that currently resolve to an object.
func (m *MemoryS3) CurrentKeys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(b.keys))
	for key := range b.keys {
		if current(b, key) != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// VersionCounts returns the number of versions and delete markers stored in bucket.
func (m *MemoryS3) VersionCounts(bucket string) (versions, markers int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return 0, 0
	}
	for _, history := range b.keys {
		for _, v := range history {
			if v.deleteMarker {
				markers++
			} else {
				versions++
			}
		}
	}
	return versions, markers
}

// Versioning returns the versioning status of bucket.
func (m *MemoryS3) Versioning(bucket string) types.BucketVersioningStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b, ok := m.buckets[bucket]; ok {
		return b.versioning
	}
	return ""
}

// Calls returns how many times the named S3 operation was invoked.
func (m *MemoryS3) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// HeadObject implements s3api.S3API.
func (m *MemoryS3) HeadObject(
	_ context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["HeadObject"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}
	v := current(b, aws.ToString(params.Key))
	if v == nil {
		return nil, &types.NotFound{Message: aws.String("Not Found")}
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(v.size),
		ETag:          aws.String(etag(v)),
		LastModified:  aws.Time(v.modified),
		VersionId:     aws.String(v.versionID),
	}, nil
}

// CopyObject implements s3api.S3API.
func (m *MemoryS3) CopyObject(
	_ context.Context,
	params *s3.CopyObjectInput,
	_ ...func(*s3.Options),
) (*s3.CopyObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["CopyObject"]++

	source, err := url.PathUnescape(aws.ToString(params.CopySource))
	if err != nil {
		return nil, invalidArgument("invalid copy source")
	}
	srcBucket, srcKey, found := strings.Cut(strings.TrimPrefix(source, "/"), "/")
	if !found {
		return nil, invalidArgument("invalid copy source")
	}

	src, ok := m.buckets[srcBucket]
	if !ok {
		return nil, noSuchBucket()
	}
	v := current(src, srcKey)
	if v == nil {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}

	dst, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	versionID := m.write(dst, aws.ToString(params.Key), v.size, false)

	return &s3.CopyObjectOutput{
		VersionId: aws.String(versionID),
	}, nil
}

// DeleteObject implements s3api.S3API.
func (m *MemoryS3) DeleteObject(
	_ context.Context,
	params *s3.DeleteObjectInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["DeleteObject"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}

	key := aws.ToString(params.Key)
	if params.VersionId != nil {
		removed := deleteVersion(b, key, aws.ToString(params.VersionId))
		return &s3.DeleteObjectOutput{
			VersionId:    params.VersionId,
			DeleteMarker: aws.Bool(removed != nil && removed.deleteMarker),
		}, nil
	}

	marker := m.deleteCurrent(b, key)
	out := &s3.DeleteObjectOutput{}
	if marker != nil {
		out.DeleteMarker = aws.Bool(true)
		out.VersionId = aws.String(marker.versionID)
	}
	return out, nil
}

// DeleteObjects implements s3api.S3API.
func (m *MemoryS3) DeleteObjects(
	_ context.Context,
	params *s3.DeleteObjectsInput,
	_ ...func(*s3.Options),
) (*s3.DeleteObjectsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["DeleteObjects"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	if params.Delete == nil || len(params.Delete.Objects) == 0 {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "empty delete request"}
	}
	if len(params.Delete.Objects) > 1000 {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "too many objects"}
	}

	out := &s3.DeleteObjectsOutput{}
	for _, id := range params.Delete.Objects {
		key := aws.ToString(id.Key)
		if id.VersionId != nil {
			removed := deleteVersion(b, key, aws.ToString(id.VersionId))
			out.Deleted = append(out.Deleted, types.DeletedObject{
				Key:          aws.String(key),
				VersionId:    id.VersionId,
				DeleteMarker: aws.Bool(removed != nil && removed.deleteMarker),
			})
			continue
		}

		deleted := types.DeletedObject{Key: aws.String(key)}
		if marker := m.deleteCurrent(b, key); marker != nil {
			deleted.DeleteMarker = aws.Bool(true)
			deleted.DeleteMarkerVersionId = aws.String(marker.versionID)
		}
		out.Deleted = append(out.Deleted, deleted)
	}

	return out, nil
}

// ListObjectsV2 implements s3api.S3API. The continuation token is the last
// key of the previous page.
func (m *MemoryS3) ListObjectsV2(
	_ context.Context,
	params *s3.ListObjectsV2Input,
	_ ...func(*s3.Options),
) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListObjectsV2"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}

	prefix := aws.ToString(params.Prefix)
	after := aws.ToString(params.ContinuationToken)
	keys := make([]string, 0, len(b.keys))
	for key := range b.keys {
		if !strings.HasPrefix(key, prefix) || (after != "" && key <= after) {
			continue
		}
		if current(b, key) != nil {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	limit := pageLimit(params.MaxKeys)
	out := &s3.ListObjectsV2Output{
		Name:        params.Bucket,
		Prefix:      params.Prefix,
		IsTruncated: aws.Bool(false),
	}
	if len(keys) > limit {
		keys = keys[:limit]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[limit-1])
	}

	for _, key := range keys {
		v := current(b, key)
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(v.size),
			ETag:         aws.String(etag(v)),
			LastModified: aws.Time(v.modified),
		})
	}
	out.KeyCount = aws.Int32(int32(len(out.Contents)))

	return out, nil
}

type listedVersion struct {
	key string
	*memVersion
	latest bool
}

// ListObjectVersions implements s3api.S3API. Entries are ordered by key and
// then newest first, like S3.
func (m *MemoryS3) ListObjectVersions(
	_ context.Context,
	params *s3.ListObjectVersionsInput,
	_ ...func(*s3.Options),
) (*s3.ListObjectVersionsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["ListObjectVersions"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}

	prefix := aws.ToString(params.Prefix)
	keyMarker := aws.ToString(params.KeyMarker)
	versionMarker := aws.ToString(params.VersionIdMarker)
	markerSeq, hasMarkerSeq := b.seqs[seqKey(keyMarker, versionMarker)]

	var entries []listedVersion
	for key, history := range b.keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for i, v := range history {
			if keyMarker != "" {
				if key < keyMarker {
					continue
				}
				if key == keyMarker && (versionMarker == "" || !hasMarkerSeq || v.seq >= markerSeq) {
					continue
				}
			}
			entries = append(entries, listedVersion{key: key, memVersion: v, latest: i == len(history)-1})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].seq > entries[j].seq
	})

	limit := pageLimit(params.MaxKeys)
	out := &s3.ListObjectVersionsOutput{
		Name:        params.Bucket,
		Prefix:      params.Prefix,
		IsTruncated: aws.Bool(false),
	}
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		out.IsTruncated = aws.Bool(true)
		out.NextKeyMarker = aws.String(last.key)
		out.NextVersionIdMarker = aws.String(last.versionID)
	}

	for _, e := range entries {
		if e.deleteMarker {
			out.DeleteMarkers = append(out.DeleteMarkers, types.DeleteMarkerEntry{
				Key:          aws.String(e.key),
				VersionId:    aws.String(e.versionID),
				IsLatest:     aws.Bool(e.latest),
				LastModified: aws.Time(e.modified),
			})
			continue
		}
		out.Versions = append(out.Versions, types.ObjectVersion{
			Key:          aws.String(e.key),
			VersionId:    aws.String(e.versionID),
			IsLatest:     aws.Bool(e.latest),
			Size:         aws.Int64(e.size),
			ETag:         aws.String(etag(e.memVersion)),
			LastModified: aws.Time(e.modified),
		})
	}

	return out, nil
}

// GetBucketVersioning implements s3api.S3API.
func (m *MemoryS3) GetBucketVersioning(
	_ context.Context,
	params *s3.GetBucketVersioningInput,
	_ ...func(*s3.Options),
) (*s3.GetBucketVersioningOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["GetBucketVersioning"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	return &s3.GetBucketVersioningOutput{Status: b.versioning}, nil
}

// PutBucketVersioning implements s3api.S3API.
func (m *MemoryS3) PutBucketVersioning(
	_ context.Context,
	params *s3.PutBucketVersioningInput,
	_ ...func(*s3.Options),
) (*s3.PutBucketVersioningOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["PutBucketVersioning"]++

	b, ok := m.buckets[aws.ToString(params.Bucket)]
	if !ok {
		return nil, noSuchBucket()
	}
	if params.VersioningConfiguration == nil {
		return nil, &smithy.GenericAPIError{Code: "MalformedXML", Message: "missing versioning configuration"}
	}
	b.versioning = params.VersioningConfiguration.Status
	return &s3.PutBucketVersioningOutput{}, nil
}

// CreateMultipartUpload is not supported by the fake.
func (m *MemoryS3) CreateMultipartUpload(
	context.Context,
	*s3.CreateMultipartUploadInput,
	...func(*s3.Options),
) (*s3.CreateMultipartUploadOutput, error) {
	return nil, notImplemented("CreateMultipartUpload")
}

// UploadPartCopy is not supported by the fake.
func (m *MemoryS3) UploadPartCopy(
	context.Context,
	*s3.UploadPartCopyInput,
	...func(*s3.Options),
) (*s3.UploadPartCopyOutput, error) {
	return nil, notImplemented("UploadPartCopy")
}

// CompleteMultipartUpload is not supported by the fake.
func (m *MemoryS3) CompleteMultipartUpload(
	context.Context,
	*s3.CompleteMultipartUploadInput,
	...func(*s3.Options),
) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, notImplemented("CompleteMultipartUpload")
}

// AbortMultipartUpload is not supported by the fake.
func (m *MemoryS3) AbortMultipartUpload(
	context.Context,
	*s3.AbortMultipartUploadInput,
	...func(*s3.Options),
) (*s3.AbortMultipartUploadOutput, error) {
	return nil, notImplemented("AbortMultipartUpload")
}

func (m *MemoryS3) mustBucket(name string) *memBucket {
	b, ok := m.buckets[name]
	if !ok {
		panic(fmt.Sprintf("testutil: bucket %q does not exist", name))
	}
	return b
}

// write appends a new version (or delete marker) following the bucket's
// versioning status and returns its version id.
func (m *MemoryS3) write(b *memBucket, key string, size int64, deleteMarker bool) string {
	m.seq++
	v := &memVersion{
		versionID:    nullVersion,
		seq:          m.seq,
		deleteMarker: deleteMarker,
		size:         size,
		modified:     time.Now().UTC(),
	}

	if b.versioning == types.BucketVersioningStatusEnabled {
		v.versionID = uuid.NewString()
	} else {
		deleteVersion(b, key, nullVersion)
	}

	b.keys[key] = append(b.keys[key], v)
	b.seqs[seqKey(key, v.versionID)] = v.seq
	return v.versionID
}

// deleteCurrent applies an unversioned delete and returns the delete marker
// it placed, if any.
func (m *MemoryS3) deleteCurrent(b *memBucket, key string) *memVersion {
	if b.versioning == "" {
		delete(b.keys, key)
		return nil
	}
	m.write(b, key, 0, true)
	history := b.keys[key]
	return history[len(history)-1]
}

// deleteVersion permanently removes one version of key. Unknown versions are
// ignored, as S3 does.
func deleteVersion(b *memBucket, key, versionID string) *memVersion {
	history := b.keys[key]
	for i, v := range history {
		if v.versionID != versionID {
			continue
		}
		history = append(history[:i], history[i+1:]...)
		if len(history) == 0 {
			delete(b.keys, key)
		} else {
			b.keys[key] = history
		}
		return v
	}
	return nil
}

// current returns the version a plain GET would resolve, or nil.
func current(b *memBucket, key string) *memVersion {
	history := b.keys[key]
	if len(history) == 0 {
		return nil
	}
	latest := history[len(history)-1]
	if latest.deleteMarker {
		return nil
	}
	return latest
}

func seqKey(key, versionID string) string {
	return key + "\x00" + versionID
}

func etag(v *memVersion) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%032x", v.seq))
}

func pageLimit(maxKeys *int32) int {
	if n := aws.ToInt32(maxKeys); n > 0 && n <= 1000 {
		return int(n)
	}
	return 1000
}

func noSuchBucket() error {
	return &types.NoSuchBucket{Message: aws.String("The specified bucket does not exist")}
}

func invalidArgument(msg string) error {
	return &smithy.GenericAPIError{Code: "InvalidArgument", Message: msg}
}

func notImplemented(op string) error {
	return &smithy.GenericAPIError{Code: "NotImplemented", Message: op + " is not supported by MemoryS3"}
}

// Verify that MemoryS3 implements S3API
var _ s3api.S3API = (*MemoryS3)(nil)
