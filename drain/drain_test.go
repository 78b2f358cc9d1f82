package drain

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hkerrors "github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
)

func assertEmpty(t *testing.T, mem *testutil.MemoryS3, bucket string) {
	t.Helper()

	versions, markers := mem.VersionCounts(bucket)
	assert.Zero(t, versions, "versions left in %s", bucket)
	assert.Zero(t, markers, "delete markers left in %s", bucket)
	assert.Empty(t, mem.CurrentKeys(bucket))
}

func TestDrainer_VersionedBucket(t *testing.T) {
	tests := []struct {
		name     string
		objects  int
		history  int
		markers  int
		pageSize int32
	}{
		{"small", 3, 2, 1, 0},
		{"paged", 25, 10, 6, 7},
		{"single entry pages", 4, 3, 2, 1},
		{"only markers", 0, 0, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := testutil.NewMemoryS3()
			mem.CreateBucket("bucket")
			mem.SetVersioning("bucket", types.BucketVersioningStatusEnabled)

			// N current objects, M extra historical versions on them and K keys
			// hidden behind a delete marker.
			keys := testutil.GenerateKeys("live/", tt.objects)
			for _, key := range keys {
				mem.PutObject("bucket", key, 1)
			}
			for i := 0; i < tt.history; i++ {
				mem.PutObject("bucket", keys[i%len(keys)], 2)
			}
			for _, key := range testutil.GenerateKeys("gone/", tt.markers) {
				mem.PutObject("bucket", key, 1)
				mem.RemoveObject("bucket", key)
			}

			wantVersions, wantMarkers := mem.VersionCounts("bucket")

			result, err := New(storage.NewWithClient(mem), WithPageSize(tt.pageSize)).
				Drain(context.Background(), "bucket")
			require.NoError(t, err)

			assertEmpty(t, mem, "bucket")
			assert.Equal(t, types.BucketVersioningStatusSuspended, mem.Versioning("bucket"))
			assert.True(t, result.VersioningSuspended)
			assert.False(t, result.BucketMissing)
			assert.Equal(t, wantVersions, result.Versions)
			assert.Equal(t, wantMarkers, result.DeleteMarkers)
			assert.Zero(t, result.Objects)
		})
	}
}

func TestDrainer_Idempotent(t *testing.T) {
	mem := testutil.NewMemoryS3()
	mem.CreateBucket("bucket")
	mem.SetVersioning("bucket", types.BucketVersioningStatusEnabled)
	for _, key := range testutil.GenerateKeys("", 10) {
		mem.PutObject("bucket", key, 1)
		mem.PutObject("bucket", key, 1)
	}
	drainer := New(storage.NewWithClient(mem))

	first, err := drainer.Drain(context.Background(), "bucket")
	require.NoError(t, err)
	assert.Equal(t, 20, first.Versions)

	deletesAfterFirst := mem.Calls("DeleteObjects")

	second, err := drainer.Drain(context.Background(), "bucket")
	require.NoError(t, err)
	assert.Equal(t, &Result{}, second)
	assert.Equal(t, deletesAfterFirst, mem.Calls("DeleteObjects"), "an empty bucket needs no deletes")
	assertEmpty(t, mem, "bucket")
}

func TestDrainer_MissingBucket(t *testing.T) {
	mem := testutil.NewMemoryS3()

	result, err := New(storage.NewWithClient(mem)).Drain(context.Background(), "never-created")
	require.NoError(t, err)
	assert.True(t, result.BucketMissing)
	assert.Zero(t, mem.Calls("DeleteObjects"))
}

func TestDrainer_UnversionedBucket(t *testing.T) {
	mem := testutil.NewMemoryS3()
	mem.CreateBucket("bucket")
	for _, key := range testutil.GenerateKeys("", 2500) {
		mem.PutObject("bucket", key, 1)
	}

	result, err := New(storage.NewWithClient(mem)).Drain(context.Background(), "bucket")
	require.NoError(t, err)

	assertEmpty(t, mem, "bucket")
	assert.Equal(t, types.BucketVersioningStatus(""), mem.Versioning("bucket"))
	assert.False(t, result.VersioningSuspended)
	assert.Equal(t, 2500, result.Versions)
	assert.Zero(t, mem.Calls("PutBucketVersioning"))
	assert.Equal(t, 3, mem.Calls("DeleteObjects"), "one request per 1000-entry page")
}

func TestDrainer_SuspendedBucket(t *testing.T) {
	mem := testutil.NewMemoryS3()
	mem.CreateBucket("bucket")
	mem.SetVersioning("bucket", types.BucketVersioningStatusEnabled)
	mem.PutObject("bucket", "old.txt", 1)
	mem.SetVersioning("bucket", types.BucketVersioningStatusSuspended)
	mem.PutObject("bucket", "old.txt", 1)
	mem.PutObject("bucket", "new.txt", 1)

	result, err := New(storage.NewWithClient(mem)).Drain(context.Background(), "bucket")
	require.NoError(t, err)

	assertEmpty(t, mem, "bucket")
	assert.False(t, result.VersioningSuspended)
	assert.Zero(t, mem.Calls("PutBucketVersioning"))
	assert.Equal(t, 3, result.Versions)
}

func TestDrainer_Errors(t *testing.T) {
	tests := []struct {
		name         string
		setupMock    func(*testutil.MockS3Client)
		wantErr      bool
		wantCode     hkerrors.ErrorCode
		errContains  string
		wantMissing  bool
		wantVersions int
	}{
		{
			name: "rejected entries fail the drain after both passes",
			setupMock: func(m *testutil.MockS3Client) {
				m.GetBucketVersioningFunc = func(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
					return &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusEnabled}, nil
				}
				m.ListObjectVersionsFunc = func(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
					return testutil.CreateListObjectVersionsOutput([]string{"a", "locked"}, nil, false), nil
				}
				m.DeleteObjectsFunc = func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
					out := &s3.DeleteObjectsOutput{}
					for _, id := range params.Delete.Objects {
						if aws.ToString(id.Key) == "locked" {
							out.Errors = append(out.Errors, types.Error{
								Key:       id.Key,
								VersionId: id.VersionId,
								Code:      aws.String("AccessDenied"),
								Message:   aws.String("Access Denied"),
							})
							continue
						}
						out.Deleted = append(out.Deleted, types.DeletedObject{Key: id.Key, VersionId: id.VersionId})
					}
					return out, nil
				}
			},
			wantErr:      true,
			wantCode:     hkerrors.CodeForbidden,
			errContains:  "delete locked (version v1)",
			wantVersions: 1,
		},
		{
			name: "listing failure stops the drain",
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectVersionsFunc = func(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
					return nil, &smithy.GenericAPIError{Code: "SlowDown", Message: "Please reduce your request rate."}
				}
			},
			wantErr:     true,
			wantCode:    hkerrors.CodeRateLimit,
			errContains: "SlowDown",
		},
		{
			name: "suspend failure stops the drain",
			setupMock: func(m *testutil.MockS3Client) {
				m.GetBucketVersioningFunc = func(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
					return &s3.GetBucketVersioningOutput{Status: types.BucketVersioningStatusEnabled}, nil
				}
				m.PutBucketVersioningFunc = func(ctx context.Context, params *s3.PutBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.PutBucketVersioningOutput, error) {
					return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "Access Denied"}
				}
			},
			wantErr:  true,
			wantCode: hkerrors.CodeForbidden,
		},
		{
			name: "bucket deleted mid-drain counts as drained",
			setupMock: func(m *testutil.MockS3Client) {
				m.ListObjectVersionsFunc = func(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error) {
					return nil, &types.NoSuchBucket{}
				}
			},
			wantMissing: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockS3Client{}
			tt.setupMock(mock)

			result, err := New(storage.NewWithClient(mock)).Drain(context.Background(), "bucket")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMissing, result.BucketMissing)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, hkerrors.CodeOf(err))
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
			assert.Equal(t, tt.wantVersions, result.Versions)
		})
	}
}

func TestDrainer_EmptyBucketName(t *testing.T) {
	_, err := New(storage.NewWithClient(&testutil.MockS3Client{})).Drain(context.Background(), "")
	require.Error(t, err)
	assert.True(t, hkerrors.IsInvalidInput(err))
}
