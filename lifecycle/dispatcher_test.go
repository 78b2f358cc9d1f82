package lifecycle

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-housekeeping/drain"
	hkerrors "github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
	"github.com/input-output-hk/catalyst-forge-housekeeping/transfer"
)

const copyProps = `{"SourceBucket":"src","DestBucket":"dst","Prefix":"artifacts/","Objects":["a.sh","b.sh"]}`

// stubCopier runs the given functions in place of a real transfer.
type stubCopier struct {
	copy   func(ctx context.Context, req transfer.Request) (*transfer.Result, error)
	remove func(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

func (s *stubCopier) Copy(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	return s.copy(ctx, req)
}

func (s *stubCopier) Remove(ctx context.Context, req transfer.Request) (*transfer.Result, error) {
	return s.remove(ctx, req)
}

type stubDrainer struct {
	calls atomic.Int32
}

func (s *stubDrainer) Drain(_ context.Context, _ string) (*drain.Result, error) {
	s.calls.Add(1)
	return &drain.Result{}, nil
}

func newMemoryStore(t *testing.T) (*testutil.MemoryS3, *storage.Client) {
	t.Helper()

	mem := testutil.NewMemoryS3()
	mem.CreateBucket("src")
	mem.CreateBucket("dst")
	mem.PutObject("src", "artifacts/a.sh", 10)
	mem.PutObject("src", "artifacts/b.sh", 20)
	mem.PutObject("src", "unrelated.txt", 5)
	return mem, storage.NewWithClient(mem)
}

func newTestDispatcher(cs *callbackServer, copier ObjectCopier, drainer BucketDrainer, opts ...Option) *Dispatcher {
	opts = append([]Option{
		WithSender(NewReporter(WithHTTPClient(cs.Client()))),
		WithLogStream(func() string { return "2026/10/18/[$LATEST]stream" }),
	}, opts...)
	return NewDispatcher(copier, drainer, opts...)
}

func callbackEvent(cs *callbackServer, requestType RequestType, resourceType, props string) Event {
	ev := event(requestType, resourceType, props)
	ev.ResponseURL = cs.URL + "/callback"
	return ev
}

func TestDispatcher_CopyLifecycle(t *testing.T) {
	mem, store := newMemoryStore(t)
	cs := newCallbackServer(t, http.StatusOK)
	d := newTestDispatcher(cs, transfer.New(store), drain.New(store))
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))
	assert.Equal(t, []string{"artifacts/a.sh", "artifacts/b.sh"}, mem.CurrentKeys("dst"))

	created := cs.received()
	require.Len(t, created, 1)
	assert.Equal(t, StatusSuccess, created[0].outcome.Status)
	assert.Equal(t, "2026/10/18/[$LATEST]stream", created[0].outcome.PhysicalResourceID)
	assert.Equal(t, "See the details in CloudWatch Log Stream: 2026/10/18/[$LATEST]stream", created[0].outcome.Reason)
	assert.Equal(t, float64(2), created[0].outcome.Data["Copied"])

	del := callbackEvent(cs, RequestDelete, "Custom::CopyObjects", copyProps)
	del.PhysicalResourceID = created[0].outcome.PhysicalResourceID
	require.NoError(t, d.Handle(ctx, del))

	assert.Empty(t, mem.CurrentKeys("dst"))
	assert.Equal(t, []string{"artifacts/a.sh", "artifacts/b.sh", "unrelated.txt"}, mem.CurrentKeys("src"))

	records := cs.received()
	require.Len(t, records, 2)
	assert.Equal(t, StatusSuccess, records[1].outcome.Status)
	assert.Equal(t, del.PhysicalResourceID, records[1].outcome.PhysicalResourceID)
	assert.Equal(t, float64(2), records[1].outcome.Data["Removed"])
}

func TestDispatcher_CopyMissingSource(t *testing.T) {
	mem, store := newMemoryStore(t)
	mem.RemoveObject("src", "artifacts/b.sh")
	cs := newCallbackServer(t, http.StatusOK)
	d := newTestDispatcher(cs, transfer.New(store), drain.New(store))

	require.NoError(t, d.Handle(context.Background(), callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].outcome.Status)
	assert.True(t, strings.HasPrefix(records[0].outcome.Reason, "NOT_FOUND: "), records[0].outcome.Reason)
	assert.Equal(t, []string{"artifacts/a.sh"}, mem.CurrentKeys("dst"))
}

func TestDispatcher_Drain(t *testing.T) {
	mem := testutil.NewMemoryS3()
	mem.CreateBucket("data")
	mem.SetVersioning("data", types.BucketVersioningStatusEnabled)
	for _, key := range testutil.GenerateKeys("logs/", 5) {
		mem.PutObject("data", key, 1)
		mem.PutObject("data", key, 2)
	}
	mem.RemoveObject("data", "logs/object-0000")
	store := storage.NewWithClient(mem)

	cs := newCallbackServer(t, http.StatusOK)
	d := newTestDispatcher(cs, transfer.New(store), drain.New(store, drain.WithPageSize(3)))

	ev := callbackEvent(cs, RequestDelete, "Custom::EmptyBucket", `{"BucketName":"data"}`)
	ev.PhysicalResourceID = "data-drainer"
	require.NoError(t, d.Handle(context.Background(), ev))

	versions, markers := mem.VersionCounts("data")
	assert.Zero(t, versions)
	assert.Zero(t, markers)
	assert.Equal(t, types.BucketVersioningStatusSuspended, mem.Versioning("data"))

	records := cs.received()
	require.Len(t, records, 1)
	o := records[0].outcome
	assert.Equal(t, StatusSuccess, o.Status)
	assert.Equal(t, "data-drainer", o.PhysicalResourceID)
	assert.Equal(t, float64(1), o.Data["DeleteMarkers"])
	assert.Equal(t, float64(10), o.Data["Versions"])
	assert.Equal(t, float64(0), o.Data["Objects"])

	// A missing bucket is already drained.
	gone := callbackEvent(cs, RequestDelete, "Custom::EmptyBucket", `{"BucketName":"gone"}`)
	require.NoError(t, d.Handle(context.Background(), gone))
	records = cs.received()
	require.Len(t, records, 2)
	assert.Equal(t, StatusSuccess, records[1].outcome.Status)
}

func TestDispatcher_DrainCreateIsNoop(t *testing.T) {
	for _, requestType := range []RequestType{RequestCreate, RequestUpdate} {
		t.Run(string(requestType), func(t *testing.T) {
			cs := newCallbackServer(t, http.StatusOK)
			drainer := &stubDrainer{}
			d := newTestDispatcher(cs, &stubCopier{}, drainer)

			ev := callbackEvent(cs, requestType, "Custom::EmptyBucket", `{"BucketName":"data"}`)
			require.NoError(t, d.Handle(context.Background(), ev))

			records := cs.received()
			require.Len(t, records, 1)
			assert.Equal(t, StatusSuccess, records[0].outcome.Status)
			assert.Empty(t, records[0].outcome.Data)
			assert.Zero(t, drainer.calls.Load())
		})
	}
}

func TestDispatcher_InvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		requestType  RequestType
		resourceType string
		props        string
		wantReason   string
	}{
		{
			name:         "missing objects",
			requestType:  RequestCreate,
			resourceType: "Custom::CopyObjects",
			props:        `{"SourceBucket":"src","DestBucket":"dst"}`,
			wantReason:   "INVALID_INPUT: ",
		},
		{
			name:         "unknown request type",
			requestType:  "Rollback",
			resourceType: "Custom::CopyObjects",
			props:        copyProps,
			wantReason:   "INVALID_INPUT: ",
		},
		{
			name:         "unroutable properties",
			requestType:  RequestUpdate,
			resourceType: "Custom::Other",
			props:        `{"Name":"x"}`,
			wantReason:   "INVALID_INPUT: ",
		},
		{
			name:         "invalid bucket name",
			requestType:  RequestCreate,
			resourceType: "Custom::CopyObjects",
			props:        `{"SourceBucket":"Not_A_Bucket","DestBucket":"dst","Objects":["a.sh"]}`,
			wantReason:   "INVALID_INPUT: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, store := newMemoryStore(t)
			cs := newCallbackServer(t, http.StatusOK)
			d := newTestDispatcher(cs, transfer.New(store), drain.New(store))

			require.NoError(t, d.Handle(context.Background(), callbackEvent(cs, tt.requestType, tt.resourceType, tt.props)))

			records := cs.received()
			require.Len(t, records, 1)
			assert.Equal(t, StatusFailed, records[0].outcome.Status)
			assert.True(t, strings.HasPrefix(records[0].outcome.Reason, tt.wantReason), records[0].outcome.Reason)
		})
	}
}

func TestDispatcher_InvalidDeleteSucceeds(t *testing.T) {
	tests := []struct {
		name         string
		resourceType string
		props        string
	}{
		{
			name:         "missing objects",
			resourceType: "Custom::CopyObjects",
			props:        `{"SourceBucket":"src","DestBucket":"dst"}`,
		},
		{
			name:         "unroutable properties",
			resourceType: "Custom::Other",
			props:        `{"Name":"x"}`,
		},
		{
			name:         "invalid bucket name",
			resourceType: "Custom::CopyObjects",
			props:        `{"SourceBucket":"src","DestBucket":"Not_A_Bucket","Objects":["a.sh"]}`,
		},
		{
			name:         "missing bucket name",
			resourceType: "Custom::EmptyBucket",
			props:        `{}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, store := newMemoryStore(t)
			cs := newCallbackServer(t, http.StatusOK)
			d := newTestDispatcher(cs, transfer.New(store), drain.New(store))

			ev := callbackEvent(cs, RequestDelete, tt.resourceType, tt.props)
			ev.PhysicalResourceID = "phys-1"
			require.NoError(t, d.Handle(context.Background(), ev))

			records := cs.received()
			require.Len(t, records, 1)
			assert.Equal(t, StatusSuccess, records[0].outcome.Status)
			assert.Equal(t, "phys-1", records[0].outcome.PhysicalResourceID)
			assert.Zero(t, mem.Calls("DeleteObject"))
			assert.Zero(t, mem.Calls("DeleteObjects"))
		})
	}
}

func TestDispatcher_DeleteStorageFailureIsReported(t *testing.T) {
	cs := newCallbackServer(t, http.StatusOK)
	copier := &stubCopier{
		remove: func(context.Context, transfer.Request) (*transfer.Result, error) {
			return &transfer.Result{}, hkerrors.NewObjectError("delete", "dst", "artifacts/a.sh", hkerrors.ErrAccessDenied)
		},
	}
	d := newTestDispatcher(cs, copier, &stubDrainer{})

	require.NoError(t, d.Handle(context.Background(), callbackEvent(cs, RequestDelete, "Custom::CopyObjects", copyProps)))

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].outcome.Status)
	assert.True(t, strings.HasPrefix(records[0].outcome.Reason, "FORBIDDEN: "), records[0].outcome.Reason)
}

func TestDispatcher_Panic(t *testing.T) {
	cs := newCallbackServer(t, http.StatusOK)
	copier := &stubCopier{
		copy: func(context.Context, transfer.Request) (*transfer.Result, error) {
			panic("boom")
		},
	}
	d := newTestDispatcher(cs, copier, &stubDrainer{})

	require.NoError(t, d.Handle(context.Background(), callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].outcome.Status)
	assert.Equal(t, "INTERNAL_ERROR: internal error: boom", records[0].outcome.Reason)
}

func TestDispatcher_DeadlineGuard(t *testing.T) {
	cs := newCallbackServer(t, http.StatusOK)

	var cancelled atomic.Bool
	copier := &stubCopier{
		copy: func(ctx context.Context, _ transfer.Request) (*transfer.Result, error) {
			// Keeps running past the deadline and then reports success.
			time.Sleep(300 * time.Millisecond)
			cancelled.Store(ctx.Err() != nil)
			return &transfer.Result{Processed: []string{"artifacts/a.sh"}}, nil
		},
	}
	d := newTestDispatcher(cs, copier, &stubDrainer{}, WithTimeoutMargin(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, d.Handle(ctx, callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, StatusFailed, records[0].outcome.Status)
	assert.Equal(t, "TIMEOUT: operation timed out", records[0].outcome.Reason)
	assert.Less(t, records[0].at.Sub(start), 300*time.Millisecond)
	assert.True(t, cancelled.Load())
}

func TestDispatcher_DeadlineGuardCancelsOperation(t *testing.T) {
	cs := newCallbackServer(t, http.StatusOK)
	copier := &stubCopier{
		copy: func(ctx context.Context, _ transfer.Request) (*transfer.Result, error) {
			<-ctx.Done()
			return &transfer.Result{}, ctx.Err()
		},
	}
	d := newTestDispatcher(cs, copier, &stubDrainer{}, WithTimeoutMargin(20*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Handle(ctx, callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, "TIMEOUT: operation timed out", records[0].outcome.Reason)
}

func TestDispatcher_FinishesBeforeDeadline(t *testing.T) {
	_, store := newMemoryStore(t)
	cs := newCallbackServer(t, http.StatusOK)
	d := newTestDispatcher(cs, transfer.New(store), drain.New(store), WithTimeoutMargin(50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Handle(ctx, callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps)))
	time.Sleep(200 * time.Millisecond)

	records := cs.received()
	require.Len(t, records, 1)
	assert.Equal(t, StatusSuccess, records[0].outcome.Status)
}

func TestDispatcher_DeliveryFailure(t *testing.T) {
	_, store := newMemoryStore(t)
	cs := newCallbackServer(t, http.StatusForbidden)
	d := newTestDispatcher(cs, transfer.New(store), drain.New(store))

	err := d.Handle(context.Background(), callbackEvent(cs, RequestCreate, "Custom::CopyObjects", copyProps))
	require.Error(t, err)
	assert.Len(t, cs.received(), 1)
}

func TestDispatcher_MissingResponseURL(t *testing.T) {
	d := NewDispatcher(&stubCopier{}, &stubDrainer{})

	ev := event(RequestCreate, "Custom::CopyObjects", copyProps)
	ev.ResponseURL = ""

	err := d.Handle(context.Background(), ev)
	require.Error(t, err)
	assert.True(t, hkerrors.IsInvalidInput(err))
}

func TestDispatcher_PhysicalID(t *testing.T) {
	tests := []struct {
		name      string
		existing  string
		logStream string
		want      string
	}{
		{name: "echoes existing id", existing: "phys-1", logStream: "stream", want: "phys-1"},
		{name: "log stream on create", logStream: "stream", want: "stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(&stubCopier{}, &stubDrainer{}, WithLogStream(func() string { return tt.logStream }))
			ev := event(RequestCreate, "Custom::CopyObjects", copyProps)
			ev.PhysicalResourceID = tt.existing
			assert.Equal(t, tt.want, d.physicalID(ev))
		})
	}

	t.Run("generated without a log stream", func(t *testing.T) {
		d := NewDispatcher(&stubCopier{}, &stubDrainer{}, WithLogStream(func() string { return "" }))
		id := d.physicalID(event(RequestCreate, "Custom::CopyObjects", copyProps))
		assert.True(t, strings.HasPrefix(id, "housekeeper-"), id)
	})
}
