package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"github.com/input-output-hk/catalyst-forge-housekeeping/drain"
	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
	"github.com/input-output-hk/catalyst-forge-housekeeping/transfer"
)

// DefaultTimeoutMargin is how long before the invocation deadline the guard
// reports a timeout.
const DefaultTimeoutMargin = 500 * time.Millisecond

// ObjectCopier copies and removes the objects of a transfer.
type ObjectCopier interface {
	Copy(ctx context.Context, req transfer.Request) (*transfer.Result, error)
	Remove(ctx context.Context, req transfer.Request) (*transfer.Result, error)
}

// BucketDrainer empties a bucket.
type BucketDrainer interface {
	Drain(ctx context.Context, bucket string) (*drain.Result, error)
}

// OutcomeSender delivers an outcome to a callback URL.
type OutcomeSender interface {
	Send(ctx context.Context, url string, o Outcome) error
}

// Dispatcher routes events to the copy and drain operations and reports
// their outcome.
type Dispatcher struct {
	copier        ObjectCopier
	drainer       BucketDrainer
	sender        OutcomeSender
	routes        Routes
	timeoutMargin time.Duration
	logStream     func() string
	logger        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSender replaces the default Reporter.
func WithSender(sender OutcomeSender) Option {
	return func(d *Dispatcher) {
		d.sender = sender
	}
}

// WithRoutes sets the resource type routing.
func WithRoutes(routes Routes) Option {
	return func(d *Dispatcher) {
		d.routes = routes
	}
}

// WithTimeoutMargin sets how long before the deadline the guard fires.
func WithTimeoutMargin(margin time.Duration) Option {
	return func(d *Dispatcher) {
		if margin >= 0 {
			d.timeoutMargin = margin
		}
	}
}

// WithLogStream sets the source of the log stream name used in reasons and
// as the fallback physical resource id.
func WithLogStream(logStream func() string) Option {
	return func(d *Dispatcher) {
		d.logStream = logStream
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(copier ObjectCopier, drainer BucketDrainer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		copier:        copier,
		drainer:       drainer,
		routes:        DefaultRoutes(),
		timeoutMargin: DefaultTimeoutMargin,
		logStream:     func() string { return lambdacontext.LogStreamName },
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sender == nil {
		d.sender = NewReporter(WithReporterLogger(d.logger))
	}
	return d
}

// Handle runs the operation for ev and reports exactly one outcome to
// ev.ResponseURL. It returns once the outcome has been delivered.
//
// If ctx has a deadline, a guard reports FAILED shortly before it and
// cancels the operation. Panics in the operation are reported as FAILED.
// The returned error is the delivery error, if any; operation failures are
// reported to CloudFormation, not returned.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	logger := d.logger.With(
		"request_id", ev.RequestID,
		"stack_id", ev.StackID,
		"logical_resource_id", ev.LogicalResourceID,
		"request_type", ev.RequestType,
		"resource_type", ev.ResourceType,
	)

	if ev.ResponseURL == "" {
		logger.ErrorContext(ctx, "event has no response URL, cannot report an outcome")
		return errors.NewError("handle", errors.ErrInvalidInput).WithMessage("ResponseURL is required")
	}

	physicalID := d.physicalID(ev)
	slot := newOutcomeSlot()

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var guard *time.Timer
	if deadline, ok := ctx.Deadline(); ok {
		wait := max(time.Until(deadline)-d.timeoutMargin, 0)
		guard = time.AfterFunc(wait, func() {
			o := failedOutcome(ev, physicalID, errors.CodeTimeout, errors.ErrTimeout)
			if !slot.claim(o) {
				return
			}
			logger.ErrorContext(ctx, "operation did not finish before the deadline", "budget", wait)
			cancel()
			slot.complete(d.sender.Send(ctx, ev.ResponseURL, o))
		})
	}

	logger.InfoContext(ctx, "handling event", "physical_resource_id", physicalID)
	outcome := d.run(opCtx, logger, ev, physicalID)
	if guard != nil {
		guard.Stop()
	}

	if slot.claim(outcome) {
		slot.complete(d.sender.Send(ctx, ev.ResponseURL, outcome))
	} else {
		logger.WarnContext(ctx, "outcome already reported, dropping late result", "status", outcome.Status)
	}

	reported, err := slot.wait()
	if err != nil {
		logger.ErrorContext(ctx, "outcome delivery failed", "status", reported.Status, "error", err)
		return err
	}
	return nil
}

// run executes the operation and converts its result, error or panic into
// an outcome.
func (d *Dispatcher) run(ctx context.Context, logger *slog.Logger, ev Event, physicalID string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "operation panicked", "panic", r, "stack", string(debug.Stack()))
			outcome = failedOutcome(ev, physicalID, errors.CodeInternal, fmt.Errorf("internal error: %v", r))
		}
	}()

	req, err := ParseRequest(ev, d.routes)
	if err != nil {
		if ev.RequestType == RequestDelete {
			return d.skipInvalidDelete(ctx, logger, ev, physicalID, err)
		}
		logger.ErrorContext(ctx, "invalid event", "error", err)
		return failedOutcome(ev, physicalID, errors.CodeOf(err), err)
	}

	data, err := d.execute(ctx, logger, ev.RequestType, req)
	if err != nil {
		if ev.RequestType == RequestDelete && errors.IsInvalidInput(err) {
			return d.skipInvalidDelete(ctx, logger, ev, physicalID, err)
		}
		logger.ErrorContext(ctx, "operation failed", "error", err)
		return failedOutcome(ev, physicalID, errors.CodeOf(err), err)
	}

	logger.InfoContext(ctx, "operation succeeded", "data", data)
	return successOutcome(ev, physicalID, d.logStream(), data)
}

// skipInvalidDelete reports SUCCESS for a Delete whose properties could never
// have produced a resource. Failing it would leave a rolled back Create stuck
// in ROLLBACK_FAILED.
func (d *Dispatcher) skipInvalidDelete(
	ctx context.Context,
	logger *slog.Logger,
	ev Event,
	physicalID string,
	err error,
) Outcome {
	logger.WarnContext(ctx, "delete with invalid properties, nothing to clean up", "error", err)
	return successOutcome(ev, physicalID, d.logStream(), nil)
}

func (d *Dispatcher) execute(
	ctx context.Context,
	logger *slog.Logger,
	requestType RequestType,
	req Request,
) (map[string]any, error) {
	switch r := req.(type) {
	case CopyRequest:
		if requestType == RequestDelete {
			res, err := d.copier.Remove(ctx, r.Request)
			if err != nil {
				return nil, err
			}
			return map[string]any{"Removed": len(res.Processed)}, nil
		}

		res, err := d.copier.Copy(ctx, r.Request)
		if err != nil {
			return nil, err
		}
		return map[string]any{"Copied": len(res.Processed)}, nil

	case DrainRequest:
		if requestType != RequestDelete {
			logger.InfoContext(ctx, "bucket is drained on delete only", "bucket", r.Bucket)
			return nil, nil
		}

		res, err := d.drainer.Drain(ctx, r.Bucket)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"DeleteMarkers": res.DeleteMarkers,
			"Versions":      res.Versions,
			"Objects":       res.Objects,
		}, nil
	}

	return nil, errors.NewError("dispatch", errors.ErrInvalidInput).
		WithMessage(fmt.Sprintf("unsupported request %T", req))
}

// physicalID echoes the id CloudFormation already knows so that an Update
// never looks like a replacement.
func (d *Dispatcher) physicalID(ev Event) string {
	if ev.PhysicalResourceID != "" {
		return ev.PhysicalResourceID
	}
	if stream := d.logStream(); stream != "" {
		return stream
	}
	return "housekeeper-" + uuid.NewString()
}
