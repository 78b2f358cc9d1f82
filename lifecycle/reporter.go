package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/input-output-hk/catalyst-forge-housekeeping/errors"
)

// DefaultCallbackTimeout bounds a single outcome delivery.
const DefaultCallbackTimeout = 10 * time.Second

// Reporter delivers outcomes to the pre-signed callback URL.
type Reporter struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithHTTPClient sets the HTTP client used for delivery.
func WithHTTPClient(client *http.Client) ReporterOption {
	return func(r *Reporter) {
		r.client = client
	}
}

// WithCallbackTimeout bounds each delivery.
func WithCallbackTimeout(timeout time.Duration) ReporterOption {
	return func(r *Reporter) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithReporterLogger sets the logger used for delivery results.
func WithReporterLogger(logger *slog.Logger) ReporterOption {
	return func(r *Reporter) {
		r.logger = logger
	}
}

// NewReporter creates a Reporter.
func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		client:  http.DefaultClient,
		timeout: DefaultCallbackTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Send PUTs the outcome to url. The request is not tied to the cancellation
// of ctx so that an outcome can still be delivered after the operation was
// cancelled. No Content-Type is sent because the pre-signed URL does not sign
// one. Any non-2xx response is an error.
func (r *Reporter) Send(ctx context.Context, url string, o Outcome) error {
	body, err := json.Marshal(o)
	if err != nil {
		return errors.NewError("report outcome", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	err = requests.
		URL(url).
		Client(r.client).
		Put().
		BodyBytes(body).
		Fetch(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to report outcome",
			"status", o.Status,
			"error", err)
		return errors.NewError("report outcome", errors.FromAWS(err))
	}

	r.logger.InfoContext(ctx, "outcome reported",
		"status", o.Status,
		"physical_resource_id", o.PhysicalResourceID,
		"duration", time.Since(start))
	return nil
}
