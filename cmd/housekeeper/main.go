// Command housekeeper is the Lambda function backing the S3 housekeeping
// custom resources. It copies seed objects between buckets and drains buckets
// before CloudFormation deletes them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/input-output-hk/catalyst-forge-housekeeping/config"
	"github.com/input-output-hk/catalyst-forge-housekeeping/drain"
	"github.com/input-output-hk/catalyst-forge-housekeeping/lifecycle"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
	"github.com/input-output-hk/catalyst-forge-housekeeping/transfer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	dispatcher, err := newDispatcher(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	lambda.Start(dispatcher.Handle)
}

func newDispatcher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*lifecycle.Dispatcher, error) {
	store, err := storage.New(ctx, append(cfg.AWS.StorageOptions(), storage.WithLogger(logger))...)
	if err != nil {
		return nil, err
	}
	logger.Info("storage client ready", "region", store.Region(), "endpoint", cfg.AWS.Endpoint)

	reporter := lifecycle.NewReporter(
		lifecycle.WithCallbackTimeout(cfg.Lifecycle.CallbackTimeout),
		lifecycle.WithReporterLogger(logger),
	)

	return lifecycle.NewDispatcher(
		transfer.New(store, transfer.WithLogger(logger)),
		drain.New(store, drain.WithPageSize(cfg.Drain.PageSize), drain.WithLogger(logger)),
		lifecycle.WithSender(reporter),
		lifecycle.WithRoutes(lifecycle.NewRoutes(cfg.Lifecycle.CopyResourceTypes, cfg.Lifecycle.DrainResourceTypes)),
		lifecycle.WithTimeoutMargin(cfg.Lifecycle.TimeoutMargin),
		lifecycle.WithLogger(logger),
	), nil
}
