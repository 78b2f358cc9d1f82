package main

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-housekeeping/transfer"
)

type transferFlags struct {
	sourceBucket string
	destBucket   string
	prefix       string
}

func (f *transferFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sourceBucket, "source-bucket", "", "bucket holding the objects")
	cmd.Flags().StringVar(&f.destBucket, "dest-bucket", "", "bucket receiving the objects")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "key prefix shared by every object")
	_ = cmd.MarkFlagRequired("source-bucket")
	_ = cmd.MarkFlagRequired("dest-bucket")
}

func (f *transferFlags) request(objects []string) transfer.Request {
	return transfer.Request{
		SourceBucket: f.sourceBucket,
		DestBucket:   f.destBucket,
		Prefix:       f.prefix,
		Objects:      objects,
	}
}

func newCopyCmd(opts *globalOptions) *cobra.Command {
	flags := &transferFlags{}
	cmd := &cobra.Command{
		Use:   "copy OBJECT...",
		Short: "Copy objects from the source bucket to the destination bucket",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, logger, err := opts.newStore(ctx, cmd)
			if err != nil {
				return err
			}

			result, err := transfer.New(store, transfer.WithLogger(logger)).Copy(ctx, flags.request(args))
			if result != nil {
				if perr := printJSON(cmd.OutOrStdout(), map[string]any{"Copied": result.Processed}); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	flags := &transferFlags{}
	cmd := &cobra.Command{
		Use:   "remove OBJECT...",
		Short: "Remove previously copied objects from the destination bucket",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, logger, err := opts.newStore(ctx, cmd)
			if err != nil {
				return err
			}

			result, err := transfer.New(store, transfer.WithLogger(logger)).Remove(ctx, flags.request(args))
			if result != nil {
				if perr := printJSON(cmd.OutOrStdout(), map[string]any{"Removed": result.Processed}); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
