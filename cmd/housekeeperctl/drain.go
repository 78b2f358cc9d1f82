package main

import (
	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-housekeeping/drain"
)

func newDrainCmd(opts *globalOptions) *cobra.Command {
	var pageSize int32
	cmd := &cobra.Command{
		Use:   "drain BUCKET",
		Short: "Delete every version, delete marker and object in a bucket",
		Long: "drain suspends versioning on the bucket and deletes all of its contents. " +
			"The bucket itself is left in place. A bucket that does not exist is reported as drained.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, store, logger, err := opts.newStore(ctx, cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("page-size") {
				pageSize = cfg.Drain.PageSize
			}

			result, err := drain.New(store, drain.WithPageSize(pageSize), drain.WithLogger(logger)).Drain(ctx, args[0])
			if result != nil {
				if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().Int32Var(&pageSize, "page-size", drain.DefaultPageSize, "entries listed and deleted per request")
	return cmd
}
