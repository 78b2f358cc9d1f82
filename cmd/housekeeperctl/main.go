// Command housekeeperctl runs the housekeeping operations directly, without a
// CloudFormation callback. It is meant for cleaning up after stuck stacks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-housekeeping/config"
	"github.com/input-output-hk/catalyst-forge-housekeeping/storage"
)

type globalOptions struct {
	configFile string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "housekeeperctl",
		Short:         "Run S3 housekeeping operations",
		Long:          "housekeeperctl copies seed objects between buckets, removes them again, and drains versioned buckets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "override configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every storage call")

	root.AddCommand(newCopyCmd(opts), newRemoveCmd(opts), newDrainCmd(opts))
	return root
}

// load reads the configuration, honouring --config over HOUSEKEEPER_CONFIG.
func (o *globalOptions) load() (*config.Config, error) {
	return config.LoadWith(func(key string) (string, bool) {
		if key == config.EnvConfigFile && o.configFile != "" {
			return o.configFile, true
		}
		return os.LookupEnv(key)
	})
}

func (o *globalOptions) logger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newStore builds the storage client and logger for a subcommand.
func (o *globalOptions) newStore(ctx context.Context, cmd *cobra.Command) (*config.Config, *storage.Client, *slog.Logger, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := o.logger(cfg, cmd.ErrOrStderr())

	store, err := storage.New(ctx, append(cfg.AWS.StorageOptions(), storage.WithLogger(logger))...)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.DebugContext(ctx, "storage client ready", "region", store.Region())
	return cfg, store, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
