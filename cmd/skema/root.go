package main

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/reoring/skema"
	"github.com/reoring/skema/config"
	"github.com/reoring/skema/internal/logging"
)

// cli carries the global flags and the collaborators commands share.
type cli struct {
	cfgFile string
	fs      afero.Fs
}

func newRootCmd() *cobra.Command {
	c := &cli{fs: afero.NewOsFs()}
	root := &cobra.Command{
		Use:   "skema",
		Short: "JSON Schema registry and validator",
		Long: `skema loads every JSON Schema under the configured directories and
validates data against them.

  skema lint             # report accepted and rejected schemas
  skema lint --watch     # re-lint on every change
  skema list             # list registered schemas
  skema validate -s user data.json
  skema serve            # HTTP API`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "skema.yaml", "config file path")

	root.AddCommand(
		c.lintCmd(),
		c.listCmd(),
		c.validateCmd(),
		c.serveCmd(),
	)
	return root
}

// config loads the config file, falling back to environment variables when
// it does not exist.
func (c *cli) config() (*config.Config, error) {
	return config.LoadWithFallback(c.cfgFile)
}

func (c *cli) logger(cfg *config.Config, w io.Writer) zerolog.Logger {
	return logging.New(cfg.Logging, w)
}

func (c *cli) start(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...skema.Option) (*skema.Validator, error) {
	opts = append([]skema.Option{skema.WithFs(c.fs), skema.WithLogger(log)}, opts...)
	return skema.Start(ctx, cfg, opts...)
}
