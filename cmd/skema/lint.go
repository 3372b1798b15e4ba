package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/reoring/skema/config"
	"github.com/reoring/skema/loader"
)

func (c *cli) lintCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check every schema file under the configured directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			log := c.logger(cfg, cmd.ErrOrStderr())
			if watch {
				return c.watch(cmd.Context(), cfg, log, cmd.OutOrStdout())
			}
			return c.lint(cmd.Context(), cfg, log, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-lint whenever a schema file changes")
	return cmd
}

// warnCounter counts log events at warn level or above.
type warnCounter struct{ n atomic.Int64 }

func (h *warnCounter) Run(_ *zerolog.Event, level zerolog.Level, _ string) {
	if level >= zerolog.WarnLevel && level < zerolog.NoLevel {
		h.n.Add(1)
	}
}

// lint loads the schemas once and fails if anything was reported.
func (c *cli) lint(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	counter := &warnCounter{}
	log = log.Level(min(log.GetLevel(), zerolog.WarnLevel)).Hook(counter)

	v, err := c.start(ctx, cfg, log)
	if err != nil {
		return err
	}
	s := v.Registry().Stats()
	fmt.Fprintf(out, "%d registered, %d rejected, %d failed to compile, %d warnings\n",
		s.Registered, s.Rejected, s.Dropped, counter.n.Load())
	if n := counter.n.Load(); n > 0 {
		return fmt.Errorf("lint: %d warning(s)", n)
	}
	return nil
}

// watch lints, then lints again on every change below the schema
// directories until ctx is done.
func (c *cli) watch(ctx context.Context, cfg *config.Config, log zerolog.Logger, out io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range cfg.System.Dirs.Schemas {
		if err := addTree(c.fs, watcher, dir); err != nil {
			return err
		}
	}
	report := func() {
		if err := c.lint(ctx, cfg, log, out); err != nil {
			fmt.Fprintln(out, err)
		}
	}
	report()
	log.Info().Strs("dirs", cfg.System.Dirs.Schemas).Msg("watching schema directories for changes")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := c.fs.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(c.fs, watcher, event.Name); err != nil {
						log.Error().Err(err).Msg("file watcher error")
					}
					report()
					continue
				}
			}
			if !isSchemaFile(event.Name) {
				continue
			}
			log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema file changed")
			report()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

// dirWatcher is the part of fsnotify.Watcher addTree needs.
type dirWatcher interface {
	Add(name string) error
}

// addTree watches dir and every directory below it. Missing directories are
// skipped, as the loader skips them.
func addTree(fsys afero.Fs, w dirWatcher, dir string) error {
	err := afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	return nil
}

func isSchemaFile(name string) bool {
	base := filepath.Base(name)
	for _, p := range loader.DefaultPatterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
	}
	return false
}
