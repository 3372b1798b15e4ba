package skema

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/reoring/skema/config"
	"github.com/reoring/skema/engine"
	"github.com/reoring/skema/engine/formats"
	"github.com/reoring/skema/engine/keywords"
	"github.com/reoring/skema/loader"
	"github.com/reoring/skema/metrics"
	"github.com/reoring/skema/registry"
	"github.com/reoring/skema/schema"
)

var _ Observer = (*metrics.Collector)(nil)

// Option configures Start.
type Option func(*startOptions)

type startOptions struct {
	log          zerolog.Logger
	fs           afero.Fs
	associations *Associations
	metrics      *metrics.Collector
	extensions   []engine.Extension
	documents    []schema.Document
}

// WithLogger sets the logger used while loading schemas. The default
// discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *startOptions) { o.log = l }
}

// WithFs sets the filesystem the schema directories are read from.
func WithFs(fs afero.Fs) Option {
	return func(o *startOptions) { o.fs = fs }
}

// WithAssociations sets the type association table used when no schema is
// given explicitly.
func WithAssociations(a *Associations) Option {
	return func(o *startOptions) { o.associations = a }
}

// WithMetrics records validation outcomes and registry counts on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *startOptions) { o.metrics = c }
}

// WithExtensions adds formats, keywords or expanders after the built-in ones.
func WithExtensions(exts ...engine.Extension) Option {
	return func(o *startOptions) { o.extensions = append(o.extensions, exts...) }
}

// WithDocuments registers documents after the scanned files, so they win key
// collisions under the overwrite policy.
func WithDocuments(docs ...schema.Document) Option {
	return func(o *startOptions) { o.documents = append(o.documents, docs...) }
}

// Start builds a ready Validator: it loads every schema file under the
// configured directories, registers the valid ones and compiles them. Invalid
// or unreadable files are logged and skipped. A nil cfg uses config.Default.
//
// Start returns an error only for a broken configuration or a cancelled ctx.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Validator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	o := startOptions{log: zerolog.Nop(), fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.associations == nil {
		o.associations = NewAssociations()
	}

	exts := slices.Concat(formats.Extensions(), keywords.Extensions(), o.extensions)
	eng, err := engine.New(cfg.Validation.EngineOptions(), exts...)
	if err != nil {
		return nil, fmt.Errorf("skema: engine: %w", err)
	}
	policy, err := registry.ParseDuplicatePolicy(cfg.Validation.OnDuplicate)
	if err != nil {
		return nil, fmt.Errorf("skema: %w", err)
	}
	reg := registry.New(eng,
		registry.WithLogger(o.log),
		registry.WithDuplicatePolicy(policy),
	)

	ld := loader.New(loader.WithFs(o.fs), loader.WithLogger(o.log))
	for doc := range ld.Scan(cfg.System.Dirs.Schemas) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("skema: loading schemas: %w", err)
		}
		reg.Register(doc)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("skema: loading schemas: %w", err)
	}
	for _, doc := range o.documents {
		reg.Register(doc)
	}

	if err := reg.Seal(eng); err != nil {
		return nil, fmt.Errorf("skema: %w", err)
	}
	eng.Bind(reg)

	stats := reg.Stats()
	o.log.Debug().
		Int("registered", stats.Registered).
		Int("rejected", stats.Rejected).
		Int("dropped", stats.Dropped).
		Msg("Schemas loaded")

	v := &Validator{engine: eng, registry: reg, associations: o.associations}
	if o.metrics != nil {
		o.metrics.RecordRegistry(stats)
		v.observer = o.metrics
	}
	return v, nil
}
