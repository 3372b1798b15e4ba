// Package engine wraps a JSON Schema evaluator (santhosh-tekuri/jsonschema/v5)
// with the behaviors the validator needs on top of it: type coercion, default
// insertion and removal of undeclared properties, pluggable formats, keywords
// and compile-time schema composition, and a flat, deterministic violation list.
package engine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrFrozen is returned when an extension is registered after the engine has
// compiled its first schema.
var ErrFrozen = errors.New("engine: extensions cannot be registered after first compilation")

// Options mirrors the validation.* configuration keys.
type Options struct {
	// AllErrors collects every violation instead of stopping at the first one.
	AllErrors bool
	// RemoveAdditional strips properties the object schema does not declare,
	// unless additionalProperties admits them.
	RemoveAdditional bool
	// UseDefaults fills missing properties with the schema "default" value.
	UseDefaults bool
	// CoerceTypes converts scalars to the declared type before checking.
	CoerceTypes bool
	// Draft selects the dialect used when a document has no "$schema".
	// Empty means draft7.
	Draft string
	// CacheSize bounds the number of compiled inline schemas kept around.
	// Zero or negative disables the cache.
	CacheSize int
}

// Resolver looks up schema bodies by registry key. The registry implements it.
type Resolver interface {
	Resolve(key string) (any, bool)
}

// Engine compiles and evaluates schemas. An Engine is configured once and is
// safe for concurrent use afterwards.
type Engine struct {
	opts  Options
	draft *jsonschema.Draft

	mu        sync.RWMutex
	formats   map[string]func(any) bool
	keywords  map[string]Keyword
	metas     map[string]*jsonschema.Schema
	expanders map[string]Expander
	frozen    atomic.Bool

	resolver Resolver
	cache    *lru.Cache[string, *Schema]
}

// New constructs an Engine and applies the given extensions in order.
func New(opts Options, exts ...Extension) (*Engine, error) {
	draft, err := ParseDraft(opts.Draft)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		opts:      opts,
		draft:     draft,
		formats:   make(map[string]func(any) bool),
		keywords:  make(map[string]Keyword),
		metas:     make(map[string]*jsonschema.Schema),
		expanders: make(map[string]Expander),
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[string, *Schema](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("engine: schema cache: %w", err)
		}
		e.cache = c
	}
	for _, ext := range exts {
		if ext == nil {
			continue
		}
		if err := ext(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Options returns the options the engine was built with.
func (e *Engine) Options() Options { return e.opts }

// Bind attaches the resolver used to satisfy "$ref"s of inline schemas. It is
// called once during startup, after the registry has been sealed.
func (e *Engine) Bind(r Resolver) { e.resolver = r }

// ParseDraft maps a configuration value to an evaluator dialect.
func ParseDraft(name string) (*jsonschema.Draft, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "draft7", "draft-07", "7":
		return jsonschema.Draft7, nil
	case "draft4", "draft-04", "4":
		return jsonschema.Draft4, nil
	case "draft6", "draft-06", "6":
		return jsonschema.Draft6, nil
	case "2019-09", "draft2019", "draft2019-09":
		return jsonschema.Draft2019, nil
	case "2020-12", "draft2020", "draft2020-12":
		return jsonschema.Draft2020, nil
	default:
		return nil, fmt.Errorf("engine: unknown draft %q", name)
	}
}

// RegisterFormat adds a named string format. fn receives every value the
// format keyword applies to and must return true for values it does not handle.
func (e *Engine) RegisterFormat(name string, fn func(any) bool) error {
	if name == "" || fn == nil {
		return errors.New("engine: format needs a name and a matcher")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen.Load() {
		return ErrFrozen
	}
	e.formats[name] = fn
	return nil
}

// RegisterKeyword adds a custom keyword.
func (e *Engine) RegisterKeyword(k Keyword) error {
	if k == nil || k.Name() == "" {
		return errors.New("engine: keyword needs a name")
	}
	meta, err := compileKeywordMeta(k.Name(), k.Meta())
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen.Load() {
		return ErrFrozen
	}
	e.keywords[k.Name()] = k
	e.metas[k.Name()] = meta
	return nil
}

// RegisterExpander adds a compile-time composition keyword such as "$merge".
func (e *Engine) RegisterExpander(x Expander) error {
	if x == nil || x.Keyword() == "" {
		return errors.New("engine: expander needs a keyword")
	}
	meta, err := compileKeywordMeta(x.Keyword(), x.Meta())
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen.Load() {
		return ErrFrozen
	}
	e.expanders[x.Keyword()] = x
	e.metas[x.Keyword()] = meta
	return nil
}

// newCompiler returns an evaluator compiler configured with the engine's
// draft, formats and keywords. The first call freezes the extension set.
func (e *Engine) newCompiler(load func(string) (io.ReadCloser, error)) *jsonschema.Compiler {
	e.frozen.Store(true)

	c := jsonschema.NewCompiler()
	c.Draft = e.draft
	c.AssertFormat = true
	c.LoadURL = load
	if c.Formats == nil {
		c.Formats = make(map[string]func(interface{}) bool)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for name, fn := range e.formats {
		c.Formats[name] = fn
	}
	for name, k := range e.keywords {
		c.RegisterExtension(name, e.metas[name], extCompiler{kw: k})
	}
	for name := range e.expanders {
		c.RegisterExtension(name, e.metas[name], noopCompiler{})
	}
	return c
}

// isKeyword reports whether name is a custom keyword or expander.
func (e *Engine) isKeyword(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, kw := e.keywords[name]
	_, ex := e.expanders[name]
	return kw || ex
}

// mutators returns the registered keywords that rewrite data.
func (e *Engine) mutators() map[string]Mutator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out map[string]Mutator
	for name, k := range e.keywords {
		if m, ok := k.(Mutator); ok {
			if out == nil {
				out = make(map[string]Mutator)
			}
			out[name] = m
		}
	}
	return out
}

func (e *Engine) mutating() bool {
	return e.opts.RemoveAdditional || e.opts.UseDefaults || e.opts.CoerceTypes || len(e.mutators()) > 0
}
