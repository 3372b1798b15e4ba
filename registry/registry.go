// Package registry stores validated schema documents under their keys and
// compiles them together once loading is complete.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/reoring/skema/engine"
	"github.com/reoring/skema/schema"
)

// ErrSealed is returned when a document is registered after Seal.
var ErrSealed = errors.New("registry: sealed")

// SchemaChecker meta-validates a schema body.
type SchemaChecker interface {
	CheckSchema(body any) error
}

// SetCompiler compiles a set of documents that may reference each other.
type SetCompiler interface {
	CompileSet(docs map[string]any) (map[string]*engine.Schema, map[string]error)
}

// DuplicatePolicy decides which document wins when two differing documents
// share a key.
type DuplicatePolicy int

const (
	// Overwrite keeps the document registered last.
	Overwrite DuplicatePolicy = iota
	// KeepFirst keeps the document registered first.
	KeepFirst
)

func (p DuplicatePolicy) String() string {
	if p == KeepFirst {
		return "keepFirst"
	}
	return "overwrite"
}

// ParseDuplicatePolicy maps a configuration value to a policy. Empty means
// Overwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "keepfirst", "keep_first", "keep-first":
		return KeepFirst, nil
	default:
		return Overwrite, fmt.Errorf("registry: unknown duplicate policy %q", s)
	}
}

// Entry is a registered document and, after Seal, its compiled schema.
type Entry struct {
	Document schema.Document
	Schema   *engine.Schema
}

// Stats counts registry outcomes.
type Stats struct {
	// Registered is the number of entries currently held.
	Registered int
	// Rejected counts documents that failed meta-validation.
	Rejected int
	// Replaced counts key collisions between differing documents.
	Replaced int
	// Dropped counts entries removed by Seal because they failed to compile.
	Dropped int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for rejected and added documents.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithDuplicatePolicy sets the collision policy.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(r *Registry) { r.policy = p }
}

// Registry maps keys to schema documents. It is filled during startup, sealed
// once, and read concurrently afterwards.
type Registry struct {
	checker SchemaChecker
	log     zerolog.Logger
	policy  DuplicatePolicy

	mu      sync.Mutex
	entries map[string]Entry
	stats   Stats

	sealed atomic.Pointer[map[string]Entry]
}

// New creates an empty registry. checker meta-validates every document.
func New(checker SchemaChecker, opts ...Option) *Registry {
	r := &Registry{
		checker: checker,
		log:     zerolog.Nop(),
		entries: make(map[string]Entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register meta-validates doc and stores it under doc.Key(). It reports
// whether the document is now the registered one for its key. The entry is
// compiled, and logged as added, by Seal.
func (r *Registry) Register(doc schema.Document) bool {
	if r.sealed.Load() != nil {
		r.log.Warn().Err(ErrSealed).Str("key", doc.Key()).Msg("Schema was not added")
		return false
	}
	key := doc.Key()
	if key == "" {
		r.log.Warn().Msg("Schema has neither an id nor a file name")
		r.mu.Lock()
		r.stats.Rejected++
		r.mu.Unlock()
		return false
	}
	if err := r.checker.CheckSchema(doc.Body); err != nil {
		r.log.Warn().Str("file", doc.FileName).Err(err).Msgf("Schema is not valid %s", doc.FileName)
		r.mu.Lock()
		r.stats.Rejected++
		r.mu.Unlock()
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[key]; ok {
		if reflect.DeepEqual(prev.Document.Body, doc.Body) {
			return true
		}
		r.stats.Replaced++
		ev := r.log.Warn().
			Str("key", key).
			Str("previous", prev.Document.FileName).
			Str("file", doc.FileName).
			Str("policy", r.policy.String())
		if r.policy == KeepFirst {
			ev.Msg("Duplicate schema ignored")
			return false
		}
		ev.Msg("Duplicate schema replaces earlier one")
	}
	r.entries[key] = Entry{Document: doc}
	return true
}

// Seal compiles every entry with c and freezes the registry. Entries that do
// not compile, such as those with unresolvable references, are dropped.
func (r *Registry) Seal(c SetCompiler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() != nil {
		return ErrSealed
	}

	docs := make(map[string]any, len(r.entries))
	for k, e := range r.entries {
		docs[k] = e.Document.Body
	}
	compiled, errs := c.CompileSet(docs)

	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	final := make(map[string]Entry, len(compiled))
	for _, k := range keys {
		e := r.entries[k]
		if err, failed := errs[k]; failed {
			r.stats.Dropped++
			r.log.Warn().Str("key", k).Str("file", e.Document.FileName).Err(err).Msg("Schema failed to compile")
			continue
		}
		s, ok := compiled[k]
		if !ok {
			r.stats.Dropped++
			continue
		}
		e.Schema = s
		final[k] = e
		r.log.Trace().Str("file", e.Document.FileName).Msgf("Added schema %s", k)
	}
	r.entries = final
	r.sealed.Store(&final)
	return nil
}

// Sealed reports whether Seal has run.
func (r *Registry) Sealed() bool { return r.sealed.Load() != nil }

func (r *Registry) view() map[string]Entry {
	if m := r.sealed.Load(); m != nil {
		return *m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Entry, len(r.entries))
	for k, v := range r.entries {
		out[k] = v
	}
	return out
}

// Lookup returns the entry for key.
func (r *Registry) Lookup(key string) (Entry, bool) {
	e, ok := r.view()[key]
	return e, ok
}

// Resolve returns the document body for key. It lets the engine resolve
// references from ad-hoc schemas.
func (r *Registry) Resolve(key string) (any, bool) {
	e, ok := r.Lookup(key)
	if !ok {
		return nil, false
	}
	return e.Document.Body, true
}

// Keys returns the registered keys in lexical order.
func (r *Registry) Keys() []string {
	m := r.view()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered entries.
func (r *Registry) Len() int { return len(r.view()) }

// Stats returns a snapshot of the counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Registered = len(r.entries)
	return s
}
