package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BaseURL prefixes registry keys that are not absolute URLs, so relative
// "$ref"s between registered documents resolve to other registry keys.
const BaseURL = "skema:///"

const (
	inlineURL = BaseURL + "__inline__.json"
	maxExpand = 32
)

// ErrUnresolved is wrapped by compile errors caused by a "$ref" that no
// document satisfies.
var ErrUnresolved = errors.New("engine: unresolved schema reference")

// Schema is a compiled schema handle. It is immutable and safe for
// concurrent evaluation.
type Schema struct {
	url      string
	body     any
	compiled *jsonschema.Schema
	set      *resourceSet
}

// URL is the resource URL the schema was compiled under.
func (s *Schema) URL() string { return s.url }

// Body is the schema body after "$merge"/"$patch" expansion.
func (s *Schema) Body() any { return s.body }

// URLFor maps a registry key to the resource URL used by the evaluator. Path
// segments of relative keys are escaped, so keys may contain spaces, "%" or "#".
func URLFor(key string) string {
	if u, err := url.Parse(key); err == nil && u.Scheme != "" {
		return key
	}
	segs := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return BaseURL + strings.Join(segs, "/")
}

// keyCandidates lists the registry keys a resource URL may stand for.
func keyCandidates(u string) []string {
	u, _, _ = strings.Cut(u, "#")
	out := []string{u}
	if rest, ok := strings.CutPrefix(u, BaseURL); ok {
		out = append(out, unescapeKey(rest))
	}
	if base := path.Base(u); base != "" && base != "." && base != "/" {
		out = append(out, unescapeKey(base))
	}
	return out
}

func unescapeKey(s string) string {
	if k, err := url.PathUnescape(s); err == nil {
		return k
	}
	return s
}

// metaURLs are the meta-schema URLs the evaluator ships with.
var metaURLs = map[*jsonschema.Draft]string{
	jsonschema.Draft4:    "http://json-schema.org/draft-04/schema",
	jsonschema.Draft6:    "http://json-schema.org/draft-06/schema",
	jsonschema.Draft7:    "http://json-schema.org/draft-07/schema",
	jsonschema.Draft2019: "https://json-schema.org/draft/2019-09/schema",
	jsonschema.Draft2020: "https://json-schema.org/draft/2020-12/schema",
}

// CheckSchema validates a schema body against the meta-schema named by its
// "$schema" (the configured draft when absent) and against the meta-schemas
// of registered keywords. References are not followed; Seal and CompileSet
// resolve them.
func (e *Engine) CheckSchema(body any) error {
	meta, err := e.metaSchema(body)
	if err != nil {
		return err
	}
	view := toEvaluatorValue(deepCopy(body))
	if err := meta.Validate(view); err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.metas))
	for name := range e.metas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.metas[name].Validate(view); err != nil {
			return fmt.Errorf("engine: keyword %q: %w", name, err)
		}
	}
	return nil
}

func (e *Engine) metaSchema(body any) (*jsonschema.Schema, error) {
	u := metaURLs[e.draft]
	if m, ok := body.(map[string]any); ok {
		if s, ok := m["$schema"].(string); ok && s != "" {
			u = s
		}
	}
	c := jsonschema.NewCompiler()
	c.LoadURL = func(u string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("engine: unknown meta-schema %s", u)
	}
	return c.Compile(u)
}

// CompileSet compiles documents that may reference each other by key with a
// single compiler. Documents that fail are reported in the error map.
func (e *Engine) CompileSet(docs map[string]any) (map[string]*Schema, map[string]error) {
	set := newResourceSet(e, mapResolver(docs))
	out := make(map[string]*Schema, len(docs))
	errs := make(map[string]error)

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := set.add(URLFor(key), docs[key]); err != nil {
			errs[key] = err
		}
	}
	c := e.newCompiler(set.load)
	for _, key := range keys {
		if _, failed := errs[key]; failed {
			continue
		}
		if err := set.addTo(c, URLFor(key)); err != nil {
			errs[key] = err
		}
	}
	for _, key := range keys {
		if _, failed := errs[key]; failed {
			continue
		}
		u := URLFor(key)
		compiled, err := c.Compile(u)
		if err != nil {
			errs[key] = err
			continue
		}
		out[key] = &Schema{url: u, body: set.body(u), compiled: compiled, set: set}
	}
	return out, errs
}

// Compile compiles a standalone schema body. "$ref"s to other documents are
// resolved through the bound Resolver. Results are cached by content.
func (e *Engine) Compile(body any) (*Schema, error) {
	raw, err := j.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("engine: encode schema: %w", err)
	}
	cacheKey := string(raw)
	if e.cache != nil {
		if s, ok := e.cache.Get(cacheKey); ok {
			return s, nil
		}
	}

	set := newResourceSet(e, e.resolver)
	if err := set.add(inlineURL, body); err != nil {
		return nil, err
	}
	c := e.newCompiler(set.load)
	if err := set.addTo(c, inlineURL); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(inlineURL)
	if err != nil {
		return nil, err
	}
	s := &Schema{url: inlineURL, body: set.body(inlineURL), compiled: compiled, set: set}
	if e.cache != nil {
		e.cache.Add(cacheKey, s)
	}
	return s, nil
}

type mapResolver map[string]any

func (m mapResolver) Resolve(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// resourceSet holds the expanded bodies of every resource a compiler has
// seen, keyed by resource URL. It is written only while compiling.
type resourceSet struct {
	engine   *Engine
	resolver Resolver
	bodies   map[string]any
}

func newResourceSet(e *Engine, r Resolver) *resourceSet {
	return &resourceSet{engine: e, resolver: r, bodies: make(map[string]any)}
}

func (s *resourceSet) body(u string) any { return s.bodies[u] }

// add expands body and records it under u.
func (s *resourceSet) add(u string, body any) error {
	expanded, err := s.engine.expand(body, s.lookupRaw, 0)
	if err != nil {
		return err
	}
	s.bodies[u] = expanded
	return nil
}

func (s *resourceSet) addTo(c *jsonschema.Compiler, u string) error {
	raw, err := j.Marshal(s.bodies[u])
	if err != nil {
		return fmt.Errorf("engine: encode schema: %w", err)
	}
	return c.AddResource(u, bytes.NewReader(raw))
}

// lookupRaw resolves a registry key (or resource URL) to an unexpanded body.
func (s *resourceSet) lookupRaw(ref string) (any, error) {
	if s.resolver != nil {
		for _, k := range keyCandidates(ref) {
			if body, ok := s.resolver.Resolve(k); ok {
				return body, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolved, ref)
}

// load satisfies evaluator requests for resources that were not added up front.
func (s *resourceSet) load(u string) (io.ReadCloser, error) {
	body, err := s.lookupRaw(u)
	if err != nil {
		return nil, err
	}
	if err := s.add(u, body); err != nil {
		return nil, err
	}
	raw, err := j.Marshal(s.bodies[u])
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// resolveNode finds the schema node a "$ref" points to, relative to the
// resource at base. It returns the node and the URL of its resource.
func (s *resourceSet) resolveNode(base, ref string) (any, string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return nil, "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return nil, "", false
	}
	abs := b.ResolveReference(r)
	frag := abs.Fragment
	abs.Fragment = ""
	docURL := abs.String()

	body, ok := s.bodies[docURL]
	if !ok {
		return nil, "", false
	}
	node, ok := pointerGet(body, frag)
	return node, docURL, ok
}

// expand replaces expander keywords throughout body. The input is not
// modified.
func (e *Engine) expand(body any, resolve func(string) (any, error), depth int) (any, error) {
	if depth > maxExpand {
		return nil, errors.New("engine: schema expansion too deep")
	}
	e.mu.RLock()
	n := len(e.expanders)
	e.mu.RUnlock()
	if n == 0 {
		return body, nil
	}
	return e.expandNode(deepCopy(body), resolve, depth)
}

func (e *Engine) expandNode(node any, resolve func(string) (any, error), depth int) (any, error) {
	if depth > maxExpand {
		return nil, errors.New("engine: schema expansion too deep")
	}
	switch t := node.(type) {
	case map[string]any:
		if len(t) == 1 {
			for k, arg := range t {
				e.mu.RLock()
				x, ok := e.expanders[k]
				e.mu.RUnlock()
				if !ok {
					break
				}
				out, err := x.Expand(arg, func(ref string) (any, error) {
					raw, err := resolve(ref)
					if err != nil {
						return nil, err
					}
					return e.expand(raw, resolve, depth+1)
				})
				if err != nil {
					return nil, fmt.Errorf("engine: %s: %w", k, err)
				}
				return e.expandNode(out, resolve, depth+1)
			}
		}
		for k, v := range t {
			out, err := e.expandNode(v, resolve, depth)
			if err != nil {
				return nil, err
			}
			t[k] = out
		}
		return t, nil
	case []any:
		for i, v := range t {
			out, err := e.expandNode(v, resolve, depth)
			if err != nil {
				return nil, err
			}
			t[i] = out
		}
		return t, nil
	default:
		return node, nil
	}
}
