package engine

import (
	"fmt"

	j "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Extension configures an Engine during New.
type Extension func(*Engine) error

// WithFormat registers a custom string format.
func WithFormat(name string, fn func(any) bool) Extension {
	return func(e *Engine) error { return e.RegisterFormat(name, fn) }
}

// WithKeyword registers a custom keyword.
func WithKeyword(k Keyword) Extension {
	return func(e *Engine) error { return e.RegisterKeyword(k) }
}

// WithExpander registers a compile-time composition keyword.
func WithExpander(x Expander) Extension {
	return func(e *Engine) error { return e.RegisterExpander(x) }
}

// Check validates one data value. A non-nil error is reported as a violation
// of the keyword that produced the check, with the error text as message.
type Check func(v any) error

// Keyword is a custom schema keyword evaluated alongside the standard ones.
type Keyword interface {
	// Name is the schema property the keyword is attached to.
	Name() string
	// Meta is a JSON Schema for the keyword value. Empty accepts anything.
	Meta() string
	// Compile builds the check from the keyword value and the schema object
	// that holds it. A nil Check disables the keyword for that schema.
	Compile(value any, parent map[string]any) (Check, error)
}

// Mutator is implemented by keywords that rewrite data before evaluation,
// such as "transform". Mutate returns the replacement value.
type Mutator interface {
	Mutate(value any, data any) any
}

// Expander rewrites a schema node at compile time. The node holding the
// keyword is replaced by the result of Expand. resolve looks up "$ref"
// targets by registry key.
type Expander interface {
	Keyword() string
	Meta() string
	Expand(arg any, resolve func(ref string) (any, error)) (any, error)
}

// compileKeywordMeta wraps the keyword value schema into a schema for the
// enclosing object, which is what the evaluator applies to extensions.
func compileKeywordMeta(name, meta string) (*jsonschema.Schema, error) {
	if meta == "" {
		meta = "{}"
	}
	doc := fmt.Sprintf(`{"properties": {%s: %s}}`, mustQuote(name), meta)
	s, err := jsonschema.CompileString("skema-meta:///"+name+".json", doc)
	if err != nil {
		return nil, fmt.Errorf("engine: keyword %q meta schema: %w", name, err)
	}
	return s, nil
}

func mustQuote(s string) string {
	b, _ := j.Marshal(s)
	return string(b)
}

type extCompiler struct{ kw Keyword }

func (c extCompiler) Compile(_ jsonschema.CompilerContext, m map[string]interface{}) (jsonschema.ExtSchema, error) {
	v, ok := m[c.kw.Name()]
	if !ok {
		return nil, nil
	}
	parent, _ := fromEvaluatorValue(map[string]any(m)).(map[string]any)
	check, err := c.kw.Compile(fromEvaluatorValue(v), parent)
	if err != nil {
		return nil, fmt.Errorf("keyword %s: %w", c.kw.Name(), err)
	}
	if check == nil {
		return nil, nil
	}
	return extSchema{name: c.kw.Name(), check: check}, nil
}

type extSchema struct {
	name  string
	check Check
}

func (s extSchema) Validate(ctx jsonschema.ValidationContext, v interface{}) error {
	if err := s.check(fromEvaluatorValue(v)); err != nil {
		return ctx.Error(s.name, "%s", err.Error())
	}
	return nil
}

// noopCompiler makes the evaluator meta-validate expander keywords that were
// left in a document without attaching any runtime behavior.
type noopCompiler struct{}

func (noopCompiler) Compile(jsonschema.CompilerContext, map[string]interface{}) (jsonschema.ExtSchema, error) {
	return nil, nil
}
