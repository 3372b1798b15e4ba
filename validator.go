package skema

import (
	"errors"
	"reflect"
	"time"

	"github.com/reoring/skema/engine"
	"github.com/reoring/skema/registry"
)

// Outcomes reported to an Observer.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
)

// Observer receives the outcome and duration of every validation call.
// Outcome is OutcomeValid, OutcomeInvalid or a sentinel keyword.
type Observer interface {
	ObserveValidation(outcome string, d time.Duration)
}

// Result is the outcome of a non-throwing validation call. Errors is empty
// exactly when OK is true.
type Result struct {
	OK     bool
	Errors Errors
}

// Validator resolves schemas and validates data against them. It is built by
// Start and safe for concurrent use.
//
// On success, validation may rewrite the data in place (defaults, type
// coercion, removal of undeclared properties) depending on configuration.
// Data is never rewritten when validation fails.
type Validator struct {
	engine       *engine.Engine
	registry     *registry.Registry
	associations *Associations
	observer     Observer
}

// Registry returns the sealed schema registry.
func (v *Validator) Registry() *registry.Registry { return v.registry }

// Associations returns the type association table.
func (v *Validator) Associations() *Associations { return v.associations }

// TryValidate validates data against the schema associated with its type.
func (v *Validator) TryValidate(data any) Result {
	start := time.Now()
	var res Result
	if ref, ok := v.associations.Lookup(data); ok {
		res = v.run(ref, data)
	} else {
		res = fail(EmptySchema())
	}
	v.observe(res, start)
	return res
}

// TryValidateWith validates data against ref. When ref is zero or names an
// unknown key, the schema associated with the type of data is used instead.
func (v *Validator) TryValidateWith(ref SchemaRef, data any) Result {
	start := time.Now()
	var res Result
	switch {
	case isNil(data):
		res = fail(InvalidArgument())
	default:
		if !v.known(ref) {
			if assoc, ok := v.associations.Lookup(data); ok {
				ref = assoc
			}
		}
		res = v.run(ref, data)
	}
	v.observe(res, start)
	return res
}

// Validate is TryValidate returning an error: *InvalidArgumentError when no
// schema is associated, *ValidationFailedError on violations.
func (v *Validator) Validate(data any) error {
	return asError(v.TryValidate(data))
}

// ValidateWith is TryValidateWith returning an error: *InvalidArgumentError
// for absent data, an unresolvable or malformed schema, *ValidationFailedError
// on violations.
func (v *Validator) ValidateWith(ref SchemaRef, data any) error {
	return asError(v.TryValidateWith(ref, data))
}

func (v *Validator) known(ref SchemaRef) bool {
	switch ref.kind {
	case refNone:
		return false
	case refID:
		_, ok := v.registry.Lookup(ref.id)
		return ok
	default:
		return true
	}
}

func (v *Validator) run(ref SchemaRef, data any) Result {
	s, bad := v.resolve(ref)
	if bad != nil {
		return fail(*bad)
	}
	violations, err := v.engine.Evaluate(s, data)
	if err != nil {
		return fail(sentinel(KeywordInvalidArgument, err.Error()))
	}
	if len(violations) == 0 {
		return Result{OK: true}
	}
	return Result{Errors: normalizeAll(violations)}
}

func (v *Validator) resolve(ref SchemaRef) (*engine.Schema, *ValidationError) {
	switch ref.kind {
	case refID:
		if e, ok := v.registry.Lookup(ref.id); ok && e.Schema != nil {
			return e.Schema, nil
		}
	case refBool:
		if s, err := v.engine.Compile(ref.val); err == nil {
			return s, nil
		}
	case refInline:
		s, err := v.engine.Compile(ref.inline)
		if err != nil {
			e := InvalidSchema(err)
			return nil, &e
		}
		return s, nil
	}
	e := EmptySchema()
	return nil, &e
}

func (v *Validator) observe(res Result, start time.Time) {
	if v.observer == nil {
		return
	}
	outcome := OutcomeValid
	if !res.OK {
		outcome = OutcomeInvalid
		switch k := res.Errors[0].Keyword; k {
		case KeywordEmptySchema, KeywordInvalidArgument, KeywordInvalidSchema:
			outcome = k
		}
	}
	v.observer.ObserveValidation(outcome, time.Since(start))
}

func fail(e ValidationError) Result {
	return Result{Errors: Errors{e}}
}

func asError(res Result) error {
	if res.OK {
		return nil
	}
	first := res.Errors[0]
	switch first.Keyword {
	case KeywordInvalidArgument:
		if first.Message != InvalidArgument().Message {
			return &InvalidArgumentError{Message: "data cannot be validated", Cause: errors.New(first.Message)}
		}
		return &InvalidArgumentError{Message: "data is null or undefined"}
	case KeywordEmptySchema:
		return &InvalidArgumentError{Message: "objects schema is not set"}
	case KeywordInvalidSchema:
		return &InvalidArgumentError{Message: "schema is not valid", Cause: errors.New(first.Message)}
	default:
		return &ValidationFailedError{Message: "validation error", Errors: res.Errors}
	}
}

// isNil reports whether data is absent: a nil interface, a nil pointer, map,
// slice or interface value, or an *any holding one of those.
func isNil(data any) bool {
	if data == nil {
		return true
	}
	if p, ok := data.(*any); ok && p != nil {
		return isNil(*p)
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
