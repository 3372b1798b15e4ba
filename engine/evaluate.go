package engine

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	j "github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Evaluate checks data against s and returns the violations, or none when
// data is valid. A non-nil error means evaluation could not run at all.
//
// When the engine rewrites data (defaults, coercion, removal of undeclared
// properties, mutating keywords) the rewrite is first applied to a private
// copy. Only when that copy is valid is the same rewrite applied to the
// caller's value: maps and slices in place, *any by replacing the pointee,
// and pointers to typed values through a JSON round trip. A typed value that
// cannot hold the rewritten data, such as a string field coerced to a number,
// is left unchanged and the data still counts as valid.
func (e *Engine) Evaluate(s *Schema, data any) ([]Violation, error) {
	if s == nil || s.compiled == nil {
		return nil, errors.New("engine: nil schema")
	}
	in, err := bind(data)
	if err != nil {
		return nil, err
	}

	mutate := e.mutating()
	work := in.work
	if mutate {
		work = e.prepare(s, work)
	}
	view := toEvaluatorValue(work)

	err = s.compiled.Validate(view)
	if err == nil {
		if mutate {
			e.commit(s, in, view)
		}
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("engine: evaluate: %w", err)
	}
	return e.violations(s, ve, view), nil
}

// instance is the caller's value together with the private working tree
// evaluated in its place.
type instance struct {
	orig   any
	ptr    *any
	direct bool
	work   any
}

func bind(data any) (instance, error) {
	if p, ok := data.(*any); ok && p != nil {
		in, err := bind(*p)
		in.ptr = p
		return in, err
	}
	if isJSONTree(data) {
		return instance{orig: data, direct: true, work: deepCopy(data)}, nil
	}
	tree, err := roundTrip(data)
	if err != nil {
		return instance{}, err
	}
	return instance{orig: data, work: tree}, nil
}

// roundTrip converts an arbitrary Go value into its JSON data model.
func roundTrip(v any) (any, error) {
	raw, err := j.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("engine: encode data: %w", err)
	}
	dec := j.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("engine: decode data: %w", err)
	}
	return out, nil
}

func (e *Engine) commit(s *Schema, in instance, view any) {
	switch {
	case in.direct && in.ptr != nil:
		*in.ptr = e.prepare(s, *in.ptr)
	case in.direct:
		e.prepare(s, in.orig)
	default:
		_ = writeBack(in.orig, view)
	}
}

// writeBack decodes the rewritten tree into a typed target. Structs receive
// the decoded fields on top of their current state; maps are replaced so
// removed properties disappear. Non-pointer values other than maps cannot be
// updated and are left alone. The tree is decoded into a fresh value first,
// so a failed decode leaves target untouched.
func writeBack(target any, tree any) error {
	rv := reflect.ValueOf(target)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		fresh := reflect.New(rv.Elem().Type())
		if rv.Elem().Kind() != reflect.Map {
			fresh.Elem().Set(rv.Elem())
		}
		if err := decodeInto(tree, fresh.Interface()); err != nil {
			return err
		}
		rv.Elem().Set(fresh.Elem())
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		fresh := reflect.New(rv.Type())
		if err := decodeInto(tree, fresh.Interface()); err != nil {
			return err
		}
		rv.Clear()
		it := fresh.Elem().MapRange()
		for it.Next() {
			rv.SetMapIndex(it.Key(), it.Value())
		}
	}
	return nil
}

func decodeInto(tree any, dst any) error {
	raw, err := j.Marshal(tree)
	if err != nil {
		return fmt.Errorf("engine: encode data: %w", err)
	}
	if err := j.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("engine: write back: %w", err)
	}
	return nil
}
