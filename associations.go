package skema

import (
	"reflect"
	"sync"
)

// Associations maps Go types to the schema their values validate against.
// Pointer types share the association of their element type. It is safe for
// concurrent use.
type Associations struct {
	mu sync.RWMutex
	m  map[reflect.Type]SchemaRef
}

// NewAssociations returns an empty table.
func NewAssociations() *Associations {
	return &Associations{m: make(map[reflect.Type]SchemaRef)}
}

// Set associates ref with the type t. A zero ref removes the association.
func (a *Associations) Set(t reflect.Type, ref SchemaRef) {
	t = baseType(t)
	if t == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.m == nil {
		a.m = make(map[reflect.Type]SchemaRef)
	}
	if ref.IsZero() {
		delete(a.m, t)
		return
	}
	a.m[t] = ref
}

// Lookup returns the schema associated with the dynamic type of v.
func (a *Associations) Lookup(v any) (SchemaRef, bool) {
	if a == nil || v == nil {
		return SchemaRef{}, false
	}
	t := baseType(reflect.TypeOf(v))
	a.mu.RLock()
	defer a.mu.RUnlock()
	ref, ok := a.m[t]
	return ref, ok
}

// Associate attaches ref to T.
func Associate[T any](a *Associations, ref SchemaRef) {
	a.Set(reflect.TypeFor[T](), ref)
}

func baseType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
