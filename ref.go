package skema

// SchemaRef selects the schema for a validation call: a registry key, an
// inline schema body, or a boolean schema. The zero value selects nothing.
type SchemaRef struct {
	kind   refKind
	id     string
	inline any
	val    bool
}

type refKind uint8

const (
	refNone refKind = iota
	refID
	refInline
	refBool
)

// ID refers to a registered schema by key ("$id" or file name).
func ID(key string) SchemaRef {
	if key == "" {
		return SchemaRef{}
	}
	return SchemaRef{kind: refID, id: key}
}

// Inline uses body, a decoded JSON Schema object, directly. Bodies are
// compiled on first use and cached by content.
func Inline(body any) SchemaRef {
	switch b := body.(type) {
	case nil:
		return SchemaRef{}
	case bool:
		return Bool(b)
	case map[string]any:
		if b == nil {
			return SchemaRef{}
		}
	}
	return SchemaRef{kind: refInline, inline: body}
}

// Bool is the boolean schema: true accepts everything, false nothing.
func Bool(b bool) SchemaRef { return SchemaRef{kind: refBool, val: b} }

// IsZero reports whether the reference selects no schema. Boolean schemas,
// including false, are never zero.
func (r SchemaRef) IsZero() bool { return r.kind == refNone }

// String renders the reference for logs.
func (r SchemaRef) String() string {
	switch r.kind {
	case refID:
		return r.id
	case refInline:
		return "<inline>"
	case refBool:
		if r.val {
			return "true"
		}
		return "false"
	default:
		return "<none>"
	}
}
