package skema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/skema/engine"
)

func TestNormalize_Params(t *testing.T) {
	tests := []struct {
		name string
		in   engine.Violation
		want map[string]any
	}{
		{"type", engine.Violation{Keyword: "type", SchemaValue: "string"}, map[string]any{"type": "string"}},
		{"type list", engine.Violation{Keyword: "type", SchemaValue: []any{"string", "null"}}, map[string]any{"type": "string,null"}},
		{"required", engine.Violation{Keyword: "required", Property: "id"}, map[string]any{"missingProperty": "id"}},
		{"additional", engine.Violation{Keyword: "additionalProperties", Property: "x"}, map[string]any{"additionalProperty": "x"}},
		{"enum", engine.Violation{Keyword: "enum", SchemaValue: []any{"a", "b"}}, map[string]any{"allowedValues": []any{"a", "b"}}},
		{"const", engine.Violation{Keyword: "const", SchemaValue: "a"}, map[string]any{"allowedValue": "a"}},
		{"format", engine.Violation{Keyword: "format", SchemaValue: "uuid"}, map[string]any{"format": "uuid"}},
		{"minimum", engine.Violation{Keyword: "minimum", SchemaValue: 3.0}, map[string]any{"limit": 3.0, "comparison": ">="}},
		{"maxLength", engine.Violation{Keyword: "maxLength", SchemaValue: 3.0}, map[string]any{"limit": 3.0}},
		{"false schema", engine.Violation{Keyword: engine.FalseSchema}, map[string]any{}},
		{"custom", engine.Violation{Keyword: "range", SchemaValue: []any{1.0, 2.0}}, map[string]any{"range": []any{1.0, 2.0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in).Params)
		})
	}
}

func TestNormalize_Paths(t *testing.T) {
	got := normalize(engine.Violation{Keyword: "type", KeywordLocation: "/properties/a/type", InstanceLocation: "/a", Message: "expected string"})
	assert.Equal(t, "/a", got.Path)
	assert.Equal(t, "#/properties/a/type", got.SchemaPath)
	assert.Equal(t, "expected string", got.Message)

	root := normalize(engine.Violation{Keyword: "type", KeywordLocation: "/type"})
	assert.Equal(t, "/", root.Path)
}

func TestSentinels(t *testing.T) {
	assert.Equal(t, KeywordEmptySchema, EmptySchema().Keyword)
	assert.Equal(t, KeywordInvalidArgument, InvalidArgument().Keyword)

	e := InvalidSchema(errors.New("bad type"))
	assert.Equal(t, KeywordInvalidSchema, e.Keyword)
	assert.Equal(t, "bad type", e.Message)
	assert.Equal(t, map[string]any{"argument": "schema"}, e.Params)
	assert.Equal(t, "schema is not valid", InvalidSchema(nil).Message)
}

func TestSchemaRef(t *testing.T) {
	assert.True(t, ID("").IsZero())
	assert.True(t, Inline(nil).IsZero())
	var nilMap map[string]any
	assert.True(t, Inline(nilMap).IsZero())
	assert.False(t, Bool(false).IsZero())
	assert.Equal(t, Bool(true), Inline(true))
	assert.Equal(t, "user", ID("user").String())
	assert.Equal(t, "false", Bool(false).String())
	assert.Equal(t, "<inline>", Inline(map[string]any{}).String())
}

type widget struct{}

func TestAssociations(t *testing.T) {
	a := NewAssociations()
	Associate[widget](a, ID("widget"))

	ref, ok := a.Lookup(widget{})
	assert.True(t, ok)
	assert.Equal(t, ID("widget"), ref)

	ref, ok = a.Lookup(&widget{})
	assert.True(t, ok)
	assert.Equal(t, ID("widget"), ref)

	_, ok = a.Lookup(nil)
	assert.False(t, ok)

	a.Set(reflect.TypeFor[*widget](), SchemaRef{})
	_, ok = a.Lookup(widget{})
	assert.False(t, ok)

	var zero *Associations
	_, ok = zero.Lookup(widget{})
	assert.False(t, ok)
}

func TestErrors_Error(t *testing.T) {
	es := Errors{
		{Keyword: "required", Path: "/"},
		{Keyword: "type", Path: "/a"},
		{Keyword: "minimum", Path: "/b"},
		{Keyword: "maxLength", Path: "/c"},
	}
	assert.Equal(t, "required at /; type at /a; minimum at /b; ... (total 4)", es.Error())

	err := &ValidationFailedError{Message: "validation error", Errors: es[:1]}
	assert.Equal(t, "validation error: required at /", err.Error())
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.NotErrorIs(t, err, ErrInvalidArgument)

	got, ok := AsErrors(err)
	assert.True(t, ok)
	assert.Equal(t, es[:1], got)

	_, ok = AsErrors(errors.New("plain"))
	assert.False(t, ok)
}
