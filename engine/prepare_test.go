package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skema/engine"
)

var mutatingOpts = engine.Options{
	AllErrors:        true,
	RemoveAdditional: true,
	UseDefaults:      true,
	CoerceTypes:      true,
}

func TestEvaluate_CoercesNumericString(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"type":       "object",
		"properties": map[string]any{"n": map[string]any{"type": "number"}},
	})
	data := map[string]any{"n": "42"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 42.0, data["n"])
}

func TestEvaluate_CoercionTable(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	cases := []struct {
		typ  string
		in   any
		want any
	}{
		{"string", 1.5, "1.5"},
		{"string", true, "true"},
		{"string", nil, ""},
		{"integer", "7", 7.0},
		{"number", false, 0.0},
		{"boolean", "true", true},
		{"boolean", 0.0, false},
		{"null", "", nil},
	}
	for _, tc := range cases {
		s := compile(t, e, map[string]any{
			"properties": map[string]any{"v": map[string]any{"type": tc.typ}},
		})
		data := map[string]any{"v": tc.in}
		got, err := e.Evaluate(s, data)
		require.NoError(t, err)
		assert.Empty(t, got, "%s <- %v", tc.typ, tc.in)
		assert.Equal(t, tc.want, data["v"], "%s <- %v", tc.typ, tc.in)
	}
}

func TestEvaluate_UncoercibleStaysTypeError(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	})
	data := map[string]any{"n": "abc"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "type", got[0].Keyword)
	assert.Equal(t, "abc", data["n"])
}

func TestEvaluate_DefaultsAndRemoveAdditional(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"role": map[string]any{"type": "string", "default": "member"},
			"tags": map[string]any{"type": "array", "default": []any{}},
		},
		"additionalProperties": false,
	})
	data := map[string]any{"name": "ann", "extra": true}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, map[string]any{"name": "ann", "role": "member", "tags": []any{}}, data)
}

func TestEvaluate_AdditionalSchemaKeepsProperties(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"properties":           map[string]any{"a": map[string]any{}},
		"additionalProperties": map[string]any{"type": "number"},
	})
	data := map[string]any{"a": 1.0, "b": "2"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, data)
}

func TestEvaluate_FailureLeavesDataUntouched(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"type":     "object",
		"required": []any{"id"},
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"role": map[string]any{"default": "member"},
			"n":    map[string]any{"type": "number"},
		},
	})
	data := map[string]any{"n": "5", "extra": 1.0}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, map[string]any{"n": "5", "extra": 1.0}, data)
}

func TestEvaluate_FollowsRefsAndAllOf(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"definitions": map[string]any{
			"count": map[string]any{"type": "integer"},
		},
		"allOf": []any{
			map[string]any{"properties": map[string]any{"n": map[string]any{"type": "integer", "default": 0.0}}},
		},
		"properties": map[string]any{"m": map[string]any{"$ref": "#/definitions/count"}},
	})
	data := map[string]any{"m": "3"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3.0, data["m"])
	assert.Equal(t, 0.0, data["n"])
}

func TestEvaluate_StripsUndeclaredWithoutAdditionalProperties(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"properties": map[string]any{"a": map[string]any{}},
	})
	data := map[string]any{"a": 1.0, "b": 2.0}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, map[string]any{"a": 1.0}, data)
}

func TestEvaluate_RemoveAdditionalKeeps(t *testing.T) {
	tests := []struct {
		name   string
		schema map[string]any
	}{
		{"no declared properties", map[string]any{"type": "object"}},
		{"additionalProperties true", map[string]any{
			"properties":           map[string]any{"a": map[string]any{}},
			"additionalProperties": true,
		}},
		{"matching pattern", map[string]any{
			"properties":        map[string]any{"a": map[string]any{}},
			"patternProperties": map[string]any{"^b": map[string]any{}},
		}},
		{"declared by sibling allOf branch", map[string]any{
			"allOf": []any{
				map[string]any{"properties": map[string]any{"a": map[string]any{}}},
				map[string]any{"properties": map[string]any{"b": map[string]any{}}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, mutatingOpts)
			s := compile(t, e, tt.schema)
			data := map[string]any{"a": 1.0, "b": 2.0}

			got, err := e.Evaluate(s, data)
			require.NoError(t, err)
			assert.Empty(t, got)
			assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, data)
		})
	}
}

func TestEvaluate_RemoveAdditionalDisabled(t *testing.T) {
	opts := mutatingOpts
	opts.RemoveAdditional = false
	e := newEngine(t, opts)
	s := compile(t, e, map[string]any{
		"properties": map[string]any{"a": map[string]any{}},
	})
	data := map[string]any{"a": 1.0, "b": 2.0}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, data)
}

func TestEvaluate_ArrayItems(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "integer"},
	})
	data := []any{"1", 2.0, "3"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, data)
}

func TestEvaluate_PointerToAnyRoot(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{"type": "integer"})
	var data any = "12"

	got, err := e.Evaluate(s, &data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 12.0, data)
}

type account struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

func TestEvaluate_TypedValueWriteBack(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "minLength": 1.0},
			"role": map[string]any{"type": "string", "default": "member"},
		},
	})

	acc := &account{Name: "ann"}
	got, err := e.Evaluate(s, acc)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "member", acc.Role)

	bad := &account{}
	got, err = e.Evaluate(s, bad)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "minLength", got[0].Keyword)
	assert.Equal(t, "", bad.Role)
}

func TestEvaluate_TypedMapWriteBack(t *testing.T) {
	e := newEngine(t, mutatingOpts)
	s := compile(t, e, map[string]any{
		"properties":           map[string]any{"keep": map[string]any{"type": "string"}},
		"additionalProperties": false,
	})
	data := map[string]string{"keep": "x", "drop": "y"}

	got, err := e.Evaluate(s, data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, map[string]string{"keep": "x"}, data)
}
