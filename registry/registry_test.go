package registry_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skema/engine"
	"github.com/reoring/skema/registry"
	"github.com/reoring/skema/schema"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(engine.Options{AllErrors: true})
	require.NoError(t, err)
	return e
}

func TestRegister_ValidAndInvalid(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.TraceLevel)
	r := registry.New(newEngine(t), registry.WithLogger(log))

	ok := r.Register(schema.New(map[string]any{"$id": "user", "type": "object"}, "user.json"))
	assert.True(t, ok)
	assert.NotContains(t, buf.String(), "Added schema")

	buf.Reset()
	ok = r.Register(schema.New(map[string]any{"type": 12.0}, "broken.json"))
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "Schema is not valid broken.json")
	assert.Contains(t, buf.String(), `"level":"warn"`)

	_, found := r.Lookup("broken.json")
	assert.False(t, found)
	assert.Equal(t, []string{"user"}, r.Keys())
	assert.Equal(t, registry.Stats{Registered: 1, Rejected: 1}, r.Stats())
}

func TestSeal_LogsAddedOnlyForCompiledEntries(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	e := newEngine(t)
	r := registry.New(e, registry.WithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))
	require.True(t, r.Register(schema.New(map[string]any{"type": "string"}, "name.json")))
	require.True(t, r.Register(schema.New(map[string]any{"$ref": "ghost.json"}, "orphan.json")))

	require.NoError(t, r.Seal(e))
	assert.Contains(t, buf.String(), "Added schema name.json")
	assert.NotContains(t, buf.String(), "Added schema orphan.json")
}

func TestSeal_ReferencesIntoOtherDocuments(t *testing.T) {
	e := newEngine(t)
	r := registry.New(e)

	require.True(t, r.Register(schema.New(map[string]any{
		"definitions": map[string]any{
			"pos": map[string]any{"type": "integer", "minimum": 1.0},
		},
	}, "defs.json")))
	require.True(t, r.Register(schema.New(map[string]any{
		"$id":        "a",
		"properties": map[string]any{"x": map[string]any{"$ref": "defs.json#/definitions/pos"}},
	}, "a.json")))

	require.NoError(t, r.Seal(e))
	assert.Equal(t, []string{"a", "defs.json"}, r.Keys())
	assert.Equal(t, registry.Stats{Registered: 2}, r.Stats())

	entry, ok := r.Lookup("a")
	require.True(t, ok)
	got, err := e.Evaluate(entry.Schema, map[string]any{"x": 0.0})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/x", got[0].InstanceLocation)
}

func TestSeal_KeysWithReservedCharacters(t *testing.T) {
	e := newEngine(t)
	r := registry.New(e)

	for _, name := range []string{"my schema.json", "100%.json", "v1#beta.json"} {
		require.True(t, r.Register(schema.New(map[string]any{"type": "string"}, name)), name)
	}
	require.True(t, r.Register(schema.New(map[string]any{
		"$id":   "list",
		"items": map[string]any{"$ref": "my%20schema.json"},
	}, "list.json")))

	require.NoError(t, r.Seal(e))
	assert.Equal(t, []string{"100%.json", "list", "my schema.json", "v1#beta.json"}, r.Keys())
	assert.Zero(t, r.Stats().Dropped)

	entry, ok := r.Lookup("list")
	require.True(t, ok)
	got, err := e.Evaluate(entry.Schema, []any{"a", 1.0})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/1", got[0].InstanceLocation)
}

func TestRegister_KeyFallsBackToFileName(t *testing.T) {
	r := registry.New(newEngine(t))
	require.True(t, r.Register(schema.New(map[string]any{"type": "string"}, "name.json")))

	e, ok := r.Lookup("name.json")
	require.True(t, ok)
	assert.Equal(t, "name.json", e.Document.FileName)
}

func TestRegister_DuplicatePolicies(t *testing.T) {
	first := schema.New(map[string]any{"$id": "dup", "type": "string"}, "a.json")
	second := schema.New(map[string]any{"$id": "dup", "type": "number"}, "b.json")

	over := registry.New(newEngine(t))
	assert.True(t, over.Register(first))
	assert.True(t, over.Register(second))
	e, _ := over.Lookup("dup")
	assert.Equal(t, "b.json", e.Document.FileName)
	assert.Equal(t, 1, over.Stats().Replaced)

	keep := registry.New(newEngine(t), registry.WithDuplicatePolicy(registry.KeepFirst))
	assert.True(t, keep.Register(first))
	assert.False(t, keep.Register(second))
	e, _ = keep.Lookup("dup")
	assert.Equal(t, "a.json", e.Document.FileName)
}

func TestRegister_IdenticalDuplicateIsNoop(t *testing.T) {
	r := registry.New(newEngine(t))
	doc := schema.New(map[string]any{"$id": "same", "type": "string"}, "a.json")
	assert.True(t, r.Register(doc))
	assert.True(t, r.Register(schema.New(map[string]any{"$id": "same", "type": "string"}, "b.json")))
	assert.Equal(t, 0, r.Stats().Replaced)
	assert.Equal(t, 1, r.Len())
}

func TestParseDuplicatePolicy(t *testing.T) {
	p, err := registry.ParseDuplicatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, registry.Overwrite, p)

	p, err = registry.ParseDuplicatePolicy("keepFirst")
	require.NoError(t, err)
	assert.Equal(t, registry.KeepFirst, p)

	_, err = registry.ParseDuplicatePolicy("merge")
	assert.Error(t, err)
}

func TestSeal_CompilesAndDropsUnresolvable(t *testing.T) {
	var buf bytes.Buffer
	e := newEngine(t)
	r := registry.New(e, registry.WithLogger(zerolog.New(&buf)))

	require.True(t, r.Register(schema.New(map[string]any{"type": "string"}, "name.json")))
	require.True(t, r.Register(schema.New(map[string]any{
		"$id":        "person",
		"properties": map[string]any{"name": map[string]any{"$ref": "name.json"}},
	}, "person.json")))
	require.True(t, r.Register(schema.New(map[string]any{"$ref": "ghost.json"}, "orphan.json")))

	require.NoError(t, r.Seal(e))
	assert.True(t, r.Sealed())
	assert.Equal(t, []string{"name.json", "person"}, r.Keys())
	assert.Equal(t, 1, r.Stats().Dropped)
	assert.Contains(t, buf.String(), "orphan.json")

	entry, ok := r.Lookup("person")
	require.True(t, ok)
	require.NotNil(t, entry.Schema)
	got, err := e.Evaluate(entry.Schema, map[string]any{"name": 3.0})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/name", got[0].InstanceLocation)

	assert.False(t, r.Register(schema.New(true, "late.json")))
	assert.ErrorIs(t, r.Seal(e), registry.ErrSealed)
}

func TestResolve_ReturnsBody(t *testing.T) {
	r := registry.New(newEngine(t))
	body := map[string]any{"type": "string"}
	require.True(t, r.Register(schema.New(body, "s.json")))

	got, ok := r.Resolve("s.json")
	require.True(t, ok)
	assert.Equal(t, body, got)

	_, ok = r.Resolve("missing")
	assert.False(t, ok)
}
