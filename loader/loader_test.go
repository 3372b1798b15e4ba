package loader_test

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skema/loader"
	"github.com/reoring/skema/schema"
)

func memFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func collect(l *loader.Loader, dirs ...string) []schema.Document {
	var out []schema.Document
	for doc := range l.Scan(dirs) {
		out = append(out, doc)
	}
	return out
}

func TestScan_RecursiveLexicalOrder(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/schemas/b.json":        `{"$id": "b", "type": "string"}`,
		"/schemas/a.json":        `{"type": "number"}`,
		"/schemas/nested/c.yaml": "type: object\nrequired: [id]\nmaxProperties: 3\n",
		"/schemas/readme.txt":    "not a schema",
	})
	docs := collect(loader.New(loader.WithFs(fs)), "/schemas")
	require.Len(t, docs, 3)

	assert.Equal(t, "a.json", docs[0].Key())
	assert.Equal(t, "b", docs[1].Key())
	assert.Equal(t, "b.json", docs[1].FileName)
	assert.Equal(t, "c.yaml", docs[2].Key())
	assert.Equal(t, map[string]any{
		"type":          "object",
		"required":      []any{"id"},
		"maxProperties": 3.0,
	}, docs[2].Body)
}

func TestScan_MissingDirectorySkipped(t *testing.T) {
	fs := memFs(t, map[string]string{"/present/x.json": `true`})
	docs := collect(loader.New(loader.WithFs(fs)), "/absent", "/present")
	require.Len(t, docs, 1)
	assert.Equal(t, true, docs[0].Body)
}

func TestScan_MalformedFileWarnsAndContinues(t *testing.T) {
	var buf bytes.Buffer
	fs := memFs(t, map[string]string{
		"/s/bad.json":   `{"type": `,
		"/s/array.json": `[1, 2]`,
		"/s/good.json":  `{"type": "string"}`,
	})
	l := loader.New(loader.WithFs(fs), loader.WithLogger(zerolog.New(&buf)))
	docs := collect(l, "/s")

	require.Len(t, docs, 1)
	assert.Equal(t, "good.json", docs[0].FileName)
	assert.Contains(t, buf.String(), "bad.json")
	assert.Contains(t, buf.String(), "array.json")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestScan_StopsEarly(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/s/1.json": `true`,
		"/s/2.json": `true`,
		"/s/3.json": `true`,
	})
	n := 0
	for range loader.New(loader.WithFs(fs)).Scan([]string{"/s"}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestScan_Patterns(t *testing.T) {
	fs := memFs(t, map[string]string{
		"/s/a.json":        `true`,
		"/s/b.schema.json": `true`,
	})
	docs := collect(loader.New(loader.WithFs(fs), loader.WithPatterns("*.schema.json")), "/s")
	require.Len(t, docs, 1)
	assert.Equal(t, "b.schema.json", docs[0].FileName)
}

func TestScan_IOFS(t *testing.T) {
	fsys := fstest.MapFS{
		"schemas/user.json": &fstest.MapFile{Data: []byte(`{"$id": "user"}`)},
	}
	docs := collect(loader.New(loader.WithFs(afero.FromIOFS{FS: fsys})), "schemas")
	require.Len(t, docs, 1)
	assert.Equal(t, "user", docs[0].Key())
}

func TestParse_RejectsScalars(t *testing.T) {
	_, err := loader.Parse(".json", []byte(`"str"`))
	assert.Error(t, err)

	body, err := loader.Parse(".yml", []byte("false\n"))
	require.NoError(t, err)
	assert.Equal(t, false, body)
}
