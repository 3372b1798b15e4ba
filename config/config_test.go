package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/skema/config"
	"github.com/reoring/skema/registry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
system:
  dirs:
    schemas: [defs, /abs/schemas]
validation:
  allErrors: false
  coerceTypes: false
  draft: draft2020-12
  onDuplicate: keepFirst
  cacheSize: 16
logging:
  level: trace
  format: console
server:
  addr: "127.0.0.1:9090"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "defs"), "/abs/schemas"}, cfg.System.Dirs.Schemas)
	opts := cfg.Validation.EngineOptions()
	assert.False(t, opts.AllErrors)
	assert.False(t, opts.CoerceTypes)
	assert.True(t, opts.RemoveAdditional)
	assert.True(t, opts.UseDefaults)
	assert.Equal(t, "draft2020-12", opts.Draft)
	assert.Equal(t, 16, opts.CacheSize)
	assert.Equal(t, registry.KeepFirst, cfg.Validation.DuplicatePolicy())
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
}

// Boolean validation options are on unless switched off explicitly.
func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, []string{"./schemas"}, cfg.System.Dirs.Schemas)
	opts := cfg.Validation.EngineOptions()
	assert.True(t, opts.AllErrors)
	assert.True(t, opts.RemoveAdditional)
	assert.True(t, opts.UseDefaults)
	assert.True(t, opts.CoerceTypes)
	assert.Equal(t, "draft7", opts.Draft)
	assert.Equal(t, 128, opts.CacheSize)
	assert.Equal(t, registry.Overwrite, cfg.Validation.DuplicatePolicy())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SCHEMA_DIR", "/srv/schemas")

	cfg, err := config.Load(writeConfig(t, `
system:
  dirs:
    schemas: ["${TEST_SCHEMA_DIR}"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv/schemas"}, cfg.System.Dirs.Schemas)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SKEMA_SCHEMA_DIRS", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv("SKEMA_VALIDATION_REMOVE_ADDITIONAL", "false")
	t.Setenv("SKEMA_VALIDATION_USE_DEFAULTS", "0")
	t.Setenv("SKEMA_VALIDATION_DRAFT", "draft4")
	t.Setenv("SKEMA_LOG_LEVEL", "warn")
	t.Setenv("SKEMA_SERVER_ADDR", ":9999")

	cfg, err := config.Load(writeConfig(t, `
validation:
  removeAdditional: true
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b"}, cfg.System.Dirs.Schemas)
	opts := cfg.Validation.EngineOptions()
	assert.False(t, opts.RemoveAdditional)
	assert.False(t, opts.UseDefaults)
	assert.True(t, opts.AllErrors)
	assert.Equal(t, "draft4", opts.Draft)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SKEMA_VALIDATION_COERCE_TYPES", "off")

	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Validation.EngineOptions().CoerceTypes)
	assert.True(t, cfg.Validation.EngineOptions().AllErrors)
}

func TestLoadWithFallback_MissingFile(t *testing.T) {
	cfg, err := config.LoadWithFallback(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "draft7", cfg.Validation.Draft)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown draft", "validation:\n  draft: draft3\n"},
		{"unknown duplicate policy", "validation:\n  onDuplicate: merge\n"},
		{"unknown log level", "logging:\n  level: verbose\n"},
		{"unknown log format", "logging:\n  format: xml\n"},
		{"relative metrics path", "metrics:\n  path: metrics\n"},
		{"malformed yaml", "validation: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
