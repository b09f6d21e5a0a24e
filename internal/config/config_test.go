package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns a valid configuration with all expected defaults
// - LoadConfig() uses defaults (plus resolved cache/temp roots) when no
//   config file exists
// - LoadConfig() loads from .codebraid/config.yml when present
// - LoadConfig() merges a partial config file with defaults
// - Environment variables override config file values
// - LoadConfig() returns error for malformed YAML
// - LoadConfig() returns error for invalid configuration values
// - Validate() accepts a valid configuration
// - Validate() rejects an empty cache root
// - Validate() rejects a non-positive jupyter_timeout

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 60, cfg.Exec.JupyterTimeout)
	assert.False(t, cfg.Cache.NoCache)
	assert.False(t, cfg.Progress.Quiet)
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	tempDir := t.TempDir()

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Cache.Root, "cache root should resolve to a default even with no config file")
	assert.NotEmpty(t, cfg.Exec.TempDir)
	assert.Equal(t, 60, cfg.Exec.JupyterTimeout)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	tempDir := t.TempDir()
	cbDir := filepath.Join(tempDir, ".codebraid")
	require.NoError(t, os.MkdirAll(cbDir, 0755))

	configContent := `
cache:
  root: /custom/cache/root
  no_cache: true

languages:
  definitions_dir: /etc/codebraid/languages

exec:
  temp_dir: /tmp/codebraid-build
  jupyter_timeout: 120

progress:
  quiet: true
`

	configPath := filepath.Join(cbDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/custom/cache/root", cfg.Cache.Root)
	assert.True(t, cfg.Cache.NoCache)
	assert.Equal(t, "/etc/codebraid/languages", cfg.Languages.DefinitionsDir)
	assert.Equal(t, "/tmp/codebraid-build", cfg.Exec.TempDir)
	assert.Equal(t, 120, cfg.Exec.JupyterTimeout)
	assert.True(t, cfg.Progress.Quiet)
}

func TestLoadConfig_MergesConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()
	cbDir := filepath.Join(tempDir, ".codebraid")
	require.NoError(t, os.MkdirAll(cbDir, 0755))

	// Only override the cache root; jupyter_timeout should come from defaults.
	configContent := `
cache:
  root: /custom/cache/root
`

	configPath := filepath.Join(cbDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "/custom/cache/root", cfg.Cache.Root)
	assert.Equal(t, 60, cfg.Exec.JupyterTimeout)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: cannot use t.Parallel() with t.Setenv().
	tempDir := t.TempDir()
	cbDir := filepath.Join(tempDir, ".codebraid")
	require.NoError(t, os.MkdirAll(cbDir, 0755))

	configContent := `
cache:
  root: /file/cache/root
exec:
  jupyter_timeout: 90
`

	configPath := filepath.Join(cbDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	t.Setenv("CODEBRAID_CACHE_ROOT", "/env/cache/root")

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, "/env/cache/root", cfg.Cache.Root)
	assert.Equal(t, 90, cfg.Exec.JupyterTimeout, "jupyter_timeout not overridden by env, should still come from file")
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	tempDir := t.TempDir()
	cbDir := filepath.Join(tempDir, ".codebraid")
	require.NoError(t, os.MkdirAll(cbDir, 0755))

	malformedContent := `
cache:
  root: "unclosed quote
  no_cache: not-a-bool
`

	configPath := filepath.Join(cbDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(malformedContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	tempDir := t.TempDir()
	cbDir := filepath.Join(tempDir, ".codebraid")
	require.NoError(t, os.MkdirAll(cbDir, 0755))

	invalidContent := `
exec:
  jupyter_timeout: -10
`

	configPath := filepath.Join(cbDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(invalidContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid")
}

func TestValidate_AcceptsValidConfiguration(t *testing.T) {
	cfg := &Config{
		Cache: CacheConfig{Root: "/some/cache/root"},
		Exec:  ExecConfig{TempDir: "/tmp/codebraid", JupyterTimeout: 60},
	}

	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsEmptyCacheRoot(t *testing.T) {
	cfg := Default()
	cfg.Cache.Root = ""
	cfg.Exec.JupyterTimeout = 60

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCacheRoot)
}

func TestValidate_RejectsNonPositiveJupyterTimeout(t *testing.T) {
	cfg := Default()
	cfg.Cache.Root = "/some/cache/root"
	cfg.Exec.JupyterTimeout = 0

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJupyterTimeout)
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := &Config{
		Cache: CacheConfig{Root: ""},
		Exec:  ExecConfig{JupyterTimeout: -1},
	}

	err := Validate(cfg)
	assert.Error(t, err)

	errMsg := err.Error()
	assert.Contains(t, errMsg, "cache root")
	assert.Contains(t, errMsg, "jupyter")
}
