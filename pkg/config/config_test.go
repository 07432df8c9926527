package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"NUMBER", "VARCHAR2", "INT", "BOOLEAN"}, cfg.Lint.TypeKeywords)
	assert.Contains(t, cfg.Lint.Extensions, ".sql")
	assert.Equal(t, "report.txt", cfg.Lint.ReportPath)
	assert.True(t, cfg.Exclude.Gitignore)
	assert.NotEmpty(t, cfg.Exclude.Dirs)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24, cfg.Cache.TTL)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "plint.toml", `
[lint]
type_keywords = ["NUMBER", "DATE"]
report_path = "out/lint.txt"

[exclude]
dirs = ["legacy"]
patterns = ["*_gen.sql"]

[cache]
enabled = false

[output]
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"NUMBER", "DATE"}, cfg.Lint.TypeKeywords)
	assert.Equal(t, "out/lint.txt", cfg.Lint.ReportPath)
	assert.Contains(t, cfg.Lint.Extensions, ".pkb", "unset keys keep defaults")
	assert.Equal(t, []string{"legacy"}, cfg.Exclude.Dirs)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "plint.yaml", `
lint:
  max_file_size: 2048
output:
  format: markdown
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.Lint.MaxFileSize)
	assert.Equal(t, "markdown", cfg.Output.Format)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "plint.json", `{"lint": {"workers": 3}, "cache": {"ttl": 1}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Lint.Workers)
	assert.Equal(t, 1, cfg.Cache.TTL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.toml", "this is not = = toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "invalid.toml", "[output]\nformat = \"xml\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty keywords", func(c *Config) { c.Lint.TypeKeywords = nil }, "must not be empty"},
		{"blank keyword", func(c *Config) { c.Lint.TypeKeywords = []string{" "} }, "invalid keyword"},
		{"keyword with space", func(c *Config) { c.Lint.TypeKeywords = []string{"LONG RAW"} }, "invalid keyword"},
		{"negative size", func(c *Config) { c.Lint.MaxFileSize = -1 }, "max_file_size"},
		{"negative workers", func(c *Config) { c.Lint.Workers = -2 }, "workers"},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -1 }, "cache.ttl"},
		{"unknown format", func(c *Config) { c.Output.Format = "html" }, "unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	result, err := LoadConfig(WithSearchDirs(dir))
	require.NoError(t, err)
	assert.Empty(t, result.Source)
	assert.Equal(t, DefaultConfig(), result.Config)

	path := filepath.Join(dir, ".plint.yml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  color: false\n"), 0o644))

	result, err = LoadConfig(WithSearchDirs(dir))
	require.NoError(t, err)
	assert.Equal(t, path, result.Source)
	assert.False(t, result.Config.Output.Color)

	explicit := writeConfig(t, "custom.toml", "[lint]\nworkers = 1\n")
	result, err = LoadConfig(WithPath(explicit))
	require.NoError(t, err)
	assert.Equal(t, explicit, result.Source)
	assert.Equal(t, 1, result.Config.Lint.Workers)
}

func TestHasExtension(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.HasExtension("pkg/body.PKB"))
	assert.True(t, cfg.HasExtension("proc.sql"))
	assert.False(t, cfg.HasExtension("main.go"))
	assert.False(t, cfg.HasExtension("Makefile"))
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = []string{"*_gen.sql"}

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join("vendor", "x.sql"), true},
		{filepath.Join("src", "node_modules", "x.sql"), true},
		{filepath.Join("src", "schema_gen.sql"), true},
		{filepath.Join("src", "schema.sql"), false},
		{filepath.Join("vendored", "x.sql"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.ShouldExclude(tt.path), tt.path)
	}
}
