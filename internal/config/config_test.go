package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/colframe/frame"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "colframe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, runtime.NumCPU(), cfg.Exec.Workers)
	assert.Equal(t, 4096, cfg.Exec.ParallelThreshold)
	assert.True(t, cfg.Exec.Optimize)
	assert.Equal(t, byte(','), cfg.Separator())
	assert.True(t, cfg.CSV.HasHeader)
	assert.Equal(t, "snappy", cfg.Parquet.Compression)
	assert.Equal(t, "table", cfg.Output.Format)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  encoding: json
exec:
  workers: 2
  optimize: false
csv:
  separator: ";"
  has_header: false
output:
  format: ndjson
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Logging().Encoding)
	assert.Equal(t, 2, cfg.Exec.Workers)
	assert.Equal(t, byte(';'), cfg.Separator())
	assert.False(t, cfg.CSV.HasHeader)
	assert.Equal(t, "ndjson", cfg.Output.Format)
	// untouched keys keep their defaults
	assert.Equal(t, 4096, cfg.Exec.ParallelThreshold)

	opts := cfg.ExecOptions()
	assert.Equal(t, frame.OptNone, opts.Optimizations)
	assert.Equal(t, 2, opts.Workers)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "exec:\n  workers: 2\n")
	t.Setenv("COLFRAME_EXEC_WORKERS", "6")
	t.Setenv("COLFRAME_PARQUET_COMPRESSION", "zstd")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Exec.Workers)
	assert.Equal(t, "zstd", cfg.Parquet.Compression)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad encoding", func(c *Config) { c.Log.Encoding = "xml" }, "log.encoding"},
		{"negative workers", func(c *Config) { c.Exec.Workers = -1 }, "exec.workers"},
		{"negative threshold", func(c *Config) { c.Exec.ParallelThreshold = -5 }, "exec.parallel_threshold"},
		{"long separator", func(c *Config) { c.CSV.Separator = "||" }, "csv.separator"},
		{"empty separator", func(c *Config) { c.CSV.Separator = "" }, "csv.separator"},
		{"bad codec", func(c *Config) { c.Parquet.Compression = "rar" }, "parquet.compression"},
		{"bad format", func(c *Config) { c.Output.Format = "xlsx" }, "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
