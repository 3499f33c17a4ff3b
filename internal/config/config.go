// Package config loads the CLI configuration from a YAML file, COLFRAME_
// environment variables and built-in defaults, in increasing precedence
// order: defaults, file, environment.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// COLFRAME_EXEC_WORKERS for exec.workers.
const EnvPrefix = "COLFRAME"

// Config is the full CLI configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Exec    ExecConfig    `mapstructure:"exec"`
	CSV     CSVConfig     `mapstructure:"csv"`
	Parquet ParquetConfig `mapstructure:"parquet"`
	Output  OutputConfig  `mapstructure:"output"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// ExecConfig configures plan execution
type ExecConfig struct {
	Workers           int  `mapstructure:"workers"`
	ParallelThreshold int  `mapstructure:"parallel_threshold"`
	Optimize          bool `mapstructure:"optimize"`
}

// CSVConfig holds the CSV codec defaults
type CSVConfig struct {
	Separator string `mapstructure:"separator"`
	HasHeader bool   `mapstructure:"has_header"`
	Sanitize  bool   `mapstructure:"sanitize"`
}

// ParquetConfig holds the Parquet writer defaults
type ParquetConfig struct {
	Compression string `mapstructure:"compression"`
}

// OutputConfig selects how the CLI prints results to stdout
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

var (
	parquetCodecs = []string{"none", "snappy", "gzip", "zstd", "lz4", "brotli"}
	outputFormats = []string{"table", "csv", "json", "ndjson"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("exec.workers", runtime.NumCPU())
	v.SetDefault("exec.parallel_threshold", 4096)
	v.SetDefault("exec.optimize", true)
	v.SetDefault("csv.separator", ",")
	v.SetDefault("csv.has_header", true)
	v.SetDefault("csv.sanitize", false)
	v.SetDefault("parquet.compression", "snappy")
	v.SetDefault("output.format", "table")
}

// Load reads the configuration. An empty path skips the file and uses only
// defaults and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enum fields
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Log.Encoding != "console" && c.Log.Encoding != "json" {
		return fmt.Errorf("invalid log.encoding %q: must be console or json", c.Log.Encoding)
	}
	if c.Exec.Workers < 0 {
		return fmt.Errorf("exec.workers must be non-negative, got %d", c.Exec.Workers)
	}
	if c.Exec.ParallelThreshold < 0 {
		return fmt.Errorf("exec.parallel_threshold must be non-negative, got %d", c.Exec.ParallelThreshold)
	}
	if len(c.CSV.Separator) != 1 {
		return fmt.Errorf("csv.separator must be a single byte, got %q", c.CSV.Separator)
	}
	if !contains(parquetCodecs, c.Parquet.Compression) {
		return fmt.Errorf("invalid parquet.compression %q: must be one of %s",
			c.Parquet.Compression, strings.Join(parquetCodecs, ", "))
	}
	if !contains(outputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output.format %q: must be one of %s",
			c.Output.Format, strings.Join(outputFormats, ", "))
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Logging converts the log section for logging.Init
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:       c.Log.Level,
		Encoding:    c.Log.Encoding,
		Development: c.Log.Development,
		OutputPaths: []string{"stderr"},
	}
}

// ExecOptions converts the exec section into engine options
func (c *Config) ExecOptions() frame.ExecOptions {
	opts := frame.ExecOptions{
		Optimizations:     frame.OptDefault,
		Workers:           c.Exec.Workers,
		ParallelThreshold: c.Exec.ParallelThreshold,
		Logger:            logging.Named("frame"),
	}
	if !c.Exec.Optimize {
		opts.Optimizations = frame.OptNone
	}
	return opts
}

// Separator returns the CSV separator byte
func (c *Config) Separator() byte {
	return c.CSV.Separator[0]
}
