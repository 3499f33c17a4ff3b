package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/config"
	"github.com/vegasq/colframe/internal/logging"
	"github.com/vegasq/colframe/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cli holds the persistent flags and the configuration they resolve to
type cli struct {
	configPath  string
	logLevel    string
	showMetrics bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "colframe",
		Short: "Query and convert tabular files with a lazy columnar engine",
		Long: `colframe reads CSV, JSON, NDJSON, Parquet, Arrow IPC and Avro files
(optionally gzip, zstd, lz4 or brotli compressed), runs SQL-style queries
over them and writes the result in any of those formats.`,
		Example: `  colframe query "SELECT city, mean(temp) AS avg FROM weather.csv GROUP BY city"
  colframe query data/*.parquet "SELECT * WHERE age > 30 LIMIT 10" --format csv
  colframe schema events.parquet
  colframe convert events.ndjson.zst events.parquet --compression zstd`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.finish(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (YAML)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.BoolVar(&c.showMetrics, "metrics", false, "print execution counters to stderr when done")

	root.AddCommand(
		c.newQueryCmd(),
		c.newExplainCmd(),
		c.newSchemaCmd(),
		c.newConvertCmd(),
		c.newSQLCmd(),
	)
	return root
}

// setup loads the configuration, installs the logger and the engine's
// default execution options.
func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if err := logging.Init(cfg.Logging()); err != nil {
		return err
	}
	frame.SetDefaultExecOptions(cfg.ExecOptions())

	c.cfg = cfg
	c.log = logging.Named("cli")
	c.log.Debug("configuration loaded",
		zap.String("file", c.configPath),
		zap.Int("workers", cfg.Exec.Workers),
		zap.Bool("optimize", cfg.Exec.Optimize))
	return nil
}

func (c *cli) finish(stderr io.Writer) error {
	_ = logging.Sync()
	if !c.showMetrics {
		return nil
	}
	return printMetrics(stderr)
}

// printMetrics writes one "name{labels} value" line per collector sample
func printMetrics(w io.Writer) error {
	samples, err := metrics.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, s := range samples {
		keys := make([]string, 0, len(s.Labels))
		for k := range s.Labels {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%q", k, s.Labels[k])
		}
		labels := ""
		if len(pairs) > 0 {
			labels = "{" + strings.Join(pairs, ",") + "}"
		}
		fmt.Fprintf(w, "%s%s %g\n", s.Name, labels, s.Value)
	}
	return nil
}
