package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/query"
	"github.com/vegasq/colframe/reader"
)

var errNoSource = errors.New("no input: pass a FILE argument or name one with FROM")

// plan parses sql and builds the lazy plan over its source. A FILE argument
// takes precedence over the statement's FROM.
func (c *cli) plan(args []string, f *ioFlags) (*frame.LazyFrame, error) {
	file, text := "", args[0]
	if len(args) == 2 {
		file, text = args[0], args[1]
	}

	stmt, err := query.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if file == "" {
		file = stmt.From
	}
	if file == "" {
		return nil, errNoSource
	}

	opts, err := c.readerOptions(f)
	if err != nil {
		return nil, err
	}
	return stmt.Apply(reader.Scan(file, opts))
}

func (c *cli) newQueryCmd() *cobra.Command {
	var (
		f     ioFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "query [FILE] SQL",
		Short: "Run a SQL query over a file or glob",
		Long: `Run a SELECT over a file. The source is the FILE argument or, when it is
omitted, the statement's FROM clause. Globs read every match and add a
_file column naming the origin of each row.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative, got %d", limit)
			}
			lf, err := c.plan(args, &f)
			if err != nil {
				return err
			}
			if limit > 0 {
				lf = lf.Head(limit)
			}

			start := time.Now()
			df, err := lf.Collect()
			if err != nil {
				return err
			}
			c.log.Debug("query executed",
				zap.Int("rows", df.Height()),
				zap.Duration("elapsed", time.Since(start)))
			return c.emit(cmd, &f, df)
		},
	}
	f.registerInput(cmd)
	f.registerOutput(cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "limit number of rows (0 = unlimited)")
	return cmd
}

func (c *cli) newExplainCmd() *cobra.Command {
	var (
		f         ioFlags
		optimized bool
	)
	cmd := &cobra.Command{
		Use:   "explain [FILE] SQL",
		Short: "Print the query plan",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lf, err := c.plan(args, &f)
			if err != nil {
				return err
			}
			text, err := lf.Explain(optimized)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	f.registerInput(cmd)
	cmd.Flags().BoolVar(&optimized, "optimized", false, "show the plan after optimization")
	return cmd
}
