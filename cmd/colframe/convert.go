package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vegasq/colframe/reader"
)

func (c *cli) newConvertCmd() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert a file to another format",
		Long: `Convert INPUT to OUTPUT, choosing both formats and stream compression from
the extensions: events.ndjson.zst becomes events.parquet, data.csv becomes
data.arrow.gz. An OUTPUT ending in .db, .sqlite or .sqlite3 is written as a
table of a SQLite database.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.readerOptions(&f)
			if err != nil {
				return err
			}
			df, err := reader.ReadFile(args[0], opts)
			if err != nil {
				return err
			}
			f.output = args[1]
			return c.emit(cmd, &f, df)
		},
	}
	f.registerInput(cmd)
	f.registerOutput(cmd)
	return cmd
}

func (c *cli) newSQLCmd() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "sql DATABASE QUERY",
		Short: "Load the result of a native SQLite query",
		Long: `Run QUERY against a SQLite database and print or write its result like
the query command does. The query runs in SQLite's own dialect.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("sqlite", args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			df, err := reader.SQL(ctx, db, args[1])
			if err != nil {
				return err
			}
			return c.emit(cmd, &f, df)
		},
	}
	f.registerOutput(cmd)
	return cmd
}
