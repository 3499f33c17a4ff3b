package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/output"
	"github.com/vegasq/colframe/reader"

	_ "modernc.org/sqlite"
)

// ioFlags are the input and output flags shared by the data commands
type ioFlags struct {
	inputFormat string
	format      string
	output      string
	compression string
	maxRows     int
	table       string
	replace     bool
}

func (f *ioFlags) registerInput(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.inputFormat, "input-format", "", "input format, overriding the file extension")
}

func (f *ioFlags) registerOutput(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: table, csv, json, ndjson, parquet, arrow, avro")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&f.compression, "compression", "", "parquet page compression (overrides config)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "rows shown by the table format (0 = all)")
	cmd.Flags().StringVar(&f.table, "table", "data", "table name when the output is a SQLite database")
	cmd.Flags().BoolVar(&f.replace, "replace", false, "drop an existing SQLite table first")
}

func (c *cli) readerOptions(f *ioFlags) (reader.Options, error) {
	opts := reader.Options{
		CSV: reader.CSVOptions{
			Separator: c.cfg.Separator(),
			NoHeader:  !c.cfg.CSV.HasHeader,
		},
	}
	if f.inputFormat != "" {
		format, err := reader.ParseFormat(f.inputFormat)
		if err != nil {
			return opts, err
		}
		opts.Format = format
	}
	return opts, nil
}

func (c *cli) writerOptions(f *ioFlags) output.Options {
	compression := c.cfg.Parquet.Compression
	if f.compression != "" {
		compression = f.compression
	}
	return output.Options{
		CSV: output.CSVOptions{
			Separator: c.cfg.Separator(),
			NoHeader:  !c.cfg.CSV.HasHeader,
			Sanitize:  c.cfg.CSV.Sanitize,
		},
		Parquet: output.ParquetOptions{Compression: compression},
		Table:   output.TableOptions{MaxRows: f.maxRows},
	}
}

// isDatabase reports whether path names a SQLite database
func isDatabase(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// emit writes df to the output file if one was given, otherwise to the
// command's stdout in the requested or configured format.
func (c *cli) emit(cmd *cobra.Command, f *ioFlags, df *frame.DataFrame) error {
	opts := c.writerOptions(f)
	if f.format != "" {
		format, err := output.ParseFormat(f.format)
		if err != nil {
			return err
		}
		opts.Format = format
	}

	if f.output != "" {
		if isDatabase(f.output) {
			return c.writeDatabase(cmd.Context(), f, df)
		}
		if err := output.WriteFile(df, f.output, opts); err != nil {
			return err
		}
		c.log.Info("wrote output",
			zap.String("path", f.output),
			zap.Int("rows", df.Height()),
			zap.Int("columns", df.Width()))
		return nil
	}

	if opts.Format == "" {
		format, err := output.ParseFormat(c.cfg.Output.Format)
		if err != nil {
			return err
		}
		opts.Format = format
	}
	w, err := output.New(opts.Format, opts)
	if err != nil {
		return err
	}
	return w.Write(df, cmd.OutOrStdout())
}

func (c *cli) writeDatabase(ctx context.Context, f *ioFlags, df *frame.DataFrame) error {
	db, err := sql.Open("sqlite", f.output)
	if err != nil {
		return err
	}
	defer db.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := output.SQL(ctx, db, f.table, df, output.SQLOptions{Replace: f.replace}); err != nil {
		return err
	}
	c.log.Info("wrote table",
		zap.String("path", f.output),
		zap.String("table", f.table),
		zap.Int("rows", df.Height()))
	return nil
}
