package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/compress"
	"github.com/vegasq/colframe/reader"
)

func (c *cli) newSchemaCmd() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "schema FILE",
		Short: "Show the columns and dtypes of a file",
		Long: `Show the schema of a file. Uncompressed Parquet files are described from
the footer alone, including physical and logical types and repetition;
other inputs report the dtypes they load as.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			opts, err := c.readerOptions(&f)
			if err != nil {
				return err
			}

			var df *frame.DataFrame
			if isPlainParquet(path, opts) {
				df, err = parquetSchemaFrame(path)
			} else {
				df, err = schemaFrame(path, opts)
			}
			if err != nil {
				return err
			}
			return c.emit(cmd, &f, df)
		},
	}
	f.registerInput(cmd)
	f.registerOutput(cmd)
	return cmd
}

func isPlainParquet(path string, opts reader.Options) bool {
	if reader.IsGlob(path) {
		return false
	}
	format, alg, err := reader.DetectFormat(path)
	if opts.Format != "" {
		format, err = opts.Format, nil
	}
	return err == nil && format == reader.Parquet && alg == compress.None
}

func schemaFrame(path string, opts reader.Options) (*frame.DataFrame, error) {
	schema, err := reader.Scan(path, opts).CollectSchema()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(schema))
	dtypes := make([]string, len(schema))
	for i, field := range schema {
		names[i] = field.Name
		dtypes[i] = field.DType.String()
	}
	return frame.New(frame.Strings("name", names), frame.Strings("dtype", dtypes))
}

func parquetSchemaFrame(path string) (*frame.DataFrame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	infos, err := reader.InspectParquet(file, stat.Size())
	if err != nil {
		return nil, err
	}

	n := len(infos)
	var (
		names    = make([]string, n)
		dtypes   = make([]string, n)
		physical = make([]string, n)
		logical  = make([]string, n)
		optional = make([]bool, n)
		repeated = make([]bool, n)
	)
	for i, info := range infos {
		names[i] = info.Name
		dtypes[i] = info.DType.String()
		physical[i] = info.PhysicalType
		logical[i] = info.LogicalType
		optional[i] = info.Optional
		repeated[i] = info.Repeated
	}
	return frame.New(
		frame.Strings("name", names),
		frame.Strings("dtype", dtypes),
		frame.Strings("physical_type", physical),
		frame.Strings("logical_type", logical),
		frame.Bools("optional", optional),
		frame.Bools("repeated", repeated),
	)
}
