package output

import (
	"io"
	"os"
	"strings"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/compress"
	"github.com/vegasq/colframe/internal/metrics"
	"github.com/vegasq/colframe/reader"
)

// Writer encodes a frame to w. Writers never close w.
type Writer interface {
	Write(df *frame.DataFrame, w io.Writer) error
}

// Format names an output encoding. File formats share their names with
// reader.Format; Table is display only.
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	NDJSON  Format = "ndjson"
	Parquet Format = "parquet"
	Arrow   Format = "arrow"
	Avro    Format = "avro"
	Table   Format = "table"
)

// ParseFormat parses an output format name
func ParseFormat(name string) (Format, error) {
	if strings.EqualFold(strings.TrimSpace(name), string(Table)) {
		return Table, nil
	}
	f, err := reader.ParseFormat(name)
	if err != nil {
		return "", err
	}
	return Format(f), nil
}

// Options configures every writer. Zero values are valid defaults.
type Options struct {
	// Format overrides extension-based detection in WriteFile
	Format  Format
	CSV     CSVOptions
	Parquet ParquetOptions
	Arrow   ArrowOptions
	Avro    AvroOptions
	Table   TableOptions
}

// New returns the writer for format
func New(format Format, opts Options) (Writer, error) {
	switch format {
	case CSV:
		return NewCSVWriter(opts.CSV)
	case JSON:
		return &JSONWriter{}, nil
	case NDJSON:
		return &NDJSONWriter{}, nil
	case Parquet:
		return NewParquetWriter(opts.Parquet)
	case Arrow:
		return &ArrowWriter{opts: opts.Arrow}, nil
	case Avro:
		return NewAvroWriter(opts.Avro)
	case Table:
		return NewTableWriter(opts.Table), nil
	}
	return nil, frame.NewError(frame.KindArgument, "new writer", "unsupported format %q", format)
}

// WriteFile encodes df into path, creating or truncating it. The format and
// stream compression come from the extensions unless opts.Format is set.
func WriteFile(df *frame.DataFrame, path string, opts Options) (err error) {
	format := opts.Format
	detected, alg, derr := reader.DetectFormat(path)
	if format == "" {
		if derr != nil {
			return derr
		}
		format = Format(detected)
	}
	wr, err := New(format, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return codecErr(err, "write file", "failed to create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = codecErr(cerr, "write file", "failed to close %s", path)
		}
	}()

	zw, err := compress.NewWriter(f, alg)
	if err != nil {
		return codecErr(err, "write file", "%s", path)
	}
	if err := wr.Write(df, zw); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return codecErr(err, "write file", "failed to flush %s", path)
	}
	return nil
}

func codecErr(cause error, op, format string, args ...interface{}) error {
	return frame.WrapError(cause, frame.KindCodec, op, format, args...)
}

func countRows(format Format, df *frame.DataFrame) {
	metrics.RowsWritten.WithLabelValues(string(format)).Add(float64(df.Height()))
}

// columnValues returns the host values of every column, in frame order.
func columnValues(df *frame.DataFrame) [][]interface{} {
	cols := df.Series()
	out := make([][]interface{}, len(cols))
	for i, c := range cols {
		out[i] = c.Values()
	}
	return out
}
