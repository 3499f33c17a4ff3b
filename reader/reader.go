package reader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/compress"
	"github.com/vegasq/colframe/internal/metrics"
)

// Reader decodes one complete stream into a frame.
type Reader interface {
	Read(r io.Reader) (*frame.DataFrame, error)
}

// Format names an input encoding
type Format string

const (
	CSV     Format = "csv"
	JSON    Format = "json"
	NDJSON  Format = "ndjson"
	Parquet Format = "parquet"
	Arrow   Format = "arrow"
	Avro    Format = "avro"
)

var formatExtensions = map[string]Format{
	".csv":     CSV,
	".json":    JSON,
	".ndjson":  NDJSON,
	".jsonl":   NDJSON,
	".parquet": Parquet,
	".pq":      Parquet,
	".arrow":   Arrow,
	".arrows":  Arrow,
	".ipc":     Arrow,
	".avro":    Avro,
}

// ParseFormat parses a format name such as "csv" or "parquet"
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case CSV, JSON, NDJSON, Parquet, Arrow, Avro:
		return f, nil
	case "jsonl":
		return NDJSON, nil
	}
	return "", frame.NewError(frame.KindArgument, "parse format", "unsupported format %q", name)
}

// DetectFormat infers the format and stream compression of path from its
// extensions, e.g. "events.ndjson.zst" is zstd-compressed NDJSON.
func DetectFormat(path string) (Format, compress.Algorithm, error) {
	alg, base := compress.FromPath(path)
	ext := strings.ToLower(filepath.Ext(base))
	if f, ok := formatExtensions[ext]; ok {
		return f, alg, nil
	}
	return "", alg, frame.NewError(frame.KindArgument, "detect format", "cannot infer format of %q", path)
}

// Options configures every reader. Zero values are valid defaults.
type Options struct {
	// Format overrides extension-based detection in ReadFile
	Format Format
	CSV    CSVOptions
	JSON   JSONOptions
}

// New returns the reader for format
func New(format Format, opts Options) (Reader, error) {
	switch format {
	case CSV:
		return NewCSVReader(opts.CSV)
	case JSON:
		return &JSONReader{opts: opts.JSON}, nil
	case NDJSON:
		return &NDJSONReader{opts: opts.JSON}, nil
	case Parquet:
		return &ParquetReader{}, nil
	case Arrow:
		return &ArrowReader{}, nil
	case Avro:
		return &AvroReader{}, nil
	}
	return nil, frame.NewError(frame.KindArgument, "new reader", "unsupported format %q", format)
}

func codecErr(cause error, op, format string, args ...interface{}) error {
	return frame.WrapError(cause, frame.KindCodec, op, format, args...)
}

func countRows(format Format, df *frame.DataFrame) {
	metrics.RowsRead.WithLabelValues(string(format)).Add(float64(df.Height()))
}

// defaultName names the i-th (zero based) unnamed column
func defaultName(i int) string {
	return fmt.Sprintf("column_%d", i+1)
}
