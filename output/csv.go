package output

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vegasq/colframe/frame"
)

// CSVOptions configures CSV encoding
type CSVOptions struct {
	// NoHeader omits the header record
	NoHeader bool
	// Separator is the field delimiter; zero means ','
	Separator byte
	// Sanitize prefixes string fields that a spreadsheet would evaluate as
	// a formula with a single quote
	Sanitize bool
}

// CSVWriter encodes frames as delimited text. Nulls are empty fields.
type CSVWriter struct {
	opts CSVOptions
}

// NewCSVWriter validates opts and returns a writer
func NewCSVWriter(opts CSVOptions) (*CSVWriter, error) {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	switch opts.Separator {
	case '"', '\r', '\n':
		return nil, frame.NewError(frame.KindArgument, "csv", "invalid separator %q", opts.Separator)
	}
	return &CSVWriter{opts: opts}, nil
}

// Write encodes df to w
func (c *CSVWriter) Write(df *frame.DataFrame, w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = rune(c.opts.Separator)

	if !c.opts.NoHeader {
		if err := cw.Write(df.Columns()); err != nil {
			return codecErr(err, "write csv", "header")
		}
	}

	values := columnValues(df)
	dtypes := df.DTypes()
	record := make([]string, len(values))
	for row := 0; row < df.Height(); row++ {
		for i, col := range values {
			record[i] = c.formatValue(col[row], dtypes[i])
		}
		if err := cw.Write(record); err != nil {
			return codecErr(err, "write csv", "record %d", row)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return codecErr(err, "write csv", "failed to flush CSV writer")
	}
	countRows(CSV, df)
	return nil
}

// formatValue renders one field. Integral floats keep a trailing ".0" so
// that they read back as Float64.
func (c *CSVWriter) formatValue(v interface{}, dtype frame.DType) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if c.opts.Sanitize {
			return sanitizeField(val)
		}
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return formatFloat(val, dtype)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

func formatFloat(f float64, dtype frame.DType) string {
	bits := 64
	if dtype == frame.Float32 {
		bits = 32
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsAny(s, ".e") {
		return s
	}
	return s + ".0"
}

// sanitizeField guards against CSV injection: fields starting with a
// character that triggers formula evaluation in spreadsheet applications
// are prefixed with a quote, and existing quotes are doubled.
func sanitizeField(val string) string {
	if len(val) == 0 {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@', '\t', '\r', '\n', '|':
		return "'" + strings.ReplaceAll(val, "'", "''")
	}
	return val
}
