package reader

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// CSVOptions configures CSV decoding
type CSVOptions struct {
	// NoHeader treats the first record as data and names columns column_1..n
	NoHeader bool
	// Separator is the field delimiter; zero means ','
	Separator byte
	// NoInference keeps every column as String
	NoInference bool
	// DTypes forces the dtype of named columns; unparsable fields become null
	DTypes map[string]frame.DType
	// NullValues are extra field values read as null besides the empty field
	NullValues []string
}

// ParseSeparator validates a user-supplied separator, which must be exactly
// one byte.
func ParseSeparator(s string) (byte, error) {
	if len(s) != 1 {
		return 0, frame.NewError(frame.KindArgument, "csv", "separator must be a single byte, got %q", s)
	}
	return s[0], nil
}

// CSVReader decodes delimited text
type CSVReader struct {
	opts CSVOptions
}

// NewCSVReader validates opts and returns a reader
func NewCSVReader(opts CSVOptions) (*CSVReader, error) {
	if opts.Separator == 0 {
		opts.Separator = ','
	}
	switch opts.Separator {
	case '"', '\r', '\n':
		return nil, frame.NewError(frame.KindArgument, "csv", "invalid separator %q", opts.Separator)
	}
	return &CSVReader{opts: opts}, nil
}

// Read decodes r. Every record must have as many fields as the first one.
func (c *CSVReader) Read(r io.Reader) (*frame.DataFrame, error) {
	cr := csv.NewReader(r)
	cr.Comma = rune(c.opts.Separator)
	cr.ReuseRecord = true

	var names []string
	var fields [][]string
	var valid [][]bool
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, codecErr(err, "read csv", "record %d", line)
		}
		if names == nil {
			names = make([]string, len(record))
			fields = make([][]string, len(record))
			valid = make([][]bool, len(record))
			if !c.opts.NoHeader {
				copy(names, record)
				continue
			}
			for i := range names {
				names[i] = defaultName(i)
			}
		}
		for i, v := range record {
			fields[i] = append(fields[i], v)
			valid[i] = append(valid[i], !c.isNull(v))
		}
	}

	cols := make([]*frame.Column, len(names))
	for i, name := range names {
		dtype, forced := c.opts.DTypes[name]
		if !forced {
			dtype = frame.String
			if !c.opts.NoInference {
				dtype = inferDType(fields[i], valid[i])
			}
		}
		cols[i] = buildColumn(name, dtype, fields[i], valid[i])
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	logging.Named("reader").Debug("decoded csv",
		zap.Int("rows", df.Height()),
		zap.Int("columns", df.Width()))
	countRows(CSV, df)
	return df, nil
}

func (c *CSVReader) isNull(v string) bool {
	if v == "" {
		return true
	}
	for _, n := range c.opts.NullValues {
		if v == n {
			return true
		}
	}
	return false
}

// inferDType picks the narrowest of Int64, Float64, Boolean and String that
// parses every valid field. Columns with no valid field are String.
func inferDType(fields []string, valid []bool) frame.DType {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for i, f := range fields {
		if !valid[i] {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(f, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(f, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			l := strings.ToLower(f)
			isBool = l == "true" || l == "false"
		}
		if !isInt && !isFloat && !isBool {
			return frame.String
		}
	}
	switch {
	case !seen:
		return frame.String
	case isInt:
		return frame.Int64
	case isFloat:
		return frame.Float64
	case isBool:
		return frame.Boolean
	}
	return frame.String
}

// buildColumn parses fields into dtype. Fields that do not parse are null.
func buildColumn(name string, dtype frame.DType, fields []string, valid []bool) *frame.Column {
	b := frame.NewBuilder(name, dtype, len(fields))
	for i, f := range fields {
		if !valid[i] {
			b.AppendNull()
			continue
		}
		if dtype == frame.Boolean {
			b.Append(frame.Str(strings.ToLower(f)))
			continue
		}
		b.Append(frame.Str(f))
	}
	return b.Finish()
}
