package reader

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// JSONOptions configures JSON and NDJSON decoding
type JSONOptions struct {
	// DTypes forces the dtype of named columns instead of inferring it
	DTypes map[string]frame.DType
}

// Document is the columnar JSON layout shared with the JSON writer.
type Document struct {
	Columns []DocumentColumn `json:"columns"`
}

// DocumentColumn is one column of a Document. DType is optional on input.
type DocumentColumn struct {
	Name   string        `json:"name"`
	DType  string        `json:"dtype,omitempty"`
	Values []interface{} `json:"values"`
}

// JSONReader decodes a columnar Document
type JSONReader struct {
	opts JSONOptions
}

// Read decodes r as a single Document
func (j *JSONReader) Read(r io.Reader) (*frame.DataFrame, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, codecErr(err, "read json", "invalid document")
	}

	cols := make([]*frame.Column, len(doc.Columns))
	for i, dc := range doc.Columns {
		dtype, ok := j.opts.DTypes[dc.Name]
		if !ok && dc.DType != "" {
			var err error
			if dtype, err = frame.ParseDType(dc.DType); err != nil {
				return nil, codecErr(err, "read json", "column %q", dc.Name)
			}
			ok = true
		}
		if !ok {
			dtype = inferJSONDType(dc.Values)
		}
		col, err := jsonColumn(dc.Name, dtype, dc.Values)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	countRows(JSON, df)
	return df, nil
}

// NDJSONReader decodes one JSON object per line. Columns are the union of
// all keys, sorted by name; missing keys are null.
type NDJSONReader struct {
	opts JSONOptions
}

// Read decodes r line by line; blank lines are skipped.
func (n *NDJSONReader) Read(r io.Reader) (*frame.DataFrame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []map[string]interface{}
	keys := make(map[string]struct{})
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var row map[string]interface{}
		if err := dec.Decode(&row); err != nil {
			return nil, codecErr(err, "read ndjson", "line %d", line)
		}
		for k := range row {
			keys[k] = struct{}{}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, codecErr(err, "read ndjson", "line %d", line+1)
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]*frame.Column, len(names))
	for i, name := range names {
		values := make([]interface{}, len(rows))
		for j, row := range rows {
			values[j] = row[name]
		}
		dtype, ok := n.opts.DTypes[name]
		if !ok {
			dtype = inferJSONDType(values)
		}
		col, err := jsonColumn(name, dtype, values)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	logging.Named("reader").Debug("decoded ndjson",
		zap.Int("lines", line),
		zap.Int("columns", df.Width()))
	countRows(NDJSON, df)
	return df, nil
}

// inferJSONDType maps decoded JSON values to a dtype: integral numbers are
// Int64, any fractional or exponent number makes the column Float64, and
// mixed kinds fall back to String.
func inferJSONDType(values []interface{}) frame.DType {
	dtype := frame.Null
	for _, v := range values {
		var d frame.DType
		switch x := v.(type) {
		case nil:
			continue
		case json.Number:
			d = frame.Int64
			if _, err := x.Int64(); err != nil {
				d = frame.Float64
			}
		case bool:
			d = frame.Boolean
		default:
			d = frame.String
		}
		switch {
		case dtype == frame.Null:
			dtype = d
		case dtype == d:
		case (dtype == frame.Int64 && d == frame.Float64) || (dtype == frame.Float64 && d == frame.Int64):
			dtype = frame.Float64
		default:
			return frame.String
		}
	}
	return dtype
}

// jsonColumn converts decoded JSON values into a column of dtype. Strings
// are accepted for numeric columns so that NaN and infinities round-trip.
func jsonColumn(name string, dtype frame.DType, values []interface{}) (*frame.Column, error) {
	b := frame.NewBuilder(name, dtype, len(values))
	for i, v := range values {
		s, err := jsonScalar(v, dtype)
		if err != nil {
			return nil, codecErr(err, "read json", "column %q value %d", name, i)
		}
		if err := b.AppendStrict(s); err != nil {
			return nil, codecErr(err, "read json", "column %q value %d does not fit %s", name, i, dtype)
		}
	}
	return b.Finish(), nil
}

func jsonScalar(v interface{}, dtype frame.DType) (frame.Scalar, error) {
	switch x := v.(type) {
	case nil:
		return frame.NullValue, nil
	case json.Number:
		switch {
		case dtype == frame.String:
			return frame.Str(x.String()), nil
		case dtype.IsUnsigned():
			u, err := strconv.ParseUint(x.String(), 10, 64)
			if err != nil {
				return frame.NullValue, err
			}
			return frame.UInt(u), nil
		case dtype.IsInteger() || dtype == frame.Boolean:
			if i, err := x.Int64(); err == nil {
				return frame.Int(i), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return frame.NullValue, err
		}
		return frame.Float(f), nil
	case bool:
		if dtype == frame.String {
			return frame.Str(strconv.FormatBool(x)), nil
		}
		return frame.Bool(x), nil
	case string:
		return frame.Str(x), nil
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return frame.NullValue, err
		}
		return frame.Str(string(raw)), nil
	}
}
