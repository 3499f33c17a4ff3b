package output

import (
	"bufio"
	"io"
	"math"

	"github.com/goccy/go-json"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/reader"
)

// JSONWriter encodes a frame as one columnar document:
//
//	{"columns":[{"name":"a","dtype":"Int64","values":[1,null]}]}
//
// Dtypes are recorded, so reader.JSONReader restores the frame exactly.
// NaN and infinities are written as the strings "NaN", "Inf" and "-Inf".
type JSONWriter struct{}

// Write encodes df to w
func (j *JSONWriter) Write(df *frame.DataFrame, w io.Writer) error {
	doc := reader.Document{Columns: make([]reader.DocumentColumn, df.Width())}
	for i, c := range df.Series() {
		values := c.Values()
		for k, v := range values {
			values[k] = jsonValue(v)
		}
		doc.Columns[i] = reader.DocumentColumn{Name: c.Name(), DType: c.DType().String(), Values: values}
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return codecErr(err, "write json", "encode failed")
	}
	countRows(JSON, df)
	return nil
}

// NDJSONWriter encodes one JSON object per row, keys in column order.
type NDJSONWriter struct{}

// Write encodes df to w
func (n *NDJSONWriter) Write(df *frame.DataFrame, w io.Writer) error {
	bw := bufio.NewWriter(w)
	names := df.Columns()
	keys := make([][]byte, len(names))
	for i, name := range names {
		raw, err := json.Marshal(name)
		if err != nil {
			return codecErr(err, "write ndjson", "column %q", name)
		}
		keys[i] = raw
	}

	values := columnValues(df)
	for row := 0; row < df.Height(); row++ {
		_ = bw.WriteByte('{')
		for i, col := range values {
			if i > 0 {
				_ = bw.WriteByte(',')
			}
			_, _ = bw.Write(keys[i])
			_ = bw.WriteByte(':')
			raw, err := json.Marshal(jsonValue(col[row]))
			if err != nil {
				return codecErr(err, "write ndjson", "row %d column %q", row, names[i])
			}
			_, _ = bw.Write(raw)
		}
		_, _ = bw.WriteString("}\n")
	}
	if err := bw.Flush(); err != nil {
		return codecErr(err, "write ndjson", "flush failed")
	}
	countRows(NDJSON, df)
	return nil
}

// jsonValue replaces floats JSON cannot represent with their string form
func jsonValue(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return f
}
