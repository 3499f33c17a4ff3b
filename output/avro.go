package output

import (
	"io"
	"math"
	"strings"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/reader"
)

// AvroOptions configures Avro encoding
type AvroOptions struct {
	// Compression is the block codec: null (default), deflate or snappy
	Compression string
}

// AvroWriter encodes frames as an Avro object container file with one
// record per row. Every field is a union of "null" and its primitive type,
// and carries its exact dtype in the reader.AvroDTypeAttribute attribute.
type AvroWriter struct {
	opts AvroOptions
}

// NewAvroWriter validates opts and returns a writer
func NewAvroWriter(opts AvroOptions) (*AvroWriter, error) {
	switch strings.ToLower(opts.Compression) {
	case "", "none":
		opts.Compression = goavro.CompressionNullLabel
	case goavro.CompressionNullLabel, goavro.CompressionDeflateLabel, goavro.CompressionSnappyLabel:
		opts.Compression = strings.ToLower(opts.Compression)
	default:
		return nil, frame.NewError(frame.KindArgument, "avro", "unsupported compression %q", opts.Compression)
	}
	return &AvroWriter{opts: opts}, nil
}

type avroRecordSchema struct {
	Type   string                   `json:"type"`
	Name   string                   `json:"name"`
	Fields []map[string]interface{} `json:"fields"`
}

func avroPrimitive(d frame.DType) string {
	switch d {
	case frame.Boolean:
		return "boolean"
	case frame.Int8, frame.Int16, frame.Int32, frame.UInt8, frame.UInt16:
		return "int"
	case frame.Int64, frame.UInt32, frame.UInt64:
		return "long"
	case frame.Float32:
		return "float"
	case frame.Float64:
		return "double"
	case frame.Null:
		return "null"
	}
	return "string"
}

func avroSchema(s frame.Schema) (string, error) {
	rec := avroRecordSchema{Type: "record", Name: "colframe", Fields: make([]map[string]interface{}, len(s))}
	for i, f := range s {
		typ := []interface{}{"null"}
		if p := avroPrimitive(f.DType); p != "null" {
			typ = append(typ, p)
		}
		rec.Fields[i] = map[string]interface{}{
			"name":                    f.Name,
			"type":                    typ,
			reader.AvroDTypeAttribute: f.DType.String(),
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Write encodes df to w
func (a *AvroWriter) Write(df *frame.DataFrame, w io.Writer) error {
	schema, err := avroSchema(df.Schema())
	if err != nil {
		return codecErr(err, "write avro", "failed to build schema")
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return codecErr(err, "write avro", "invalid schema")
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: a.opts.Compression,
	})
	if err != nil {
		return codecErr(err, "write avro", "failed to open container")
	}

	names := df.Columns()
	dtypes := df.DTypes()
	values := columnValues(df)
	records := make([]interface{}, 0, min(df.Height(), 1024))
	for row := 0; row < df.Height(); row++ {
		rec := make(map[string]interface{}, len(names))
		for i, col := range values {
			v, err := avroValue(col[row], dtypes[i])
			if err != nil {
				return codecErr(err, "write avro", "row %d column %q", row, names[i])
			}
			rec[names[i]] = v
		}
		records = append(records, rec)
		if len(records) == cap(records) {
			if err := ocf.Append(records); err != nil {
				return codecErr(err, "write avro", "failed to append block")
			}
			records = records[:0]
		}
	}
	if len(records) > 0 {
		if err := ocf.Append(records); err != nil {
			return codecErr(err, "write avro", "failed to append block")
		}
	}
	countRows(Avro, df)
	return nil
}

// avroValue wraps a host value in the union form goavro expects
func avroValue(v interface{}, dtype frame.DType) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	branch := avroPrimitive(dtype)
	switch x := v.(type) {
	case int64:
		if branch == "int" {
			return goavro.Union(branch, int32(x)), nil
		}
		return goavro.Union(branch, x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, frame.NewError(frame.KindBounds, "write avro", "value %d overflows avro long", x)
		}
		if branch == "int" {
			return goavro.Union(branch, int32(x)), nil
		}
		return goavro.Union(branch, int64(x)), nil
	case float64:
		if branch == "float" {
			return goavro.Union(branch, float32(x)), nil
		}
		return goavro.Union(branch, x), nil
	}
	return goavro.Union(branch, v), nil
}
