package reader

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/vegasq/colframe/frame"
)

// AvroDTypeAttribute is the field attribute writers use to record the
// exact dtype when the Avro type is wider, e.g. Int8 stored as "int".
const AvroDTypeAttribute = "colframe.dtype"

// AvroReader decodes Avro object container files with a flat record schema.
// Nullable fields are unions of "null" and one primitive type.
type AvroReader struct{}

type avroField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type avroRecord struct {
	Type   string            `json:"type"`
	Fields []json.RawMessage `json:"fields"`
}

// dtypeAttribute returns the AvroDTypeAttribute of a field, or "" when the
// field does not carry one.
func dtypeAttribute(raw json.RawMessage) (string, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return "", err
	}
	v, ok := attrs[AvroDTypeAttribute]
	if !ok {
		return "", nil
	}
	var name string
	err := json.Unmarshal(v, &name)
	return name, err
}

// Read decodes every record of the container in r.
func (a *AvroReader) Read(r io.Reader) (*frame.DataFrame, error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, codecErr(err, "read avro", "failed to open container")
	}
	schema, err := avroSchema(ocf.Codec().Schema())
	if err != nil {
		return nil, err
	}

	builders := make([]*frame.Builder, len(schema))
	for i, f := range schema {
		builders[i] = frame.NewBuilder(f.Name, f.DType, 0)
	}
	for n := 0; ocf.Scan(); n++ {
		datum, err := ocf.Read()
		if err != nil {
			return nil, codecErr(err, "read avro", "record %d", n)
		}
		record, ok := datum.(map[string]interface{})
		if !ok {
			return nil, frame.NewError(frame.KindCodec, "read avro", "expected record, got %T", datum)
		}
		for i, f := range schema {
			s, err := avroScalar(record[f.Name])
			if err != nil {
				return nil, codecErr(err, "read avro", "field %q", f.Name)
			}
			builders[i].Append(s)
		}
	}
	if err := ocf.Err(); err != nil {
		return nil, codecErr(err, "read avro", "failed to scan container")
	}

	cols := make([]*frame.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	countRows(Avro, df)
	return df, nil
}

// avroSchema derives the frame schema from a record schema. The dtype
// attribute wins over the Avro type when present.
func avroSchema(raw string) (frame.Schema, error) {
	var rec avroRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, codecErr(err, "read avro", "invalid schema")
	}
	if rec.Type != "record" {
		return nil, frame.NewError(frame.KindCodec, "read avro", "top-level schema must be a record, got %q", rec.Type)
	}
	out := make(frame.Schema, len(rec.Fields))
	for i, raw := range rec.Fields {
		var f avroField
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, codecErr(err, "read avro", "invalid field %d", i)
		}
		dtype, err := dtypeAttribute(raw)
		if err != nil {
			return nil, codecErr(err, "read avro", "field %q", f.Name)
		}
		if dtype != "" {
			d, err := frame.ParseDType(dtype)
			if err != nil {
				return nil, codecErr(err, "read avro", "field %q", f.Name)
			}
			out[i] = frame.Field{Name: f.Name, DType: d}
			continue
		}
		d, err := avroFieldDType(f.Type)
		if err != nil {
			return nil, codecErr(err, "read avro", "field %q", f.Name)
		}
		out[i] = frame.Field{Name: f.Name, DType: d}
	}
	return out, nil
}

func avroFieldDType(raw json.RawMessage) (frame.DType, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return avroPrimitive(name)
	}
	var union []string
	if err := json.Unmarshal(raw, &union); err != nil {
		return frame.Null, frame.NewError(frame.KindCodec, "read avro", "unsupported field type %s", raw)
	}
	dtype := frame.Null
	for _, branch := range union {
		if branch == "null" {
			continue
		}
		if dtype != frame.Null {
			return frame.Null, frame.NewError(frame.KindCodec, "read avro", "unions of several non-null types are not supported: %s", raw)
		}
		d, err := avroPrimitive(branch)
		if err != nil {
			return frame.Null, err
		}
		dtype = d
	}
	return dtype, nil
}

func avroPrimitive(name string) (frame.DType, error) {
	switch name {
	case "null":
		return frame.Null, nil
	case "boolean":
		return frame.Boolean, nil
	case "int":
		return frame.Int32, nil
	case "long":
		return frame.Int64, nil
	case "float":
		return frame.Float32, nil
	case "double":
		return frame.Float64, nil
	case "string", "bytes":
		return frame.String, nil
	}
	return frame.Null, frame.NewError(frame.KindCodec, "read avro", "unsupported avro type %q", name)
}

// avroScalar converts a goavro native value. Union values arrive wrapped
// in a single-entry map keyed by the branch name.
func avroScalar(v interface{}) (frame.Scalar, error) {
	if m, ok := v.(map[string]interface{}); ok && len(m) == 1 {
		for _, inner := range m {
			v = inner
		}
	}
	switch x := v.(type) {
	case []byte:
		return frame.Str(string(x)), nil
	default:
		return frame.ScalarOf(x)
	}
}
