package reader

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vegasq/colframe/frame"
)

// ArrowReader decodes an Arrow IPC stream of one or more record batches.
type ArrowReader struct{}

// Read decodes every record batch of r and concatenates them.
func (a *ArrowReader) Read(r io.Reader) (*frame.DataFrame, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, codecErr(err, "read arrow", "failed to open ipc stream")
	}
	defer rdr.Release()

	schema, err := arrowSchema(rdr.Schema())
	if err != nil {
		return nil, err
	}
	builders := make([]*frame.Builder, len(schema))
	for i, f := range schema {
		builders[i] = frame.NewBuilder(f.Name, f.DType, 0)
	}

	for rdr.Next() {
		rec := rdr.Record()
		for i := range builders {
			if err := appendArrow(builders[i], rec.Column(i)); err != nil {
				return nil, err
			}
		}
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, codecErr(err, "read arrow", "failed to read record batch")
	}

	cols := make([]*frame.Column, len(builders))
	for i, b := range builders {
		cols[i] = b.Finish()
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	countRows(Arrow, df)
	return df, nil
}

func arrowSchema(s *arrow.Schema) (frame.Schema, error) {
	out := make(frame.Schema, s.NumFields())
	for i, f := range s.Fields() {
		d, err := arrowDType(f.Type)
		if err != nil {
			return nil, err
		}
		out[i] = frame.Field{Name: f.Name, DType: d}
	}
	return out, nil
}

// arrowDType maps an Arrow type to a dtype. Large and view string
// variants are not produced by the writer and are rejected.
func arrowDType(t arrow.DataType) (frame.DType, error) {
	switch t.ID() {
	case arrow.NULL:
		return frame.Null, nil
	case arrow.BOOL:
		return frame.Boolean, nil
	case arrow.INT8:
		return frame.Int8, nil
	case arrow.INT16:
		return frame.Int16, nil
	case arrow.INT32:
		return frame.Int32, nil
	case arrow.INT64:
		return frame.Int64, nil
	case arrow.UINT8:
		return frame.UInt8, nil
	case arrow.UINT16:
		return frame.UInt16, nil
	case arrow.UINT32:
		return frame.UInt32, nil
	case arrow.UINT64:
		return frame.UInt64, nil
	case arrow.FLOAT32:
		return frame.Float32, nil
	case arrow.FLOAT64:
		return frame.Float64, nil
	case arrow.STRING:
		return frame.String, nil
	}
	return frame.Null, frame.NewError(frame.KindCodec, "read arrow", "unsupported arrow type %s", t)
}

func appendArrow(b *frame.Builder, col arrow.Array) error {
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			b.AppendNull()
			continue
		}
		switch c := col.(type) {
		case *array.Null:
			b.AppendNull()
		case *array.Boolean:
			b.Append(frame.Bool(c.Value(i)))
		case *array.Int8:
			b.Append(frame.Int(int64(c.Value(i))))
		case *array.Int16:
			b.Append(frame.Int(int64(c.Value(i))))
		case *array.Int32:
			b.Append(frame.Int(int64(c.Value(i))))
		case *array.Int64:
			b.Append(frame.Int(c.Value(i)))
		case *array.Uint8:
			b.Append(frame.UInt(uint64(c.Value(i))))
		case *array.Uint16:
			b.Append(frame.UInt(uint64(c.Value(i))))
		case *array.Uint32:
			b.Append(frame.UInt(uint64(c.Value(i))))
		case *array.Uint64:
			b.Append(frame.UInt(c.Value(i)))
		case *array.Float32:
			b.Append(frame.Float(float64(c.Value(i))))
		case *array.Float64:
			b.Append(frame.Float(c.Value(i)))
		case *array.String:
			b.Append(frame.Str(c.Value(i)))
		default:
			return frame.NewError(frame.KindCodec, "read arrow", "unsupported arrow array %T", col)
		}
	}
	return nil
}
