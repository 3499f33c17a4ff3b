package output

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/vegasq/colframe/frame"
)

// defaultArrowBatch is the record batch length when ArrowOptions leaves it unset
const defaultArrowBatch = 64 * 1024

// ArrowOptions configures Arrow IPC encoding
type ArrowOptions struct {
	// BatchSize is the maximum rows per record batch
	BatchSize int
}

// ArrowWriter encodes frames as an Arrow IPC stream. Every column is a
// nullable field of the matching Arrow primitive type.
type ArrowWriter struct {
	opts ArrowOptions
}

// Write encodes df to w
func (a *ArrowWriter) Write(df *frame.DataFrame, w io.Writer) error {
	schema := arrowSchema(df.Schema())
	alloc := memory.NewGoAllocator()
	iw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(alloc))

	batch := a.opts.BatchSize
	if batch <= 0 {
		batch = defaultArrowBatch
	}
	values := columnValues(df)
	rb := array.NewRecordBuilder(alloc, schema)
	defer rb.Release()

	// an empty frame still writes one empty batch
	for start := 0; ; start += batch {
		end := min(start+batch, df.Height())
		for i, col := range values {
			appendArrow(rb.Field(i), col[start:end])
		}
		rec := rb.NewRecord()
		err := iw.Write(rec)
		rec.Release()
		if err != nil {
			_ = iw.Close()
			return codecErr(err, "write arrow", "failed to write record batch")
		}
		if end >= df.Height() {
			break
		}
	}
	if err := iw.Close(); err != nil {
		return codecErr(err, "write arrow", "failed to close ipc stream")
	}
	countRows(Arrow, df)
	return nil
}

func arrowSchema(s frame.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	for i, f := range s {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.DType), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(d frame.DType) arrow.DataType {
	switch d {
	case frame.Null:
		return arrow.Null
	case frame.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case frame.Int8:
		return arrow.PrimitiveTypes.Int8
	case frame.Int16:
		return arrow.PrimitiveTypes.Int16
	case frame.Int32:
		return arrow.PrimitiveTypes.Int32
	case frame.Int64:
		return arrow.PrimitiveTypes.Int64
	case frame.UInt8:
		return arrow.PrimitiveTypes.Uint8
	case frame.UInt16:
		return arrow.PrimitiveTypes.Uint16
	case frame.UInt32:
		return arrow.PrimitiveTypes.Uint32
	case frame.UInt64:
		return arrow.PrimitiveTypes.Uint64
	case frame.Float32:
		return arrow.PrimitiveTypes.Float32
	case frame.Float64:
		return arrow.PrimitiveTypes.Float64
	}
	return arrow.BinaryTypes.String
}

// appendArrow appends host values to a field builder created from arrowType
func appendArrow(b array.Builder, values []interface{}) {
	for _, v := range values {
		if v == nil {
			b.AppendNull()
			continue
		}
		switch fb := b.(type) {
		case *array.BooleanBuilder:
			fb.Append(v.(bool))
		case *array.Int8Builder:
			fb.Append(int8(v.(int64)))
		case *array.Int16Builder:
			fb.Append(int16(v.(int64)))
		case *array.Int32Builder:
			fb.Append(int32(v.(int64)))
		case *array.Int64Builder:
			fb.Append(v.(int64))
		case *array.Uint8Builder:
			fb.Append(uint8(v.(uint64)))
		case *array.Uint16Builder:
			fb.Append(uint16(v.(uint64)))
		case *array.Uint32Builder:
			fb.Append(uint32(v.(uint64)))
		case *array.Uint64Builder:
			fb.Append(v.(uint64))
		case *array.Float32Builder:
			fb.Append(float32(v.(float64)))
		case *array.Float64Builder:
			fb.Append(v.(float64))
		case *array.StringBuilder:
			fb.Append(v.(string))
		default:
			b.AppendNull()
		}
	}
}
