package output

import (
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
	"github.com/vegasq/colframe/reader"
)

// ParquetOptions configures Parquet encoding
type ParquetOptions struct {
	// Compression is the page codec: none, snappy (default), gzip, zstd,
	// lz4 or brotli
	Compression string
	// RowGroupSize caps the rows per row group; zero writes one group
	RowGroupSize int
}

// ParquetWriter encodes frames as flat Parquet files. Every column is an
// optional leaf; the frame schema is stored under reader.SchemaMetadataKey
// so column order and exact dtypes are restored on read.
type ParquetWriter struct {
	opts  ParquetOptions
	codec compress.Codec
}

// NewParquetWriter validates opts and returns a writer
func NewParquetWriter(opts ParquetOptions) (*ParquetWriter, error) {
	codec, err := parquetCodec(opts.Compression)
	if err != nil {
		return nil, err
	}
	return &ParquetWriter{opts: opts, codec: codec}, nil
}

func parquetCodec(name string) (compress.Codec, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "none", "uncompressed":
		return &parquet.Uncompressed, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "zstd":
		return &parquet.Zstd, nil
	case "lz4":
		return &parquet.Lz4Raw, nil
	case "brotli":
		return &parquet.Brotli, nil
	}
	return nil, frame.NewError(frame.KindArgument, "parquet", "unsupported compression %q", name)
}

// parquetNode maps a dtype to an optional leaf. Null columns are stored as
// optional Int32 leaves that hold no values.
func parquetNode(d frame.DType) parquet.Node {
	var leaf parquet.Node
	switch d {
	case frame.Int8:
		leaf = parquet.Int(8)
	case frame.Int16:
		leaf = parquet.Int(16)
	case frame.Int32, frame.Null:
		leaf = parquet.Int(32)
	case frame.Int64:
		leaf = parquet.Int(64)
	case frame.UInt8:
		leaf = parquet.Uint(8)
	case frame.UInt16:
		leaf = parquet.Uint(16)
	case frame.UInt32:
		leaf = parquet.Uint(32)
	case frame.UInt64:
		leaf = parquet.Uint(64)
	case frame.Float32:
		leaf = parquet.Leaf(parquet.FloatType)
	case frame.Float64:
		leaf = parquet.Leaf(parquet.DoubleType)
	case frame.Boolean:
		leaf = parquet.Leaf(parquet.BooleanType)
	default:
		leaf = parquet.String()
	}
	return parquet.Optional(leaf)
}

// Write encodes df to w
func (p *ParquetWriter) Write(df *frame.DataFrame, w io.Writer) error {
	group := parquet.Group{}
	for _, f := range df.Schema() {
		group[f.Name] = parquetNode(f.DType)
	}
	schema := parquet.NewSchema("colframe", group)

	meta, err := reader.EncodeSchema(df.Schema())
	if err != nil {
		return codecErr(err, "write parquet", "failed to encode schema metadata")
	}

	// group fields are sorted by name, so leaf indices differ from frame order
	leafIndex := make([]int, df.Width())
	for i, name := range df.Columns() {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return frame.NewError(frame.KindCodec, "write parquet", "column %q missing from schema", name)
		}
		leafIndex[i] = leaf.ColumnIndex
	}

	pw := parquet.NewWriter(w, schema,
		parquet.Compression(p.codec),
		parquet.KeyValueMetadata(reader.SchemaMetadataKey, meta),
	)

	values := columnValues(df)
	dtypes := df.DTypes()
	batch := p.opts.RowGroupSize
	if batch <= 0 {
		batch = df.Height()
	}
	rows := make([]parquet.Row, 0, min(batch, 1024))
	for start := 0; start < df.Height(); start += batch {
		end := min(start+batch, df.Height())
		for row := start; row < end; row++ {
			r := make(parquet.Row, len(values))
			for i, col := range values {
				r[leafIndex[i]] = parquetValue(col[row], dtypes[i], leafIndex[i])
			}
			rows = append(rows, r)
			if len(rows) == cap(rows) {
				if _, err := pw.WriteRows(rows); err != nil {
					return codecErr(err, "write parquet", "failed to write rows")
				}
				rows = rows[:0]
			}
		}
		if len(rows) > 0 {
			if _, err := pw.WriteRows(rows); err != nil {
				return codecErr(err, "write parquet", "failed to write rows")
			}
			rows = rows[:0]
		}
		if end < df.Height() {
			if err := pw.Flush(); err != nil {
				return codecErr(err, "write parquet", "failed to flush row group")
			}
		}
	}
	if err := pw.Close(); err != nil {
		return codecErr(err, "write parquet", "failed to close writer")
	}
	logging.Named("output").Debug("encoded parquet",
		zap.Int("rows", df.Height()),
		zap.String("compression", p.codec.String()))
	countRows(Parquet, df)
	return nil
}

// parquetValue builds the leaf value at column index col. Present values
// have definition level 1, nulls level 0.
func parquetValue(v interface{}, dtype frame.DType, col int) parquet.Value {
	var pv parquet.Value
	switch x := v.(type) {
	case nil:
		return parquet.NullValue().Level(0, 0, col)
	case int64:
		if dtype == frame.Int64 {
			pv = parquet.Int64Value(x)
		} else {
			pv = parquet.Int32Value(int32(x))
		}
	case uint64:
		if dtype == frame.UInt64 {
			pv = parquet.Int64Value(int64(x))
		} else {
			pv = parquet.Int32Value(int32(uint32(x)))
		}
	case float64:
		if dtype == frame.Float32 {
			pv = parquet.FloatValue(float32(x))
		} else {
			pv = parquet.DoubleValue(x)
		}
	case bool:
		pv = parquet.BooleanValue(x)
	case string:
		pv = parquet.ByteArrayValue([]byte(x))
	}
	return pv.Level(0, 1, col)
}
