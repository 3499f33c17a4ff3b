package reader

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// ParquetReader decodes flat Parquet files. Optional leaves become
// nullable columns; nested and repeated columns are rejected.
type ParquetReader struct{}

// Read decodes r. Regular files are read in place; other streams are
// buffered in memory because the footer sits at the end.
func (p *ParquetReader) Read(r io.Reader) (*frame.DataFrame, error) {
	ra, size, err := readerAt(r)
	if err != nil {
		return nil, codecErr(err, "read parquet", "failed to buffer input")
	}
	f, err := parquet.OpenFile(ra, size)
	if err != nil {
		return nil, codecErr(err, "read parquet", "failed to open parquet file")
	}
	return readParquetFile(f)
}

func readerAt(r io.Reader) (io.ReaderAt, int64, error) {
	if f, ok := r.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
			return f, st.Size(), nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}

func readParquetFile(f *parquet.File) (*frame.DataFrame, error) {
	leaves, err := parquetLeaves(f)
	if err != nil {
		return nil, err
	}

	builders := make([]*frame.Builder, len(f.Schema().Columns()))
	for _, l := range leaves {
		builders[l.index] = frame.NewBuilder(l.name, l.dtype, int(f.NumRows()))
	}

	buf := make([]parquet.Row, 256)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, buf, builders, leaves); err != nil {
			return nil, err
		}
	}

	cols := make([]*frame.Column, len(leaves))
	for i, l := range leaves {
		cols[i] = builders[l.index].Finish()
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	logging.Named("reader").Debug("decoded parquet",
		zap.Int("row_groups", len(f.RowGroups())),
		zap.Int("rows", df.Height()))
	countRows(Parquet, df)
	return df, nil
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, builders []*frame.Builder, leaves []parquetLeaf) error {
	dtypes := make([]frame.DType, len(builders))
	for _, l := range leaves {
		dtypes[l.index] = l.dtype
	}

	rows := rg.Rows()
	defer func() { _ = rows.Close() }()
	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(builders) || builders[c] == nil {
					continue
				}
				builders[c].Append(parquetScalar(v, dtypes[c]))
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return codecErr(err, "read parquet", "failed to read rows")
		}
	}
}

// parquetScalar converts one leaf value. Unsigned logical types are stored
// in signed physical columns and reinterpreted here.
func parquetScalar(v parquet.Value, dtype frame.DType) frame.Scalar {
	if v.IsNull() {
		return frame.NullValue
	}
	switch v.Kind() {
	case parquet.Boolean:
		return frame.Bool(v.Boolean())
	case parquet.Int32:
		if dtype.IsUnsigned() {
			return frame.UInt(uint64(uint32(v.Int32())))
		}
		return frame.Int(int64(v.Int32()))
	case parquet.Int64:
		if dtype.IsUnsigned() {
			return frame.UInt(uint64(v.Int64()))
		}
		return frame.Int(v.Int64())
	case parquet.Float:
		return frame.Float(float64(v.Float()))
	case parquet.Double:
		return frame.Float(v.Double())
	default:
		return frame.Str(string(v.ByteArray()))
	}
}
