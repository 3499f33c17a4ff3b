package output

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/reader"
)

func typedColumn(t *testing.T, name string, dtype frame.DType, values ...interface{}) *frame.Column {
	t.Helper()
	c, err := frame.NewTypedColumn(name, dtype, values)
	require.NoError(t, err)
	return c
}

// sampleFrame covers every dtype that the binary formats preserve exactly.
func sampleFrame(t *testing.T) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(
		typedColumn(t, "id", frame.Int64, 1, 2, nil),
		typedColumn(t, "score", frame.Float64, 1.5, nil, -2.25),
		typedColumn(t, "name", frame.String, "a", "b,c", nil),
		typedColumn(t, "ok", frame.Boolean, true, false, nil),
		typedColumn(t, "small", frame.Int8, 1, -2, 3),
		typedColumn(t, "count", frame.UInt32, 1, 2, nil),
		typedColumn(t, "ratio", frame.Float32, 0.5, 1.25, nil),
	)
	require.NoError(t, err)
	return df
}

func roundTrip(t *testing.T, df *frame.DataFrame, format Format, opts Options) *frame.DataFrame {
	t.Helper()
	w, err := New(format, opts)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Write(df, &buf))

	r, err := reader.New(reader.Format(format), reader.Options{})
	require.NoError(t, err)
	got, err := r.Read(&buf)
	require.NoError(t, err)
	return got
}

func assertFramesEqual(t *testing.T, want, got *frame.DataFrame) {
	t.Helper()
	require.Equal(t, want.Schema(), got.Schema())
	for i, c := range want.Series() {
		assert.Equal(t, c.Values(), got.Series()[i].Values(), "column %s", c.Name())
	}
	assert.True(t, want.Equals(got))
}

func TestExactRoundTrip(t *testing.T) {
	tests := []struct {
		format Format
		opts   Options
	}{
		{JSON, Options{}},
		{Parquet, Options{}},
		{Parquet, Options{Parquet: ParquetOptions{Compression: "zstd", RowGroupSize: 2}}},
		{Arrow, Options{}},
		{Arrow, Options{Arrow: ArrowOptions{BatchSize: 2}}},
		{Avro, Options{}},
		{Avro, Options{Avro: AvroOptions{Compression: "deflate"}}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			df := sampleFrame(t)
			assertFramesEqual(t, df, roundTrip(t, df, tt.format, tt.opts))
		})
	}
}

func TestAvroDTypeAttribute(t *testing.T) {
	df, err := frame.New(typedColumn(t, "small", frame.Int8, 1, nil))
	require.NoError(t, err)
	w, err := NewAvroWriter(AvroOptions{})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Write(df, &buf))

	ocf, err := goavro.NewOCFReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	var schema struct {
		Fields []map[string]interface{} `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(ocf.Codec().Schema()), &schema))
	require.Len(t, schema.Fields, 1)
	assert.Equal(t, "Int8", schema.Fields[0][reader.AvroDTypeAttribute])

	got, err := (&reader.AvroReader{}).Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, df.Schema(), got.Schema())
}

func TestEmptyFrameRoundTrip(t *testing.T) {
	df, err := frame.New(
		typedColumn(t, "id", frame.Int64),
		typedColumn(t, "name", frame.String),
	)
	require.NoError(t, err)
	for _, format := range []Format{JSON, Parquet, Arrow, Avro} {
		t.Run(string(format), func(t *testing.T) {
			got := roundTrip(t, df, format, Options{})
			assert.Equal(t, df.Schema(), got.Schema())
			assert.Equal(t, 0, got.Height())
		})
	}
}

func TestCSVRoundTrip(t *testing.T) {
	df, err := frame.New(
		typedColumn(t, "id", frame.Int64, 1, 2, nil),
		typedColumn(t, "score", frame.Float64, 1.0, nil, -2.25),
		typedColumn(t, "name", frame.String, "a", "b,c", nil),
		typedColumn(t, "ok", frame.Boolean, true, false, nil),
	)
	require.NoError(t, err)
	assertFramesEqual(t, df, roundTrip(t, df, CSV, Options{}))
}

func TestNDJSONRoundTrip(t *testing.T) {
	df, err := frame.New(
		typedColumn(t, "a", frame.Int64, 1, nil, 3),
		typedColumn(t, "b", frame.String, "x", "y", nil),
		typedColumn(t, "c", frame.Float64, 1.5, 2.5, nil),
	)
	require.NoError(t, err)
	assertFramesEqual(t, df, roundTrip(t, df, NDJSON, Options{}))
}

func TestNDJSONOutput(t *testing.T) {
	df, err := frame.New(
		typedColumn(t, "z", frame.Int64, 1),
		typedColumn(t, "a", frame.Float64, 0.5),
	)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, (&NDJSONWriter{}).Write(df, &buf))
	assert.Equal(t, "{\"z\":1,\"a\":0.5}\n", buf.String())
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		opts   Options
	}{
		{"unknown format", Format("xlsx"), Options{}},
		{"csv separator", CSV, Options{CSV: CSVOptions{Separator: '\n'}}},
		{"parquet codec", Parquet, Options{Parquet: ParquetOptions{Compression: "rar"}}},
		{"avro codec", Avro, Options{Avro: AvroOptions{Compression: "zstd"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.format, tt.opts)
			require.Error(t, err)
			assert.True(t, frame.IsKind(err, frame.KindArgument))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Table")
	require.NoError(t, err)
	assert.Equal(t, Table, f)

	f, err = ParseFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, NDJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteFileCompressed(t *testing.T) {
	dir := t.TempDir()
	df := sampleFrame(t)
	for _, name := range []string{"out.parquet", "out.json.gz", "out.arrow.zst", "out.avro.lz4", "out.ndjson.br"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(df, path, Options{}))

			got, err := reader.ReadFile(path, reader.Options{})
			require.NoError(t, err)
			assert.Equal(t, df.Height(), got.Height())
			assert.Equal(t, df.Width(), got.Width())
		})
	}
}

func TestWriteFileUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xyz")
	err := WriteFile(sampleFrame(t), path, Options{})
	require.Error(t, err)

	require.NoError(t, WriteFile(sampleFrame(t), path, Options{Format: CSV}))
}

func TestSQLRoundTrip(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	df, err := frame.New(
		typedColumn(t, "id", frame.Int64, 1, 2, nil),
		typedColumn(t, "score", frame.Float64, 1.5, nil, -2.25),
		typedColumn(t, "my name", frame.String, "a", `quote"d`, nil),
	)
	require.NoError(t, err)

	require.NoError(t, SQL(ctx, db, "results", df, SQLOptions{BatchSize: 2}))
	got, err := reader.SQL(ctx, db, `SELECT * FROM results`)
	require.NoError(t, err)
	assertFramesEqual(t, df, got)

	// the table exists now
	require.Error(t, SQL(ctx, db, "results", df, SQLOptions{}))
	require.NoError(t, SQL(ctx, db, "results", df.Head(1), SQLOptions{Replace: true}))
	got, err = reader.SQL(ctx, db, `SELECT count(*) AS n FROM results`)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1)}, got.Series()[0].Values())
}
