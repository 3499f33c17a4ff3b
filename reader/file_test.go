package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/compress"
)

func writeTestFile(t *testing.T, path string, data []byte, alg compress.Algorithm) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()
	w, err := compress.NewWriter(f, alg)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		format  Format
		alg     compress.Algorithm
		wantErr bool
	}{
		{"data.csv", CSV, compress.None, false},
		{"data.CSV.GZ", CSV, compress.Gzip, false},
		{"events.ndjson.zst", NDJSON, compress.Zstd, false},
		{"events.jsonl", NDJSON, compress.None, false},
		{"table.pq", Parquet, compress.None, false},
		{"batch.arrows.lz4", Arrow, compress.LZ4, false},
		{"rows.avro", Avro, compress.None, false},
		{"notes.txt", "", compress.None, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, alg, err := DetectFormat(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.alg, alg)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" JSONL ")
	require.NoError(t, err)
	assert.Equal(t, NDJSON, f)

	_, err = ParseFormat("xlsx")
	require.Error(t, err)
	assert.True(t, frame.IsKind(err, frame.KindArgument))
}

func TestReadFileCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, alg := range []compress.Algorithm{compress.None, compress.Gzip, compress.Zstd, compress.LZ4, compress.Brotli} {
		t.Run(string(alg), func(t *testing.T) {
			name := "data.csv"
			switch alg {
			case compress.Gzip:
				name += ".gz"
			case compress.Zstd:
				name += ".zst"
			case compress.LZ4:
				name += ".lz4"
			case compress.Brotli:
				name += ".br"
			}
			path := filepath.Join(dir, name)
			writeTestFile(t, path, []byte("a,b\n1,x\n2,y\n"), alg)

			df, err := ReadFile(path, Options{})
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, df.Columns())
			assert.Equal(t, 2, df.Height())
		})
	}
}

func TestReadFileFormatOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	writeTestFile(t, path, []byte("a\n1\n"), compress.None)

	_, err := ReadFile(path, Options{})
	require.Error(t, err)

	df, err := ReadFile(path, Options{Format: CSV})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1)}, df.Series()[0].Values())
}

func TestReadFileGlob(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "a.csv"), []byte("v\n1\n2\n"), compress.None)
	writeTestFile(t, filepath.Join(dir, "b.csv"), []byte("v\n2.5\n"), compress.None)

	df, err := ReadFile(filepath.Join(dir, "*.csv"), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"v", FileColumn}, df.Columns())
	assert.Equal(t, []frame.DType{frame.Float64, frame.String}, df.DTypes())
	assert.Equal(t, []interface{}{1.0, 2.0, 2.5}, df.Series()[0].Values())
	assert.Equal(t, []interface{}{
		filepath.Join(dir, "a.csv"), filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv"),
	}, df.Series()[1].Values())
}

func TestReadFileGlobErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "*.csv"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no files match pattern")

	writeTestFile(t, filepath.Join(dir, "c.csv"), []byte("_file\nx\n"), compress.None)
	_, err = ReadFile(filepath.Join(dir, "*.csv"), Options{})
	require.Error(t, err)
	assert.True(t, frame.IsKind(err, frame.KindSchema))
}

func TestReadFileSingleHasNoFileColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.csv")
	writeTestFile(t, path, []byte("v\n1\n"), compress.None)

	df, err := ReadFile(path, Options{})
	require.NoError(t, err)
	assert.False(t, df.Has(FileColumn))
}

func TestFileSourceKeepsLoadedFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv.gz")
	writeTestFile(t, path, []byte("a,b\n1,x\n"), compress.Gzip)

	src := NewFileSource(path, Options{})
	schema, err := src.Schema()
	require.NoError(t, err)
	assert.Equal(t, frame.Schema{{Name: "a", DType: frame.Int64}, {Name: "b", DType: frame.String}}, schema)
	require.NotNil(t, src.loaded)

	df, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, df.Height())
	assert.Nil(t, src.loaded)
	assert.Equal(t, path, src.String())
}

func TestScanCollect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	writeTestFile(t, path, []byte("a,b\n1,x\n2,y\n3,z\n"), compress.None)

	df, err := Scan(path, Options{}).
		Filter(frame.Col("a").Gt(frame.Lit(1))).
		Select(frame.Col("b")).
		Collect()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"y", "z"}, df.Series()[0].Values())
}
