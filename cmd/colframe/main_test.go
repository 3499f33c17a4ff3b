package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "city,sales\nNYC,10\nLA,5\nNYC,20\n"

// writeTestFile creates name under a temporary directory with content
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command with args and returns stdout and stderr
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestQueryCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeTestFile(t, dir, "sales.csv", salesCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "file argument",
			args: []string{"query", data, "SELECT city, sum(sales) AS total GROUP BY city ORDER BY total DESC", "-f", "csv"},
			want: "city,total\nNYC,30\nLA,5\n",
		},
		{
			name: "from clause",
			args: []string{"query", "SELECT * FROM " + data + " WHERE sales > 5", "--format", "ndjson"},
			want: "{\"city\":\"NYC\",\"sales\":10}\n{\"city\":\"NYC\",\"sales\":20}\n",
		},
		{
			name: "limit flag",
			args: []string{"query", data, "SELECT sales ORDER BY sales", "--limit", "2", "-f", "csv"},
			want: "sales\n5\n10\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestQueryCommandTableOutput(t *testing.T) {
	data := writeTestFile(t, t.TempDir(), "sales.csv", salesCSV)

	stdout, _, err := run(t, "query", data, "SELECT *")
	require.NoError(t, err)
	assert.Contains(t, stdout, "city (String)")
	assert.Contains(t, stdout, "sales (Int64)")
	assert.Contains(t, stdout, "3 rows")
}

func TestQueryCommandErrors(t *testing.T) {
	data := writeTestFile(t, t.TempDir(), "sales.csv", salesCSV)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"no source", []string{"query", "SELECT 1"}, errNoSource.Error()},
		{"syntax", []string{"query", data, "SELEC *"}, "failed to parse query"},
		{"negative limit", []string{"query", data, "SELECT *", "--limit", "-1"}, "--limit"},
		{"unknown column", []string{"query", data, "SELECT nope"}, "nope"},
		{"bad format", []string{"query", data, "SELECT *", "-f", "xml"}, "xml"},
		{"bad input format", []string{"query", data, "SELECT *", "--input-format", "xls"}, "xls"},
		{"too many args", []string{"query", data, "SELECT *", "extra"}, "accepts between 1 and 2 arg(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	data := writeTestFile(t, dir, "sales.csv", "city;sales\nNYC;10\nLA;5\n")
	cfg := writeTestFile(t, dir, "colframe.yaml", "csv:\n  separator: \";\"\noutput:\n  format: csv\n")

	stdout, _, err := run(t, "--config", cfg, "query", data, "SELECT sales * 2 AS twice")
	require.NoError(t, err)
	assert.Equal(t, "twice\n20\n10\n", stdout)

	_, _, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "query", data, "SELECT *")
	assert.Error(t, err)

	_, _, err = run(t, "--log-level", "loud", "query", data, "SELECT *")
	assert.Error(t, err)
}

func TestConvertAndSchema(t *testing.T) {
	dir := t.TempDir()
	data := writeTestFile(t, dir, "sales.csv", salesCSV)

	for _, name := range []string{"sales.parquet", "sales.arrow.gz", "sales.avro", "sales.ndjson.zst"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(dir, name)
			_, _, err := run(t, "convert", data, out, "--compression", "zstd")
			require.NoError(t, err)

			stdout, _, err := run(t, "query", out, "SELECT city, sales", "-f", "csv")
			require.NoError(t, err)
			assert.Equal(t, salesCSV, stdout)
		})
	}

	t.Run("parquet footer schema", func(t *testing.T) {
		stdout, _, err := run(t, "schema", filepath.Join(dir, "sales.parquet"), "-f", "csv")
		require.NoError(t, err)
		assert.Contains(t, stdout, "name,dtype,physical_type,logical_type,optional,repeated\n")
		assert.Contains(t, stdout, "city,String,")
		assert.Contains(t, stdout, "sales,Int64,")
	})

	t.Run("loaded schema", func(t *testing.T) {
		stdout, _, err := run(t, "schema", data, "-f", "csv")
		require.NoError(t, err)
		assert.Equal(t, "name,dtype\ncity,String\nsales,Int64\n", stdout)
	})

	t.Run("bad compression", func(t *testing.T) {
		_, _, err := run(t, "convert", data, filepath.Join(dir, "bad.parquet"), "--compression", "rle")
		assert.Error(t, err)
	})
}

func TestSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	data := writeTestFile(t, dir, "sales.csv", salesCSV)
	db := filepath.Join(dir, "sales.db")

	_, _, err := run(t, "convert", data, db, "--table", "sales")
	require.NoError(t, err)

	stdout, _, err := run(t, "sql", db, "SELECT city, sales FROM sales ORDER BY sales", "-f", "csv")
	require.NoError(t, err)
	assert.Equal(t, "city,sales\nLA,5\nNYC,10\nNYC,20\n", stdout)

	_, _, err = run(t, "convert", data, db, "--table", "sales")
	assert.Error(t, err, "table already exists")

	_, _, err = run(t, "convert", data, db, "--table", "sales", "--replace")
	assert.NoError(t, err)
}

func TestExplainCommand(t *testing.T) {
	data := writeTestFile(t, t.TempDir(), "sales.csv", salesCSV)

	stdout, _, err := run(t, "explain", data, "SELECT city WHERE sales > 5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FILTER")
	assert.Contains(t, stdout, "SCAN "+data)

	_, _, err = run(t, "explain", data, "SELECT city WHERE sales > 5", "--optimized")
	assert.NoError(t, err)
}

func TestMetricsFlag(t *testing.T) {
	data := writeTestFile(t, t.TempDir(), "sales.csv", salesCSV)

	_, stderr, err := run(t, "--metrics", "query", data, "SELECT *", "-f", "csv")
	require.NoError(t, err)
	assert.Contains(t, stderr, `colframe_rows_read_total{format="csv"}`)
	assert.Contains(t, stderr, `colframe_collect_total{outcome="ok"}`)
}
