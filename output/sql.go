package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// SQLOptions configures SQL table writes
type SQLOptions struct {
	// Replace drops an existing table of the same name first
	Replace bool
	// BatchSize is the number of rows per insert statement; zero means 500
	BatchSize int
}

// SQL creates table in db and inserts every row of df in one transaction.
// Integer columns become INTEGER, floats REAL, booleans BOOLEAN and the
// rest TEXT. Identifiers are double-quoted, and placeholders use "?".
func SQL(ctx context.Context, db *sql.DB, table string, df *frame.DataFrame, opts SQLOptions) (err error) {
	if table == "" {
		return frame.NewError(frame.KindArgument, "write sql", "table name must not be empty")
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 500
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return codecErr(err, "write sql", "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if opts.Replace {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return codecErr(err, "write sql", "failed to drop %s", table)
		}
	}
	if _, err = tx.ExecContext(ctx, createTable(table, df.Schema())); err != nil {
		return codecErr(err, "write sql", "failed to create %s", table)
	}

	values := columnValues(df)
	for start := 0; start < df.Height(); start += batch {
		end := min(start+batch, df.Height())
		stmt, args := insertRows(table, df.Columns(), values, start, end)
		if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
			return codecErr(err, "write sql", "failed to insert rows %d..%d", start, end)
		}
	}
	if err = tx.Commit(); err != nil {
		return codecErr(err, "write sql", "failed to commit")
	}
	logging.Named("output").Debug("wrote sql table",
		zap.String("table", table),
		zap.Int("rows", df.Height()))
	countRows("sql", df)
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(d frame.DType) string {
	switch {
	case d == frame.Boolean:
		return "BOOLEAN"
	case d.IsInteger():
		return "INTEGER"
	case d.IsFloat():
		return "REAL"
	}
	return "TEXT"
}

func createTable(table string, schema frame.Schema) string {
	defs := make([]string, len(schema))
	for i, f := range schema {
		defs[i] = quoteIdent(f.Name) + " " + sqlType(f.DType)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

// insertRows builds one multi-row insert for rows [start, end)
func insertRows(table string, names []string, values [][]interface{}, start, end int) (string, []interface{}) {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = quoteIdent(n)
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(cols, ", "))
	args := make([]interface{}, 0, (end-start)*len(names))
	for r := start; r < end; r++ {
		if r > start {
			sb.WriteString(", ")
		}
		sb.WriteString(row)
		for _, col := range values {
			args = append(args, sqlArg(col[r]))
		}
	}
	return sb.String(), args
}

// sqlArg converts host values to driver.Value kinds
func sqlArg(v interface{}) interface{} {
	if u, ok := v.(uint64); ok {
		if u > 1<<63-1 {
			return fmt.Sprint(u)
		}
		return int64(u)
	}
	return v
}
