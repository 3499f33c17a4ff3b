package reader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/frame"
	"github.com/vegasq/colframe/internal/logging"
)

// SQL runs query on db and loads the result set into a frame. Column dtypes
// follow the driver values: integers load as Int64, a mix of integers and
// reals as Float64, booleans as Boolean and everything else as String.
// Columns with no non-null value take their dtype from the declared
// database type.
func SQL(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*frame.DataFrame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, codecErr(err, "read sql", "query failed")
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, codecErr(err, "read sql", "failed to read column types")
	}
	values := make([][]interface{}, len(types))
	dest := make([]interface{}, len(types))
	for rows.Next() {
		raw := make([]interface{}, len(types))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, codecErr(err, "read sql", "failed to scan row")
		}
		for i, v := range raw {
			values[i] = append(values[i], sqlValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, codecErr(err, "read sql", "failed to iterate rows")
	}

	cols := make([]*frame.Column, len(types))
	for i, ct := range types {
		dtype := sqlDType(values[i], ct.DatabaseTypeName())
		col, err := frame.NewTypedColumn(ct.Name(), dtype, values[i])
		if err != nil {
			return nil, codecErr(err, "read sql", "column %q", ct.Name())
		}
		cols[i] = col
	}
	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	logging.Named("reader").Debug("loaded sql result",
		zap.Int("rows", df.Height()),
		zap.Int("columns", df.Width()))
	countRows("sql", df)
	return df, nil
}

// sqlValue normalizes driver values to the host kinds frame accepts.
func sqlValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case nil, int64, float64, bool, string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func sqlDType(values []interface{}, declared string) frame.DType {
	dtype := frame.Null
	for _, v := range values {
		var d frame.DType
		switch v.(type) {
		case nil:
			continue
		case int64:
			d = frame.Int64
		case float64:
			d = frame.Float64
		case bool:
			d = frame.Boolean
		default:
			return frame.String
		}
		switch {
		case dtype == frame.Null || dtype == d:
			dtype = d
		case dtype.IsNumeric() && d.IsNumeric():
			dtype = frame.Float64
		default:
			return frame.String
		}
	}
	if dtype != frame.Null {
		return dtype
	}
	switch t := strings.ToUpper(declared); {
	case strings.Contains(t, "INT"):
		return frame.Int64
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return frame.Float64
	case strings.Contains(t, "BOOL"):
		return frame.Boolean
	case t == "":
		return frame.Null
	}
	return frame.String
}
