// Package query parses a small SQL dialect into lazy frame plans.
//
// The dialect covers what a single-table pipeline needs:
//   - SELECT with expressions, aliases, DISTINCT and count(*)
//   - an optional FROM naming a file path or glob
//   - WHERE with comparisons, arithmetic, IS [NOT] NULL, BETWEEN and
//     AND/OR/XOR/NOT
//   - GROUP BY with aggregate functions, and HAVING on the output columns
//   - ORDER BY with ASC/DESC and NULLS FIRST/LAST
//   - LIMIT and OFFSET
//
// Expressions compile directly to frame expressions, so every operator
// follows the engine's typing and null rules.
//
// # Basic Usage
//
//	stmt, err := query.Parse("SELECT city, mean(temp) AS avg_temp FROM 'weather.csv' GROUP BY city")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	lf, err := stmt.Apply(reader.Scan(stmt.From, reader.Options{}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	df, err := lf.Collect()
//
// Standalone expressions parse with ParseExpr:
//
//	pred, err := query.ParseExpr("age >= 18 AND name IS NOT NULL")
//
// # Identifiers and Literals
//
// Keywords are case-insensitive. Column names that are not plain words go
// in backticks. Single or double quotes delimit strings. After FROM an
// unquoted path runs to the next whitespace.
//
// # Functions
//
// Aggregations: sum, mean (avg), median, min, max, count, n_unique, first,
// last, len, product, null_count, nan_min, nan_max, any, all, has_nulls,
// std(x[, ddof]), var(x[, ddof]) and quantile(x, q).
//
// Element-wise: is_null, is_not_null, is_nan, is_not_nan, neg,
// fill_null(x, v) (coalesce), fill_nan(x, v), pow(x, y), mod(x, y) and
// cast(x AS dtype) / strict_cast(x AS dtype).
//
// Operators by increasing precedence: OR, XOR, AND, NOT, comparisons,
// + and -, * / // %, unary minus, ^.
//
// # Limits
//
// Parse and ParseExpr apply DefaultLimits. Oversized input fails with a
// *LimitError that wraps ErrLimit; use a Limits value to tighten or lift
// the bounds:
//
//	stmt, err := query.Limits{Depth: 16, NameBytes: 64}.Parse(text)
package query
