// Package frame is an in-memory columnar dataframe with a lazy query engine.
//
// A DataFrame is an ordered set of equal-length, uniquely named Columns.
// Columns share immutable buffers, so slicing and selecting never copy
// data. Every column has one DType and a validity mask for nulls.
//
// # Eager Use
//
//	df, err := frame.New(
//	    frame.Strings("city", []string{"NYC", "LA", "NYC"}),
//	    frame.Int64s("temp", []int64{10, 20, 30}),
//	)
//	head := df.Head(2)
//	out, err := df.GroupBy(frame.Col("city")).Agg(frame.Col("temp").Mean()).Collect()
//
// # Lazy Plans
//
// LazyFrame records operations as a plan that runs on Collect. Plans are
// validated against the schema before execution and rewritten by the
// optimizer (predicate pushdown, slice pushdown, projection and filter
// fusion) unless disabled with WithOptimizations.
//
//	lf := df.Lazy().
//	    Filter(frame.Col("temp").Gt(15)).
//	    Select(frame.Col("city"), frame.Col("temp").Mul(2).Alias("double"))
//	plan, _ := lf.Explain(true)
//	out, err := lf.Collect()
//
// # Expressions
//
// Expr values are immutable trees built from Col, Cols, All and Lit.
// Binary operators accept an *Expr or a host value, which is lifted to a
// literal. Nulls propagate through arithmetic and comparisons; aggregates
// skip them.
//
// # Errors
//
// Failures are *Error values tagged with a Kind (schema, type, bounds,
// execution, argument, codec); test them with IsKind or errors.As.
package frame
