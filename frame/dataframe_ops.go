package frame

// eager starts a one-shot plan over the frame. Running DataFrame operators
// through the same plan nodes as LazyFrame keeps both surfaces identical.
func (df *DataFrame) eager() *LazyFrame {
	return df.Lazy().WithOptimizations(OptEager)
}

// Select evaluates exprs into a new frame
func (df *DataFrame) Select(exprs ...*Expr) (*DataFrame, error) {
	return df.eager().Select(exprs...).Collect()
}

// WithColumns adds or replaces columns
func (df *DataFrame) WithColumns(exprs ...*Expr) (*DataFrame, error) {
	return df.eager().WithColumns(exprs...).Collect()
}

// Filter keeps rows where pred is true
func (df *DataFrame) Filter(pred *Expr) (*DataFrame, error) {
	return df.eager().Filter(pred).Collect()
}

// Drop removes columns by name
func (df *DataFrame) Drop(names ...string) (*DataFrame, error) {
	return df.eager().Drop(names...).Collect()
}

// Rename renames columns positionally
func (df *DataFrame) Rename(oldNames, newNames []string) (*DataFrame, error) {
	return df.eager().Rename(oldNames, newNames).Collect()
}

// Sort orders rows by one column
func (df *DataFrame) Sort(by string, descending, nullsLast bool) (*DataFrame, error) {
	return df.eager().Sort(by, descending, nullsLast).Collect()
}

// SortBy orders rows by several key expressions
func (df *DataFrame) SortBy(by []*Expr, descending []bool, nullsLast bool) (*DataFrame, error) {
	return df.eager().SortBy(by, descending, nullsLast).Collect()
}

// Unique keeps distinct rows over subset (every column when empty)
func (df *DataFrame) Unique(subset []string, keep string) (*DataFrame, error) {
	return df.eager().Unique(subset, keep).Collect()
}

// DropNulls removes rows with a null in subset (every column when empty)
func (df *DataFrame) DropNulls(subset ...string) (*DataFrame, error) {
	return df.eager().DropNulls(subset...).Collect()
}

// FillNull replaces nulls with a value or expression
func (df *DataFrame) FillNull(value interface{}) (*DataFrame, error) {
	return df.eager().FillNull(value).Collect()
}

// FillNan replaces NaN in float columns with a value or expression
func (df *DataFrame) FillNan(value interface{}) (*DataFrame, error) {
	return df.eager().FillNan(value).Collect()
}

// Join combines with other on key expressions
func (df *DataFrame) Join(other *DataFrame, on []*Expr, how string) (*DataFrame, error) {
	return df.eager().Join(other.Lazy(), on, how).Collect()
}

// Explode validates columns; scalar dtypes explode to themselves
func (df *DataFrame) Explode(columns ...string) (*DataFrame, error) {
	return df.eager().Explode(columns...).Collect()
}

// Unpivot turns the on columns into variable/value rows next to index
func (df *DataFrame) Unpivot(on, index []string) (*DataFrame, error) {
	return df.eager().Unpivot(on, index).Collect()
}

// Cast converts the named columns
func (df *DataFrame) Cast(dtypes map[string]DType, strict bool) (*DataFrame, error) {
	return df.eager().Cast(dtypes, strict).Collect()
}

// WithRowIndex prepends a UInt32 row number column
func (df *DataFrame) WithRowIndex(name string, offset uint32) (*DataFrame, error) {
	return df.eager().WithRowIndex(name, offset).Collect()
}

// Reverse reverses the row order. A nil frame stays nil.
func (df *DataFrame) Reverse() *DataFrame {
	if df == nil {
		return nil
	}
	out, _ := (&reverseNode{}).exec(nil, df)
	return out
}

// GroupBy starts a grouped aggregation over the frame
func (df *DataFrame) GroupBy(keys ...*Expr) *GroupBy {
	return df.eager().GroupBy(keys...)
}

func (df *DataFrame) reduce(kind AggKind, args reduceArgs) (*DataFrame, error) {
	return df.eager().reduceAll(kind, args).Collect()
}

// Sum reduces every column to its sum
func (df *DataFrame) Sum() (*DataFrame, error) { return df.reduce(AggSum, reduceArgs{}) }

// Mean reduces every column to its mean
func (df *DataFrame) Mean() (*DataFrame, error) { return df.reduce(AggMean, reduceArgs{}) }

// Median reduces every column to its median
func (df *DataFrame) Median() (*DataFrame, error) { return df.reduce(AggMedian, reduceArgs{}) }

// Min reduces every column to its minimum
func (df *DataFrame) Min() (*DataFrame, error) { return df.reduce(AggMin, reduceArgs{}) }

// Max reduces every column to its maximum
func (df *DataFrame) Max() (*DataFrame, error) { return df.reduce(AggMax, reduceArgs{}) }

// Count reduces every column to its non-null count
func (df *DataFrame) Count() (*DataFrame, error) { return df.reduce(AggCount, reduceArgs{}) }

// NullCount reduces every column to its null count
func (df *DataFrame) NullCount() (*DataFrame, error) { return df.reduce(AggNullCount, reduceArgs{}) }

// Product reduces every column to its product
func (df *DataFrame) Product() (*DataFrame, error) { return df.reduce(AggProduct, reduceArgs{}) }

// Std reduces every column to its standard deviation with denominator n - ddof
func (df *DataFrame) Std(ddof int) (*DataFrame, error) {
	return df.reduce(AggStd, reduceArgs{ddof: ddof})
}

// Variance reduces every column to its variance with denominator n - ddof
func (df *DataFrame) Variance(ddof int) (*DataFrame, error) {
	return df.reduce(AggVar, reduceArgs{ddof: ddof})
}

// Quantile reduces every column to its nearest-rank quantile
func (df *DataFrame) Quantile(q float64) (*DataFrame, error) {
	return df.reduce(AggQuantile, reduceArgs{quantile: q})
}
