package frame

import (
	"math"
	"slices"
	"strings"
)

// Column is a named, typed, null-aware immutable sequence of values.
//
// Columns share their storage: slicing, renaming and cloning never copy the
// underlying buffer, and no operation writes to a buffer once built.
type Column struct {
	name  string
	dtype DType
	buf   *buffer
}

// NewColumn builds a column from untyped host values. The dtype is inferred
// from the first non-null value; later values of a different kind are stored
// as null rather than failing the column. An all-null or empty input yields a
// Null column.
func NewColumn(name string, values []interface{}) (*Column, error) {
	dtype := Null
	for i, v := range values {
		if v == nil {
			continue
		}
		s, err := ScalarOf(v)
		if err != nil {
			return nil, WrapError(err, KindType, "new column", "column %q value %d", name, i)
		}
		if s.IsNull() {
			continue
		}
		dtype = s.dtype
		break
	}
	b := NewBuilder(name, dtype, len(values))
	for _, v := range values {
		s, err := ScalarOf(v)
		if err != nil || s.IsNull() || s.dtype.physical() != dtype.physical() {
			b.AppendNull()
			continue
		}
		b.Append(s)
	}
	return b.Finish(), nil
}

// NewTypedColumn builds a column of an explicit dtype. Every value must be
// convertible to dtype.
func NewTypedColumn(name string, dtype DType, values []interface{}) (*Column, error) {
	b := NewBuilder(name, dtype, len(values))
	for i, v := range values {
		if err := b.AppendValue(v); err != nil {
			return nil, WrapError(err, KindType, "new column", "column %q value %d does not fit %s", name, i, dtype)
		}
	}
	return b.Finish(), nil
}

// Int64s builds a non-null Int64 column
func Int64s(name string, values []int64) *Column {
	return &Column{name: name, dtype: Int64, buf: &buffer{ints: slices.Clone(values), n: len(values)}}
}

// Float64s builds a non-null Float64 column
func Float64s(name string, values []float64) *Column {
	return &Column{name: name, dtype: Float64, buf: &buffer{floats: slices.Clone(values), n: len(values)}}
}

// Strings builds a non-null String column
func Strings(name string, values []string) *Column {
	return &Column{name: name, dtype: String, buf: &buffer{strs: slices.Clone(values), n: len(values)}}
}

// Bools builds a non-null Boolean column
func Bools(name string, values []bool) *Column {
	return &Column{name: name, dtype: Boolean, buf: &buffer{bools: slices.Clone(values), n: len(values)}}
}

// Nulls builds a column of n nulls with the given dtype
func Nulls(name string, dtype DType, n int) *Column {
	b := NewBuilder(name, dtype, n)
	for i := 0; i < n; i++ {
		b.AppendNull()
	}
	return b.Finish()
}

// Repeat builds a column holding s n times, typed as dtype.
func Repeat(name string, dtype DType, s Scalar, n int) *Column {
	b := NewBuilder(name, dtype, n)
	for i := 0; i < n; i++ {
		b.Append(s)
	}
	return b.Finish()
}

// Name returns the column name
func (c *Column) Name() string { return c.name }

// DType returns the column dtype
func (c *Column) DType() DType { return c.dtype }

// Len returns the number of values
func (c *Column) Len() int { return c.buf.n }

// Rename changes the column's name tag in place. Only metadata changes; the
// values are untouched.
func (c *Column) Rename(name string) { c.name = name }

// Alias returns a shallow copy of the column under a new name.
func (c *Column) Alias(name string) *Column {
	return &Column{name: name, dtype: c.dtype, buf: c.buf}
}

// at returns the value at i without bounds checking.
func (c *Column) at(i int) Scalar {
	if c.dtype == Null || !c.buf.isValid(i) {
		return NullValue
	}
	switch c.dtype.physical() {
	case physInt:
		return Scalar{dtype: c.dtype, i: c.buf.ints[i]}
	case physUint:
		return Scalar{dtype: c.dtype, u: c.buf.uints[i]}
	case physFloat:
		return Scalar{dtype: c.dtype, f: c.buf.floats[i]}
	case physBool:
		return Scalar{dtype: c.dtype, b: c.buf.bools[i]}
	default:
		return Scalar{dtype: c.dtype, s: c.buf.strs[i]}
	}
}

func (c *Column) isNullAt(i int) bool {
	return c.dtype == Null || !c.buf.isValid(i)
}

// Get returns the value at index i
func (c *Column) Get(i int) (Scalar, error) {
	if i < 0 || i >= c.Len() {
		return NullValue, boundsErr("get", i, c.Len())
	}
	return c.at(i), nil
}

// Item returns the only value of a length-1 column
func (c *Column) Item() (Scalar, error) {
	if c.Len() != 1 {
		return NullValue, NewError(KindSchema, "item", "column %q must have exactly one value, got %d", c.name, c.Len())
	}
	return c.at(0), nil
}

// First returns the first value, or null for an empty column
func (c *Column) First() Scalar {
	if c.Len() == 0 {
		return NullValue
	}
	return c.at(0)
}

// Last returns the last value, or null for an empty column
func (c *Column) Last() Scalar {
	if c.Len() == 0 {
		return NullValue
	}
	return c.at(c.Len() - 1)
}

// Values exports the column as host values (int64, uint64, float64, string, bool or nil).
func (c *Column) Values() []interface{} {
	out := make([]interface{}, c.Len())
	for i := range out {
		out[i] = c.at(i).Value()
	}
	return out
}

// normalizeSlice resolves a possibly negative offset and clamps length.
func normalizeSlice(offset, length, n int) (int, int) {
	if offset < 0 {
		offset += n
		if offset < 0 {
			offset = 0
		}
	}
	if offset > n {
		offset = n
	}
	if length < 0 || offset+length > n {
		length = n - offset
	}
	return offset, length
}

// Slice returns a zero-copy view of length values starting at offset. A
// negative offset counts from the end; length is clamped to the column.
func (c *Column) Slice(offset, length int) *Column {
	offset, length = normalizeSlice(offset, length, c.Len())
	return &Column{name: c.name, dtype: c.dtype, buf: c.buf.slice(offset, length)}
}

// Head returns the first n values
func (c *Column) Head(n int) *Column { return c.Slice(0, max(n, 0)) }

// Tail returns the last n values
func (c *Column) Tail(n int) *Column {
	n = min(max(n, 0), c.Len())
	return c.Slice(c.Len()-n, n)
}

// take gathers values by index; a negative index produces null.
func (c *Column) take(indices []int) *Column {
	b := NewBuilder(c.name, c.dtype, len(indices))
	for _, i := range indices {
		if i < 0 {
			b.AppendNull()
			continue
		}
		b.Append(c.at(i))
	}
	return b.Finish()
}

// filter keeps the rows where mask is true.
func (c *Column) filter(mask []bool) *Column {
	b := NewBuilder(c.name, c.dtype, c.Len())
	for i, keep := range mask {
		if keep {
			b.Append(c.at(i))
		}
	}
	return b.Finish()
}

// NullCount returns the number of null values
func (c *Column) NullCount() int {
	if c.dtype == Null {
		return c.Len()
	}
	if c.buf.valid == nil {
		return 0
	}
	n := 0
	for _, ok := range c.buf.valid {
		if !ok {
			n++
		}
	}
	return n
}

// IsNull returns a Boolean column that is true where the value is null
func (c *Column) IsNull() *Column {
	out := make([]bool, c.Len())
	for i := range out {
		out[i] = c.isNullAt(i)
	}
	return Bools(c.name, out)
}

// IsNotNull returns a Boolean column that is true where the value is present
func (c *Column) IsNotNull() *Column {
	out := make([]bool, c.Len())
	for i := range out {
		out[i] = !c.isNullAt(i)
	}
	return Bools(c.name, out)
}

// IsNaN marks NaN values of a float column; nulls stay null.
func (c *Column) IsNaN() (*Column, error) {
	return c.nanMask(false)
}

// IsNotNaN marks non-NaN values of a float column; nulls stay null.
func (c *Column) IsNotNaN() (*Column, error) {
	return c.nanMask(true)
}

func (c *Column) nanMask(negate bool) (*Column, error) {
	if !c.dtype.IsFloat() && c.dtype != Null {
		return nil, typeErr("is_nan", "column %q has dtype %s, expected a float dtype", c.name, c.dtype)
	}
	b := NewBuilder(c.name, Boolean, c.Len())
	for i := 0; i < c.Len(); i++ {
		if c.isNullAt(i) {
			b.AppendNull()
			continue
		}
		b.Append(Bool(math.IsNaN(c.buf.floats[i]) != negate))
	}
	return b.Finish(), nil
}

// argSort returns the stable permutation ordering the column.
func (c *Column) argSort(descending, nullsLast bool) []int {
	idx := make([]int, c.Len())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		an, bn := c.isNullAt(a), c.isNullAt(b)
		switch {
		case an && bn:
			return 0
		case an:
			if nullsLast {
				return 1
			}
			return -1
		case bn:
			if nullsLast {
				return -1
			}
			return 1
		}
		cmp, _ := compareScalars(c.at(a), c.at(b))
		if descending {
			return -cmp
		}
		return cmp
	})
	return idx
}

// Sort returns the column ordered by value
func (c *Column) Sort(descending, nullsLast bool) *Column {
	return c.take(c.argSort(descending, nullsLast))
}

// Reverse returns the column in reverse order
func (c *Column) Reverse() *Column {
	idx := make([]int, c.Len())
	for i := range idx {
		idx[i] = c.Len() - 1 - i
	}
	return c.take(idx)
}

// Unique returns the distinct values in order of first occurrence
func (c *Column) Unique() *Column {
	seen := make(map[string]struct{}, c.Len())
	var keep []int
	for i := 0; i < c.Len(); i++ {
		k := hashKey(c.at(i))
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	return c.take(keep)
}

// DropNulls returns the column without null values
func (c *Column) DropNulls() *Column {
	if c.NullCount() == 0 {
		return c
	}
	mask := make([]bool, c.Len())
	for i := range mask {
		mask[i] = !c.isNullAt(i)
	}
	return c.filter(mask)
}

// FillNullStrategy fills nulls with "forward", "backward", "mean" or "zero".
func (c *Column) FillNullStrategy(strategy string) (*Column, error) {
	n := c.Len()
	b := NewBuilder(c.name, c.dtype, n)
	switch strings.ToLower(strategy) {
	case "forward":
		prev := NullValue
		for i := 0; i < n; i++ {
			if v := c.at(i); !v.IsNull() {
				prev = v
			}
			b.Append(prev)
		}
	case "backward":
		vals := make([]Scalar, n)
		next := NullValue
		for i := n - 1; i >= 0; i-- {
			if v := c.at(i); !v.IsNull() {
				next = v
			}
			vals[i] = next
		}
		for _, v := range vals {
			b.Append(v)
		}
	case "mean", "zero":
		if !c.dtype.IsNumeric() {
			return nil, typeErr("fill_null", "strategy %q requires a numeric column, %q is %s", strategy, c.name, c.dtype)
		}
		fill := Float(0)
		if strings.ToLower(strategy) == "mean" {
			m, err := reduce(AggMean, c, reduceArgs{})
			if err != nil {
				return nil, err
			}
			fill = m
		}
		for i := 0; i < n; i++ {
			if c.isNullAt(i) {
				b.Append(fill)
			} else {
				b.Append(c.at(i))
			}
		}
	default:
		return nil, argErr("fill_null", "invalid fill strategy %q: use 'forward', 'backward', 'mean' or 'zero'", strategy)
	}
	return b.Finish(), nil
}

// Equals reports structural equality: same name, dtype and values including null positions.
func (c *Column) Equals(other *Column) bool {
	if c.name != other.name || c.dtype != other.dtype || c.Len() != other.Len() {
		return false
	}
	for i := 0; i < c.Len(); i++ {
		if !c.at(i).Equal(other.at(i)) {
			return false
		}
	}
	return true
}

func (c *Column) compareWith(op BinaryOp, v interface{}) (*Column, error) {
	rhs, err := ScalarOf(v)
	if err != nil {
		return nil, err
	}
	lit := Repeat("literal", rhs.dtype, rhs, 1)
	out, err := binaryKernel(op, c, lit)
	if err != nil {
		return nil, err
	}
	return out.Alias(c.name), nil
}

// Eq compares every value with v
func (c *Column) Eq(v interface{}) (*Column, error) { return c.compareWith(OpEq, v) }

// Ne compares every value with v
func (c *Column) Ne(v interface{}) (*Column, error) { return c.compareWith(OpNe, v) }

// Lt compares every value with v
func (c *Column) Lt(v interface{}) (*Column, error) { return c.compareWith(OpLt, v) }

// Le compares every value with v
func (c *Column) Le(v interface{}) (*Column, error) { return c.compareWith(OpLe, v) }

// Gt compares every value with v
func (c *Column) Gt(v interface{}) (*Column, error) { return c.compareWith(OpGt, v) }

// Ge compares every value with v
func (c *Column) Ge(v interface{}) (*Column, error) { return c.compareWith(OpGe, v) }

// Sum returns the sum of the column
func (c *Column) Sum() (Scalar, error) { return reduce(AggSum, c, reduceArgs{}) }

// Mean returns the arithmetic mean
func (c *Column) Mean() (Scalar, error) { return reduce(AggMean, c, reduceArgs{}) }

// Median returns the median
func (c *Column) Median() (Scalar, error) { return reduce(AggMedian, c, reduceArgs{}) }

// Min returns the smallest value
func (c *Column) Min() (Scalar, error) { return reduce(AggMin, c, reduceArgs{}) }

// Max returns the largest value
func (c *Column) Max() (Scalar, error) { return reduce(AggMax, c, reduceArgs{}) }

// Std returns the standard deviation with denominator n - ddof
func (c *Column) Std(ddof int) (Scalar, error) { return reduce(AggStd, c, reduceArgs{ddof: ddof}) }

// Var returns the variance with denominator n - ddof
func (c *Column) Var(ddof int) (Scalar, error) { return reduce(AggVar, c, reduceArgs{ddof: ddof}) }

// Product returns the product of the values
func (c *Column) Product() (Scalar, error) { return reduce(AggProduct, c, reduceArgs{}) }

// Quantile returns the nearest-rank quantile q in [0, 1]
func (c *Column) Quantile(q float64) (Scalar, error) {
	return reduce(AggQuantile, c, reduceArgs{quantile: q})
}

// Count returns the number of non-null values
func (c *Column) Count() int { return c.Len() - c.NullCount() }

// NUnique returns the number of distinct values, counting null once
func (c *Column) NUnique() int { return c.Unique().Len() }

// Any reports whether any value of a Boolean column is true
func (c *Column) Any() (bool, error) {
	s, err := reduce(AggAny, c, reduceArgs{})
	if err != nil {
		return false, err
	}
	v, _ := s.Bool()
	return v, nil
}

// All reports whether every non-null value of a Boolean column is true
func (c *Column) All() (bool, error) {
	s, err := reduce(AggAll, c, reduceArgs{})
	if err != nil {
		return false, err
	}
	v, _ := s.Bool()
	return v, nil
}
