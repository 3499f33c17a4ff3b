package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumnInference(t *testing.T) {
	tests := []struct {
		name   string
		values []interface{}
		dtype  DType
		want   []interface{}
	}{
		{
			name:   "integers",
			values: []interface{}{1, 2, 3},
			dtype:  Int64,
			want:   []interface{}{int64(1), int64(2), int64(3)},
		},
		{
			name:   "mismatched values become null",
			values: []interface{}{1, "x", 3, true},
			dtype:  Int64,
			want:   []interface{}{int64(1), nil, int64(3), nil},
		},
		{
			name:   "leading nulls are skipped",
			values: []interface{}{nil, "a", "b"},
			dtype:  String,
			want:   []interface{}{nil, "a", "b"},
		},
		{
			name:   "floats",
			values: []interface{}{1.5, 2, nil},
			dtype:  Float64,
			want:   []interface{}{1.5, nil, nil},
		},
		{
			name:   "all null",
			values: []interface{}{nil, nil},
			dtype:  Null,
			want:   []interface{}{nil, nil},
		},
		{
			name:   "empty",
			values: []interface{}{},
			dtype:  Null,
			want:   []interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewColumn("c", tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.dtype, c.DType())
			assert.Equal(t, len(tt.values), c.Len())
			assert.Equal(t, tt.want, c.Values())
		})
	}
}

func TestNewColumnUnsupportedType(t *testing.T) {
	_, err := NewColumn("c", []interface{}{struct{}{}})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindType))
}

func TestNewTypedColumn(t *testing.T) {
	c, err := NewTypedColumn("c", Int32, []interface{}{1, "2", nil, 3.9})
	require.NoError(t, err)
	assert.Equal(t, Int32, c.DType())
	assert.Equal(t, []interface{}{int64(1), int64(2), nil, int64(3)}, c.Values())

	_, err = NewTypedColumn("c", Int32, []interface{}{"abc"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindType))
}

func TestColumnGetBounds(t *testing.T) {
	c := Int64s("a", []int64{1, 2, 3})

	v, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, Int(3), v)

	_, err = c.Get(5)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBounds))
	assert.Contains(t, err.Error(), "index 5")
	assert.Contains(t, err.Error(), "length 3")

	_, err = c.Get(-1)
	assert.True(t, IsKind(err, KindBounds))
}

func TestColumnCastStringToInt(t *testing.T) {
	c := Strings("s", []string{"1", "abc", " 3 "})

	_, err := c.Cast(Int64, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindType))
	assert.Contains(t, err.Error(), `"abc"`)

	lenient, err := c.Cast(Int64, false)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), nil, int64(3)}, lenient.Values())
	assert.Equal(t, 1, lenient.NullCount())
}

func TestColumnCastNumeric(t *testing.T) {
	tests := []struct {
		name   string
		col    *Column
		target DType
		want   []interface{}
	}{
		{"float truncates", Float64s("f", []float64{2.9, -2.9}), Int64, []interface{}{int64(2), int64(-2)}},
		{"narrowing wraps", Int64s("i", []int64{300, -129}), Int8, []interface{}{int64(44), int64(127)}},
		{"int to float", Int64s("i", []int64{1}), Float64, []interface{}{1.0}},
		{"bool to int", Bools("b", []bool{true, false}), Int64, []interface{}{int64(1), int64(0)}},
		{"int to bool", Int64s("i", []int64{0, 5}), Boolean, []interface{}{false, true}},
		{"int to string", Int64s("i", []int64{42}), String, []interface{}{"42"}},
		{"nan to int is null", Float64s("f", []float64{math.NaN()}), Int64, []interface{}{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.col.Cast(tt.target, false)
			require.NoError(t, err)
			assert.Equal(t, tt.target, out.DType())
			assert.Equal(t, tt.want, out.Values())
		})
	}

	_, err := Float64s("f", []float64{math.Inf(1)}).Cast(Int64, true)
	assert.True(t, IsKind(err, KindType))
}

func TestColumnSliceHeadTail(t *testing.T) {
	c := Int64s("a", []int64{1, 2, 3, 4, 5})

	assert.Equal(t, []interface{}{int64(2), int64(3)}, c.Slice(1, 2).Values())
	assert.Equal(t, []interface{}{int64(4), int64(5)}, c.Slice(-2, 10).Values())
	assert.Equal(t, 0, c.Slice(10, 2).Len())
	assert.Equal(t, 3, c.Head(3).Len())
	assert.Equal(t, 5, c.Head(50).Len())
	assert.Equal(t, []interface{}{int64(5)}, c.Tail(1).Values())
	assert.Equal(t, 5, c.Tail(9).Len())
}

func TestColumnRenameAndAlias(t *testing.T) {
	c := Int64s("a", []int64{1})
	alias := c.Alias("b")
	assert.Equal(t, "a", c.Name())
	assert.Equal(t, "b", alias.Name())

	c.Rename("z")
	assert.Equal(t, "z", c.Name())
	assert.Equal(t, "b", alias.Name())
}

func TestColumnNulls(t *testing.T) {
	c, err := NewColumn("a", []interface{}{1, nil, 3})
	require.NoError(t, err)

	assert.Equal(t, 1, c.NullCount())
	assert.Equal(t, []interface{}{false, true, false}, c.IsNull().Values())
	assert.Equal(t, []interface{}{true, false, true}, c.IsNotNull().Values())
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []interface{}{int64(1), int64(3)}, c.DropNulls().Values())
}

func TestColumnReductions(t *testing.T) {
	c := Int64s("a", []int64{1, 2, 3, 4})

	sum, err := c.Sum()
	require.NoError(t, err)
	assert.Equal(t, Int(10), sum)

	mean, err := c.Mean()
	require.NoError(t, err)
	assert.Equal(t, Float(2.5), mean)

	median, err := c.Median()
	require.NoError(t, err)
	assert.Equal(t, Float(2.5), median)

	minV, err := c.Min()
	require.NoError(t, err)
	assert.Equal(t, Int(1), minV)

	maxV, err := c.Max()
	require.NoError(t, err)
	assert.Equal(t, Int(4), maxV)

	variance, err := c.Var(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, variance.Value(), 1e-12)

	std, err := c.Std(1)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5.0/3.0), std.Value(), 1e-12)

	product, err := c.Product()
	require.NoError(t, err)
	assert.Equal(t, Int(24), product)

	q, err := c.Quantile(0.5)
	require.NoError(t, err)
	assert.Equal(t, Float(3), q)

	_, err = c.Quantile(1.5)
	assert.True(t, IsKind(err, KindArgument))

	assert.Equal(t, 4, c.NUnique())
}

func TestColumnReductionEdgeCases(t *testing.T) {
	empty := Float64s("e", nil)
	sum, err := empty.Sum()
	require.NoError(t, err)
	assert.Equal(t, Float(0), sum)

	mean, err := empty.Mean()
	require.NoError(t, err)
	assert.True(t, mean.IsNull())

	one := Float64s("o", []float64{1})
	std, err := one.Std(1)
	require.NoError(t, err)
	assert.True(t, std.IsNull())

	strs := Strings("s", []string{"b", "a"})
	strSum, err := strs.Sum()
	require.NoError(t, err)
	assert.True(t, strSum.IsNull())
	strMin, err := strs.Min()
	require.NoError(t, err)
	assert.Equal(t, Str("a"), strMin)

	withNaN := Float64s("n", []float64{1, math.NaN(), 3})
	maxV, err := withNaN.Max()
	require.NoError(t, err)
	assert.Equal(t, Float(3), maxV)
	nanMax, err := reduce(AggNanMax, withNaN, reduceArgs{})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(nanMax.Value().(float64)))

	bools := Bools("b", []bool{true, false, true})
	boolSum, err := bools.Sum()
	require.NoError(t, err)
	assert.Equal(t, UInt32, boolSum.DType())
	assert.Equal(t, uint64(2), boolSum.Value())
}

func TestColumnAnyAll(t *testing.T) {
	c, err := NewColumn("b", []interface{}{true, nil, false})
	require.NoError(t, err)

	anyV, err := c.Any()
	require.NoError(t, err)
	assert.True(t, anyV)

	allV, err := c.All()
	require.NoError(t, err)
	assert.False(t, allV)

	_, err = Int64s("i", []int64{1}).Any()
	assert.True(t, IsKind(err, KindType))
}

func TestColumnSort(t *testing.T) {
	c, err := NewColumn("a", []interface{}{3, nil, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{int64(1), int64(2), int64(3), nil}, c.Sort(false, true).Values())
	assert.Equal(t, []interface{}{nil, int64(3), int64(2), int64(1)}, c.Sort(true, false).Values())
	assert.Equal(t, []interface{}{int64(2), int64(1), nil, int64(3)}, c.Reverse().Values())
}

func TestColumnUnique(t *testing.T) {
	c, err := NewColumn("a", []interface{}{2, 1, nil, 2, 3, nil, 1})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{int64(2), int64(1), nil, int64(3)}, c.Unique().Values())
	assert.Equal(t, 4, c.NUnique())
}

func TestColumnFillNullStrategy(t *testing.T) {
	c, err := NewColumn("a", []interface{}{nil, 1, nil, 3})
	require.NoError(t, err)

	tests := []struct {
		strategy string
		want     []interface{}
	}{
		{"forward", []interface{}{nil, int64(1), int64(1), int64(3)}},
		{"backward", []interface{}{int64(1), int64(1), int64(3), int64(3)}},
		{"mean", []interface{}{int64(2), int64(1), int64(2), int64(3)}},
		{"zero", []interface{}{int64(0), int64(1), int64(0), int64(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			out, err := c.FillNullStrategy(tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Values())
		})
	}

	_, err = c.FillNullStrategy("sideways")
	assert.True(t, IsKind(err, KindArgument))

	_, err = Strings("s", []string{"x"}).FillNullStrategy("mean")
	assert.True(t, IsKind(err, KindType))
}

func TestColumnNaN(t *testing.T) {
	c := Float64s("f", []float64{1, math.NaN()})

	isNaN, err := c.IsNaN()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, true}, isNaN.Values())

	notNaN, err := c.IsNotNaN()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{true, false}, notNaN.Values())

	_, err = Int64s("i", []int64{1}).IsNaN()
	assert.True(t, IsKind(err, KindType))
}

func TestColumnComparisons(t *testing.T) {
	c := Int64s("a", []int64{1, 2, 3})

	gt, err := c.Gt(1)
	require.NoError(t, err)
	assert.Equal(t, "a", gt.Name())
	assert.Equal(t, []interface{}{false, true, true}, gt.Values())

	eq, err := c.Eq(2.0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{false, true, false}, eq.Values())

	_, err = c.Lt("x")
	assert.True(t, IsKind(err, KindType))
}

func TestColumnItemFirstLast(t *testing.T) {
	c := Strings("s", []string{"x", "y"})
	assert.Equal(t, Str("x"), c.First())
	assert.Equal(t, Str("y"), c.Last())

	_, err := c.Item()
	assert.True(t, IsKind(err, KindSchema))

	item, err := c.Head(1).Item()
	require.NoError(t, err)
	assert.Equal(t, Str("x"), item)

	assert.True(t, Strings("e", nil).First().IsNull())
}

func TestColumnEquals(t *testing.T) {
	a, _ := NewColumn("a", []interface{}{1, nil})
	b, _ := NewColumn("a", []interface{}{1, nil})
	c, _ := NewColumn("a", []interface{}{1, 2})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.False(t, a.Equals(b.Alias("b")))
}
