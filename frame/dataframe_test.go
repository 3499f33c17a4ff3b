package frame

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peopleFrame is {age:[25,30,35], city:["NYC","LA","NYC"]}.
func peopleFrame(t *testing.T) *DataFrame {
	t.Helper()
	df, err := New(
		Int64s("age", []int64{25, 30, 35}),
		Strings("city", []string{"NYC", "LA", "NYC"}),
	)
	require.NoError(t, err)
	return df
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		columns []*Column
		wantErr bool
	}{
		{"empty", nil, false},
		{"single column", []*Column{Int64s("a", []int64{1, 2})}, false},
		{"length mismatch", []*Column{Int64s("a", []int64{1, 2}), Int64s("b", []int64{1})}, true},
		{"duplicate names", []*Column{Int64s("a", []int64{1}), Strings("a", []string{"x"})}, true},
		{"nil column", []*Column{nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df, err := New(tt.columns...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindSchema))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.columns), df.Width())
		})
	}
}

func TestFromMapOrdersByName(t *testing.T) {
	df, err := FromMap(map[string][]interface{}{
		"b": {"x", "y"},
		"a": {1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, df.Columns())
	assert.Equal(t, []DType{Int64, String}, df.DTypes())

	_, err = FromMap(map[string][]interface{}{"a": {1}, "b": {1, 2}})
	assert.True(t, IsKind(err, KindSchema))
}

func TestShapeAndSchema(t *testing.T) {
	df := peopleFrame(t)
	h, w := df.Shape()
	assert.Equal(t, 3, h)
	assert.Equal(t, 2, w)
	assert.False(t, df.IsEmpty())
	assert.Equal(t, Schema{{Name: "age", DType: Int64}, {Name: "city", DType: String}}, df.Schema())

	empty, err := New()
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Height())
}

func TestGetIndexing(t *testing.T) {
	df := peopleFrame(t)

	byName, err := df.Get("city")
	require.NoError(t, err)
	assert.Equal(t, []string{"city"}, byName.Columns())
	assert.Equal(t, 3, byName.Height())

	row, err := df.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Height())
	assert.Equal(t, map[string][]interface{}{"age": {int64(30)}, "city": {"LA"}}, row.ToMap())

	last, err := df.Get(-1)
	require.NoError(t, err)
	explicit, err := df.Get(df.Height() - 1)
	require.NoError(t, err)
	assert.True(t, last.Equals(explicit))

	several, err := df.Get([]string{"city", "age"})
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "age"}, several.Columns())

	mixed, err := df.Get([]interface{}{"city", 2})
	require.NoError(t, err)
	assert.Equal(t, map[string][]interface{}{"city": {"NYC"}}, mixed.ToMap())

	_, err = df.Get([]interface{}{0, 1})
	assert.True(t, IsKind(err, KindArgument))

	_, err = df.Get([]interface{}{1})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindArgument))
	assert.Contains(t, err.Error(), "at least one column name")

	_, err = df.Get("missing")
	assert.True(t, IsKind(err, KindSchema))

	_, err = df.Get(3.5)
	assert.True(t, IsKind(err, KindArgument))
}

func TestGetRowOutOfBounds(t *testing.T) {
	df := peopleFrame(t)

	_, err := df.Get(5)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBounds))
	assert.Contains(t, err.Error(), "row index 5 out of bounds for DataFrame with 3 rows")

	_, err = df.Get(-4)
	assert.True(t, IsKind(err, KindBounds))

	huge := uint64(math.MaxUint64)
	_, err = df.Get(huge)
	assert.True(t, IsKind(err, KindBounds), "got %v", err)
	_, err = df.Get([]interface{}{"city", uint64(1) << 63})
	assert.True(t, IsKind(err, KindBounds), "got %v", err)
	assert.False(t, df.Has(huge))

	row, err := df.Get(uint64(2))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"NYC"}, row.ToMap()["city"])
}

func TestNilFrame(t *testing.T) {
	var df *DataFrame

	_, err := df.Lazy().Collect()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindArgument), "got %v", err)

	_, err = df.Lazy().Filter(Col("a").Gt(1)).CollectSchema()
	assert.True(t, IsKind(err, KindArgument))

	_, err = df.Select(Col("a"))
	assert.True(t, IsKind(err, KindArgument))

	_, err = peopleFrame(t).Join(df, []*Expr{Col("city")}, "inner")
	assert.True(t, IsKind(err, KindArgument))

	assert.Nil(t, df.Reverse())

	_, err = df.Lazy().Explain(false)
	assert.True(t, IsKind(err, KindArgument))
}

func TestHasSetUnset(t *testing.T) {
	df := peopleFrame(t)

	assert.True(t, df.Has("age"))
	assert.False(t, df.Has("zip"))
	assert.True(t, df.Has(-3))
	assert.False(t, df.Has(3))

	assert.True(t, IsKind(df.Set("age", 1), KindArgument))
	assert.True(t, IsKind(df.Unset("age"), KindArgument))
}

func TestItem(t *testing.T) {
	empty, err := New()
	require.NoError(t, err)
	_, err = empty.Item()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindSchema))
	assert.Contains(t, err.Error(), "got shape: (0, 0)")

	one, err := New(Int64s("x", []int64{7}))
	require.NoError(t, err)
	v, err := one.Item()
	require.NoError(t, err)
	assert.Equal(t, Int(7), v)

	_, err = peopleFrame(t).Item()
	assert.Contains(t, err.Error(), "got shape: (3, 2)")
}

func TestHeadTailHeights(t *testing.T) {
	df := peopleFrame(t)
	for _, n := range []int{0, 1, 2, 3, 10} {
		assert.Equal(t, min(n, df.Height()), df.Head(n).Height(), "head(%d)", n)
		assert.Equal(t, min(n, df.Height()), df.Tail(n).Height(), "tail(%d)", n)
	}
	assert.Equal(t, []interface{}{int64(35)}, df.Tail(1).ToMap()["age"])
}

func TestRowsAndRow(t *testing.T) {
	df := peopleFrame(t)

	row, err := df.Row(-1)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"age": int64(35), "city": "NYC"}, row)

	rows := df.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "LA", rows[1]["city"])
}

func TestSelectRoundTrip(t *testing.T) {
	df := peopleFrame(t)

	out, err := df.Select(Col("age"), Col("city"))
	require.NoError(t, err)
	assert.True(t, out.Equals(df))

	all, err := df.Select(All())
	require.NoError(t, err)
	assert.True(t, all.Equals(df))
}

func TestSelectExpressions(t *testing.T) {
	df := peopleFrame(t)

	out, err := df.Select(
		Col("age").Add(1).Alias("next"),
		Col("age").Mean().Alias("avg"),
		Lit("x"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"next", "avg", "literal"}, out.Columns())
	assert.Equal(t, 3, out.Height())
	assert.Equal(t, []interface{}{30.0, 30.0, 30.0}, out.ToMap()["avg"])
	assert.Equal(t, []interface{}{int64(26), int64(31), int64(36)}, out.ToMap()["next"])

	_, err = df.Select(Col("age"), Col("age"))
	assert.True(t, IsKind(err, KindSchema))
}

func TestUniqueIdempotent(t *testing.T) {
	df, err := FromValues(
		[]string{"a", "b"},
		[][]interface{}{{1, 1, 2, 1, nil, nil}, {"x", "x", "y", "z", nil, nil}},
	)
	require.NoError(t, err)

	once, err := df.Unique(nil, "first")
	require.NoError(t, err)
	twice, err := once.Unique(nil, "first")
	require.NoError(t, err)
	assert.True(t, once.Equals(twice))
	assert.Equal(t, 4, once.Height())
}

func TestUniqueKeep(t *testing.T) {
	df, err := New(
		Strings("k", []string{"a", "b", "a", "c"}),
		Int64s("v", []int64{1, 2, 3, 4}),
	)
	require.NoError(t, err)

	tests := []struct {
		keep string
		want []interface{}
	}{
		{"first", []interface{}{int64(1), int64(2), int64(4)}},
		{"any", []interface{}{int64(1), int64(2), int64(4)}},
		{"last", []interface{}{int64(2), int64(3), int64(4)}},
		{"none", []interface{}{int64(2), int64(4)}},
	}
	for _, tt := range tests {
		t.Run(tt.keep, func(t *testing.T) {
			out, err := df.Unique([]string{"k"}, tt.keep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.ToMap()["v"])
		})
	}

	_, err = df.Unique(nil, "middle")
	assert.True(t, IsKind(err, KindArgument))
}

func TestFilterExample(t *testing.T) {
	out, err := peopleFrame(t).Filter(Col("age").Gt(28))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(30), int64(35)}, out.ToMap()["age"])
	assert.Equal(t, []interface{}{"LA", "NYC"}, out.ToMap()["city"])
}

func TestFilterNullIsFalse(t *testing.T) {
	df, err := FromValues([]string{"a"}, [][]interface{}{{1, nil, 3}})
	require.NoError(t, err)

	out, err := df.Filter(Col("a").Gt(0))
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(3)}, out.ToMap()["a"])

	_, err = df.Filter(Col("a").Add(1))
	assert.True(t, IsKind(err, KindType))
}

func TestWithColumnsReplacesAndAppends(t *testing.T) {
	df := peopleFrame(t)

	out, err := df.WithColumns(
		Col("age").Mul(2),
		Col("city").Eq("NYC").Alias("is_nyc"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city", "is_nyc"}, out.Columns())
	assert.Equal(t, []interface{}{int64(50), int64(60), int64(70)}, out.ToMap()["age"])
	assert.Equal(t, []interface{}{true, false, true}, out.ToMap()["is_nyc"])

	// the source frame is untouched
	assert.Equal(t, []interface{}{int64(25), int64(30), int64(35)}, df.ToMap()["age"])
}

func TestSortMultiKey(t *testing.T) {
	df, err := FromValues(
		[]string{"g", "v"},
		[][]interface{}{{"b", "a", "b", nil, "a"}, {1, 2, 3, 4, 5}},
	)
	require.NoError(t, err)

	out, err := df.SortBy([]*Expr{Col("g"), Col("v")}, []bool{false, true}, true)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "a", "b", "b", nil}, out.ToMap()["g"])
	assert.Equal(t, []interface{}{int64(5), int64(2), int64(3), int64(1), int64(4)}, out.ToMap()["v"])

	desc, err := df.Sort("v", true, false)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(5), int64(4), int64(3), int64(2), int64(1)}, desc.ToMap()["v"])

	_, err = df.SortBy(nil, nil, false)
	assert.True(t, IsKind(err, KindArgument))
}

func TestDropRename(t *testing.T) {
	df := peopleFrame(t)

	dropped, err := df.Drop("city")
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, dropped.Columns())

	_, err = df.Drop("zip")
	assert.True(t, IsKind(err, KindSchema))

	renamed, err := df.Rename([]string{"age"}, []string{"years"})
	require.NoError(t, err)
	assert.Equal(t, []string{"years", "city"}, renamed.Columns())

	_, err = df.Rename([]string{"age"}, []string{"city"})
	assert.True(t, IsKind(err, KindSchema))

	_, err = df.Rename([]string{"age", "city"}, []string{"x"})
	assert.True(t, IsKind(err, KindArgument))
}

func TestRenameInPlaceIsolation(t *testing.T) {
	df := peopleFrame(t)
	cp := df.Copy()

	require.NoError(t, cp.RenameInPlace("age", "years"))
	assert.Equal(t, []string{"years", "city"}, cp.Columns())
	assert.Equal(t, []string{"age", "city"}, df.Columns())

	assert.True(t, IsKind(cp.RenameInPlace("zip", "x"), KindSchema))
	assert.True(t, IsKind(cp.SetColumnNames([]string{"a", "a"}), KindSchema))
	require.NoError(t, cp.SetColumnNames([]string{"a", "b"}))
	assert.Equal(t, []string{"age", "city"}, df.Columns())
}

func TestDropNullsAndFill(t *testing.T) {
	df, err := FromValues(
		[]string{"i", "s", "f"},
		[][]interface{}{{1, nil, 3}, {nil, "x", "y"}, {nil, 2.0, math.NaN()}},
	)
	require.NoError(t, err)

	kept, err := df.DropNulls()
	require.NoError(t, err)
	assert.Equal(t, 1, kept.Height())

	subset, err := df.DropNulls("i")
	require.NoError(t, err)
	assert.Equal(t, 2, subset.Height())

	filled, err := df.FillNull(0)
	require.NoError(t, err)
	assert.Equal(t, []DType{Int64, String, Float64}, filled.DTypes())
	assert.Equal(t, []interface{}{int64(1), int64(0), int64(3)}, filled.ToMap()["i"])
	assert.Equal(t, []interface{}{nil, "x", "y"}, filled.ToMap()["s"])
	assert.Equal(t, 0.0, filled.ToMap()["f"][0])

	promoted, err := df.FillNull(1.5)
	require.NoError(t, err)
	assert.Equal(t, Float64, promoted.DTypes()[0])
	assert.Equal(t, []interface{}{1.0, 1.5, 3.0}, promoted.ToMap()["i"])

	nanFilled, err := df.FillNan(-1.0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil, 2.0, -1.0}, nanFilled.ToMap()["f"])
}

func TestReductions(t *testing.T) {
	df, err := FromValues(
		[]string{"a", "b", "s"},
		[][]interface{}{{1, 2, 3}, {1.0, 2.0, nil}, {"x", "y", "z"}},
	)
	require.NoError(t, err)

	sum, err := df.Sum()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Height())
	assert.Equal(t, []DType{Int64, Float64, String}, sum.DTypes())
	assert.Equal(t, map[string][]interface{}{"a": {int64(6)}, "b": {3.0}, "s": {nil}}, sum.ToMap())

	mean, err := df.Mean()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.5}, mean.ToMap()["b"])

	count, err := df.Count()
	require.NoError(t, err)
	assert.Equal(t, []DType{UInt32, UInt32, UInt32}, count.DTypes())
	assert.Equal(t, []interface{}{uint64(2)}, count.ToMap()["b"])

	nulls, err := df.NullCount()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{uint64(1)}, nulls.ToMap()["b"])

	maxV, err := df.Max()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"z"}, maxV.ToMap()["s"])

	std, err := df.Std(1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0}, std.ToMap()["a"])

	q, err := df.Quantile(0)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1.0}, q.ToMap()["a"])

	_, err = df.Quantile(2)
	assert.True(t, IsKind(err, KindArgument))
}

func TestVStackHStackConcat(t *testing.T) {
	df := peopleFrame(t)

	stacked, err := df.VStack(df)
	require.NoError(t, err)
	assert.Equal(t, 6, stacked.Height())

	other, err := New(Int64s("age", []int64{1}))
	require.NoError(t, err)
	_, err = df.VStack(other)
	assert.True(t, IsKind(err, KindSchema))

	wide, err := df.HStack(Bools("flag", []bool{true, false, true}))
	require.NoError(t, err)
	assert.Equal(t, 3, wide.Width())

	_, err = df.HStack(Bools("flag", []bool{true}))
	assert.True(t, IsKind(err, KindSchema))
	_, err = df.HStack(Bools("age", []bool{true, false, true}))
	assert.True(t, IsKind(err, KindSchema))

	floats, err := New(Float64s("age", []float64{1.5}), Strings("city", []string{"SF"}))
	require.NoError(t, err)
	all, err := Concat(df, floats)
	require.NoError(t, err)
	assert.Equal(t, []DType{Float64, String}, all.DTypes())
	assert.Equal(t, 4, all.Height())
}

func TestCastFrame(t *testing.T) {
	df, err := New(Strings("n", []string{"1", "abc"}), Int64s("k", []int64{1, 2}))
	require.NoError(t, err)

	_, err = df.Cast(map[string]DType{"n": Int64}, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindType))

	out, err := df.Cast(map[string]DType{"n": Int64, "k": Float32}, false)
	require.NoError(t, err)
	assert.Equal(t, []DType{Int64, Float32}, out.DTypes())
	assert.Equal(t, []interface{}{int64(1), nil}, out.ToMap()["n"])

	_, err = df.Cast(map[string]DType{"zip": Int64}, false)
	assert.True(t, IsKind(err, KindSchema))
}

func TestWithRowIndexAndReverse(t *testing.T) {
	df := peopleFrame(t)

	indexed, err := df.WithRowIndex("nr", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"nr", "age", "city"}, indexed.Columns())
	assert.Equal(t, []interface{}{uint64(10), uint64(11), uint64(12)}, indexed.ToMap()["nr"])

	_, err = df.WithRowIndex("age", 0)
	assert.True(t, IsKind(err, KindSchema))

	assert.Equal(t, []interface{}{int64(35), int64(30), int64(25)}, df.Reverse().ToMap()["age"])
}

func TestUnpivot(t *testing.T) {
	df, err := New(
		Strings("id", []string{"x", "y"}),
		Int64s("a", []int64{1, 2}),
		Float64s("b", []float64{0.5, 1.5}),
	)
	require.NoError(t, err)

	out, err := df.Unpivot([]string{"a", "b"}, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "variable", "value"}, out.Columns())
	assert.Equal(t, Float64, out.DTypes()[2])
	assert.Equal(t, []interface{}{"x", "y", "x", "y"}, out.ToMap()["id"])
	assert.Equal(t, []interface{}{"a", "a", "b", "b"}, out.ToMap()["variable"])
	assert.Equal(t, []interface{}{1.0, 2.0, 0.5, 1.5}, out.ToMap()["value"])

	mixed, err := df.Unpivot(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, String, mixed.DTypes()[1])
	assert.Equal(t, 6, mixed.Height())
}

func TestExplodeIsIdentity(t *testing.T) {
	df := peopleFrame(t)

	out, err := df.Explode("age")
	require.NoError(t, err)
	assert.True(t, out.Equals(df))

	_, err = df.Explode("zip")
	assert.True(t, IsKind(err, KindSchema))
}

func TestShrinkToFitKeepsValues(t *testing.T) {
	df := peopleFrame(t)
	sliced := df.Slice(1, 2)
	sliced.ShrinkToFit()
	assert.Equal(t, []interface{}{int64(30), int64(35)}, sliced.ToMap()["age"])
	assert.Equal(t, 3, df.Height())
}
