package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func joinFrames(t *testing.T) (*DataFrame, *DataFrame) {
	t.Helper()
	left, err := New(Int64s("id", []int64{1, 2}))
	require.NoError(t, err)
	right, err := New(
		Int64s("id", []int64{2, 3}),
		Strings("v", []string{"a", "b"}),
	)
	require.NoError(t, err)
	return left, right
}

func TestJoinKinds(t *testing.T) {
	left, right := joinFrames(t)

	tests := []struct {
		how  string
		ids  []interface{}
		vals []interface{}
	}{
		{"left", []interface{}{int64(1), int64(2)}, []interface{}{nil, "a"}},
		{"inner", []interface{}{int64(2)}, []interface{}{"a"}},
		{"right", []interface{}{int64(2), int64(3)}, []interface{}{"a", "b"}},
		{"full", []interface{}{int64(1), int64(2), int64(3)}, []interface{}{nil, "a", "b"}},
		{"outer", []interface{}{int64(1), int64(2), int64(3)}, []interface{}{nil, "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.how, func(t *testing.T) {
			out, err := left.Join(right, []*Expr{Col("id")}, tt.how)
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "v"}, out.Columns())
			assert.Equal(t, tt.ids, out.ToMap()["id"])
			assert.Equal(t, tt.vals, out.ToMap()["v"])
		})
	}
}

func TestCrossJoin(t *testing.T) {
	left, right := joinFrames(t)

	out, err := left.Join(right, nil, "cross")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "id_right", "v"}, out.Columns())
	assert.Equal(t, 4, out.Height())
	assert.Equal(t, []interface{}{int64(1), int64(1), int64(2), int64(2)}, out.ToMap()["id"])
	assert.Equal(t, []interface{}{int64(2), int64(3), int64(2), int64(3)}, out.ToMap()["id_right"])
}

func TestJoinSuffixesCollisions(t *testing.T) {
	left, err := New(Int64s("id", []int64{1, 2}), Strings("v", []string{"x", "y"}))
	require.NoError(t, err)
	_, right := joinFrames(t)

	out, err := left.Join(right, []*Expr{Col("id")}, "inner")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v", "v_right"}, out.Columns())
	assert.Equal(t, []interface{}{"y"}, out.ToMap()["v"])
	assert.Equal(t, []interface{}{"a"}, out.ToMap()["v_right"])
}

func TestJoinDuplicateMatches(t *testing.T) {
	left, err := New(Strings("k", []string{"a", "b", "a"}), Int64s("l", []int64{1, 2, 3}))
	require.NoError(t, err)
	right, err := New(Strings("k", []string{"a", "a"}), Int64s("r", []int64{10, 20}))
	require.NoError(t, err)

	out, err := left.Join(right, []*Expr{Col("k")}, "inner")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(1), int64(1), int64(3), int64(3)}, out.ToMap()["l"])
	assert.Equal(t, []interface{}{int64(10), int64(20), int64(10), int64(20)}, out.ToMap()["r"])
}

func TestJoinNullKeysNeverMatch(t *testing.T) {
	left, err := FromValues([]string{"k"}, [][]interface{}{{1, nil}})
	require.NoError(t, err)
	right, err := FromValues([]string{"k", "v"}, [][]interface{}{{nil, 1}, {"null", "one"}})
	require.NoError(t, err)

	inner, err := left.Join(right, []*Expr{Col("k")}, "inner")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"one"}, inner.ToMap()["v"])

	leftJoin, err := left.Join(right, []*Expr{Col("k")}, "left")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"one", nil}, leftJoin.ToMap()["v"])
}

func TestJoinPromotesKeyDTypes(t *testing.T) {
	left, err := New(Int64s("id", []int64{1, 2}))
	require.NoError(t, err)
	right, err := New(Float64s("id", []float64{2, 3}), Strings("v", []string{"a", "b"}))
	require.NoError(t, err)

	out, err := left.Join(right, []*Expr{Col("id")}, "full")
	require.NoError(t, err)
	assert.Equal(t, []DType{Float64, String}, out.DTypes())
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, out.ToMap()["id"])

	strs, err := New(Strings("id", []string{"1"}))
	require.NoError(t, err)
	_, err = left.Join(strs, []*Expr{Col("id")}, "inner")
	assert.True(t, IsKind(err, KindType))
}

func TestJoinErrors(t *testing.T) {
	left, right := joinFrames(t)

	_, err := left.Join(right, nil, "inner")
	assert.True(t, IsKind(err, KindArgument))

	_, err = left.Join(right, []*Expr{Col("missing")}, "inner")
	assert.True(t, IsKind(err, KindSchema))

	_, err = left.Join(right, []*Expr{All()}, "inner")
	assert.True(t, IsKind(err, KindSchema))

	_, err = ParseJoinKind("semi")
	assert.True(t, IsKind(err, KindArgument))
}

func TestLazyJoinWithPlannedRightSide(t *testing.T) {
	people := peopleFrame(t)
	cities, err := New(
		Strings("city", []string{"NYC", "LA", "SF"}),
		Strings("state", []string{"NY", "CA", "CA"}),
	)
	require.NoError(t, err)

	right := cities.Lazy().Filter(Col("state").Eq("CA"))
	out, err := people.Lazy().
		Join(right, []*Expr{Col("city")}, "left").
		Filter(Col("age").Gt(26)).
		Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "city", "state"}, out.Columns())
	assert.Equal(t, []interface{}{"LA", "NYC"}, out.ToMap()["city"])
	assert.Equal(t, []interface{}{"CA", nil}, out.ToMap()["state"])
}
