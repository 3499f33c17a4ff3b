package frame

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource serves a fixed frame and counts loads.
type countingSource struct {
	mu      sync.Mutex
	df      *DataFrame
	loads   int
	loadErr error
}

func (s *countingSource) Schema() (Schema, error) { return s.df.Schema(), nil }

func (s *countingSource) Load() (*DataFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.df, nil
}

func (s *countingSource) String() string { return "counting" }

func (s *countingSource) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func TestLazyPlansArePersistent(t *testing.T) {
	lf := peopleFrame(t).Lazy()
	filtered := lf.Filter(Col("age").Gt(28))
	selected := filtered.Select(Col("city"))

	assert.Len(t, lf.planNodes(), 0)
	assert.Len(t, filtered.planNodes(), 1)
	assert.Len(t, selected.planNodes(), 2)

	out, err := filtered.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, out.Height())
	assert.Equal(t, 2, out.Width())
}

func TestLazyFilterExample(t *testing.T) {
	out, err := peopleFrame(t).Lazy().Filter(Col("age").Gt(28)).Collect()
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(30), int64(35)}, out.ToMap()["age"])
}

func TestCollectSchemaDoesNotLoad(t *testing.T) {
	src := &countingSource{df: peopleFrame(t), loadErr: errors.New("disk on fire")}
	lf := Scan(src).
		WithColumns(Col("age").Div(2).Alias("half")).
		Select(Col("half").Mean(), Col("city"))

	schema, err := lf.CollectSchema()
	require.NoError(t, err)
	assert.Equal(t, Schema{{Name: "half", DType: Float64}, {Name: "city", DType: String}}, schema)

	cols, err := lf.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"half", "city"}, cols)

	width, err := lf.Width()
	require.NoError(t, err)
	assert.Equal(t, 2, width)
	assert.Equal(t, 0, src.loadCount())

	_, err = lf.Collect()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindExecution))
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, 1, src.loadCount())
}

func TestResolutionErrors(t *testing.T) {
	df := peopleFrame(t)

	tests := []struct {
		name string
		lf   *LazyFrame
		kind ErrorKind
	}{
		{"unknown column", df.Lazy().Select(Col("zip")), KindSchema},
		{"unknown filter column", df.Lazy().Filter(Col("zip").Gt(1)), KindSchema},
		{"non boolean predicate", df.Lazy().Filter(Col("age")), KindType},
		{"bad join type", df.Lazy().Join(df.Lazy(), []*Expr{Col("age")}, "sideways"), KindArgument},
		{"bad keep", df.Lazy().Unique(nil, "sometimes"), KindArgument},
		{"column dropped earlier", df.Lazy().Drop("age").Select(Col("age")), KindSchema},
		{"quantile above one", df.Lazy().Select(Col("age").Quantile(1.5)), KindArgument},
		{"quantile nan", df.Lazy().Quantile(math.NaN()), KindArgument},
		{"quantile in group", df.Lazy().GroupBy(Col("city")).Agg(Col("age").Quantile(-0.1)), KindArgument},
		{"quantile of strings", df.Lazy().Select(Col("city").Quantile(2)), KindArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.lf.Collect()
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)

			_, err = tt.lf.CollectSchema()
			assert.True(t, IsKind(err, tt.kind))
		})
	}
}

func TestCacheLoadsOnce(t *testing.T) {
	src := &countingSource{df: peopleFrame(t)}
	base := Scan(src).Filter(Col("age").Gt(20)).Cache()

	ages, err := base.Select(Col("age")).Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, ages.Height())

	nyc, err := base.Filter(Col("city").Eq("NYC")).Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, nyc.Height())

	again, err := base.Collect()
	require.NoError(t, err)
	assert.Equal(t, 3, again.Height())

	assert.Equal(t, 1, src.loadCount())
}

func TestCacheWithoutReuseStillLoads(t *testing.T) {
	src := &countingSource{df: peopleFrame(t)}
	lf := Scan(src).Select(Col("age"))

	_, err := lf.Collect()
	require.NoError(t, err)
	_, err = lf.Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, src.loadCount())
}

func TestExplain(t *testing.T) {
	lf := peopleFrame(t).Lazy().
		Sort("age", false, false).
		Filter(Col("age").Gt(28))

	plain, err := lf.Explain(false)
	require.NoError(t, err)
	lines := strings.Split(plain, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `FILTER [(col("age")) > (lit(28))]`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  SORT BY"))
	assert.Equal(t, `    DF ["age", "city"]; 3 rows`, lines[2])

	optimized, err := lf.Explain(true)
	require.NoError(t, err)
	lines = strings.Split(optimized, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "SORT BY"))
	assert.Equal(t, `  FILTER [(col("age")) > (lit(28))]`, lines[1])

	_, err = peopleFrame(t).Lazy().Select(Col("zip")).Explain(false)
	assert.True(t, IsKind(err, KindSchema))
}

func TestExplainJoinShowsRightPlan(t *testing.T) {
	left := peopleFrame(t).Lazy()
	right := peopleFrame(t).Lazy().Select(Col("city"), Col("age").Alias("years"))

	out, err := left.Join(right, []*Expr{Col("city")}, "inner").Explain(false)
	require.NoError(t, err)
	assert.Contains(t, out, `INNER JOIN ON [col("city")]`)
	assert.Contains(t, out, "RIGHT PLAN:")
	assert.Contains(t, out, `SELECT [col("city"), col("age").alias("years")]`)

	scan, err := Scan(&countingSource{df: peopleFrame(t)}).Explain(false)
	require.NoError(t, err)
	assert.Equal(t, "SCAN counting", scan)
}

func TestSliceFamily(t *testing.T) {
	lf := peopleFrame(t).Lazy()

	tests := []struct {
		name string
		lf   *LazyFrame
		want []interface{}
	}{
		{"head", lf.Head(2), []interface{}{int64(25), int64(30)}},
		{"tail", lf.Tail(2), []interface{}{int64(30), int64(35)}},
		{"tail zero", lf.Tail(0), []interface{}{}},
		{"limit", lf.Limit(1), []interface{}{int64(25)}},
		{"first", lf.First(), []interface{}{int64(25)}},
		{"last", lf.Last(), []interface{}{int64(35)}},
		{"negative slice", lf.Slice(-2, 1), []interface{}{int64(30)}},
		{"oversized", lf.Slice(1, 100), []interface{}{int64(30), int64(35)}},
		{"reverse", lf.Reverse(), []interface{}{int64(35), int64(30), int64(25)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.lf.Collect()
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.ToMap()["age"])
		})
	}
}

func TestLazyReductions(t *testing.T) {
	lf := peopleFrame(t).Lazy().Drop("city")

	tests := []struct {
		name string
		lf   *LazyFrame
		want interface{}
	}{
		{"sum", lf.Sum(), int64(90)},
		{"mean", lf.Mean(), 30.0},
		{"median", lf.Median(), 30.0},
		{"min", lf.Min(), int64(25)},
		{"max", lf.Max(), int64(35)},
		{"count", lf.Count(), uint64(3)},
		{"null count", lf.NullCount(), uint64(0)},
		{"product", lf.Product(), int64(26250)},
		{"variance", lf.Variance(0), 50.0 / 3.0},
		{"quantile", lf.Quantile(1), 35.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.lf.Collect()
			require.NoError(t, err)
			assert.Equal(t, 1, out.Height())
			v, err := out.Item()
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Value())
		})
	}
}

func TestWithOptionsParallelMatchesSequential(t *testing.T) {
	n := 10000
	ints := make([]int64, n)
	keys := make([]string, n)
	for i := range ints {
		ints[i] = int64(i)
		keys[i] = string(rune('a' + i%7))
	}
	df, err := New(Int64s("v", ints), Strings("k", keys))
	require.NoError(t, err)

	build := func(lf *LazyFrame) *LazyFrame {
		return lf.
			WithColumns(Col("v").Mul(2).Alias("w"), Col("v").Mod(3).Alias("m")).
			GroupBy(Col("k")).
			Agg(Col("w").Sum(), Col("m").Mean(), Col("v").Max())
	}

	sequential, err := build(df.Lazy().WithOptions(ExecOptions{Optimizations: OptDefault, Workers: 1})).Collect()
	require.NoError(t, err)
	parallel, err := build(df.Lazy().WithOptions(ExecOptions{
		Optimizations:     OptDefault,
		Workers:           4,
		ParallelThreshold: 1,
	})).Collect()
	require.NoError(t, err)

	assert.True(t, sequential.Equals(parallel))
	assert.Equal(t, 7, parallel.Height())
}

func TestOptFlagsString(t *testing.T) {
	assert.Equal(t, "none", OptNone.String())
	assert.Equal(t, "projection_fusion|filter_fusion", OptEager.String())
	assert.Equal(t, "predicate_pushdown|projection_fusion|slice_pushdown|filter_fusion", OptDefault.String())
}
