package frame

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/internal/metrics"
)

// Source produces the input of a scanned LazyFrame. Schema must be
// answerable without loading the data.
type Source interface {
	Schema() (Schema, error)
	Load() (*DataFrame, error)
	String() string
}

// LazyFrame is a deferred query plan over a source frame. Builder methods
// return a new LazyFrame with one more node; the receiver is never modified.
type LazyFrame struct {
	df   *DataFrame
	scan Source
	plan []PlanNode
	opts *ExecOptions
}

// Lazy starts a plan over the frame
func (df *DataFrame) Lazy() *LazyFrame {
	return &LazyFrame{df: df}
}

// Scan starts a plan over a source that is loaded on collect.
func Scan(src Source) *LazyFrame {
	return &LazyFrame{scan: src}
}

func (lf *LazyFrame) with(node PlanNode) *LazyFrame {
	plan := make([]PlanNode, len(lf.plan), len(lf.plan)+1)
	copy(plan, lf.plan)
	return &LazyFrame{df: lf.df, scan: lf.scan, plan: append(plan, node), opts: lf.opts}
}

func (lf *LazyFrame) options() ExecOptions {
	if lf.opts != nil {
		return *lf.opts
	}
	return DefaultExecOptions()
}

// WithOptions returns a LazyFrame executed with opts
func (lf *LazyFrame) WithOptions(opts ExecOptions) *LazyFrame {
	out := *lf
	out.opts = &opts
	return &out
}

// WithOptimizations returns a LazyFrame executed with the given optimizer rules
func (lf *LazyFrame) WithOptimizations(flags OptFlags) *LazyFrame {
	opts := lf.options()
	opts.Optimizations = flags
	return lf.WithOptions(opts)
}

// Select evaluates exprs into a new set of columns.
func (lf *LazyFrame) Select(exprs ...*Expr) *LazyFrame {
	return lf.with(&selectNode{exprs: exprs})
}

// Filter keeps rows where pred is true; null counts as false.
func (lf *LazyFrame) Filter(pred *Expr) *LazyFrame {
	return lf.with(&filterNode{pred: pred})
}

// WithColumns adds or replaces columns; every expr sees the input frame.
func (lf *LazyFrame) WithColumns(exprs ...*Expr) *LazyFrame {
	return lf.with(&withColumnsNode{exprs: exprs})
}

// Sort orders rows by one column
func (lf *LazyFrame) Sort(by string, descending, nullsLast bool) *LazyFrame {
	return lf.SortBy([]*Expr{Col(by)}, []bool{descending}, nullsLast)
}

// SortBy orders rows by several keys. A descending slice shorter than by
// repeats its last value; an empty one means ascending.
func (lf *LazyFrame) SortBy(by []*Expr, descending []bool, nullsLast bool) *LazyFrame {
	desc := make([]bool, len(by))
	for i := range desc {
		switch {
		case i < len(descending):
			desc[i] = descending[i]
		case len(descending) > 0:
			desc[i] = descending[len(descending)-1]
		}
	}
	return lf.with(&sortNode{by: by, descending: desc, nullsLast: nullsLast})
}

// Drop removes columns by name
func (lf *LazyFrame) Drop(names ...string) *LazyFrame {
	return lf.with(&dropNode{names: names})
}

// Rename renames columns positionally; both lists must have the same length.
func (lf *LazyFrame) Rename(oldNames, newNames []string) *LazyFrame {
	return lf.with(&renameNode{old: oldNames, new: newNames})
}

// Unique keeps distinct rows over subset (every column when empty). keep is
// one of first, last, any or none.
func (lf *LazyFrame) Unique(subset []string, keep string) *LazyFrame {
	k, err := ParseUniqueKeep(keep)
	return lf.with(&uniqueNode{subset: subset, keep: k, err: err})
}

// DropNulls removes rows with a null in subset (every column when empty)
func (lf *LazyFrame) DropNulls(subset ...string) *LazyFrame {
	return lf.with(&dropNullsNode{subset: subset})
}

// FillNull replaces nulls in every column that can hold value, which may be
// a raw value or an expression.
func (lf *LazyFrame) FillNull(value interface{}) *LazyFrame {
	return lf.with(&fillNullNode{value: lift(value)})
}

// FillNan replaces NaN in every float column
func (lf *LazyFrame) FillNan(value interface{}) *LazyFrame {
	return lf.with(&fillNanNode{value: lift(value)})
}

// Join combines with other on key expressions evaluated against both sides.
// how is one of inner, left, right, full or cross.
func (lf *LazyFrame) Join(other *LazyFrame, on []*Expr, how string) *LazyFrame {
	kind, err := ParseJoinKind(how)
	return lf.with(&joinNode{other: other, on: on, how: kind, err: err})
}

// Reverse reverses the row order
func (lf *LazyFrame) Reverse() *LazyFrame {
	return lf.with(&reverseNode{})
}

// Slice keeps length rows from offset; a negative offset counts from the end
func (lf *LazyFrame) Slice(offset, length int) *LazyFrame {
	return lf.with(&sliceNode{offset: offset, length: max(length, 0)})
}

// Head keeps the first n rows
func (lf *LazyFrame) Head(n int) *LazyFrame { return lf.Slice(0, n) }

// Tail keeps the last n rows
func (lf *LazyFrame) Tail(n int) *LazyFrame {
	n = max(n, 0)
	if n == 0 {
		return lf.Slice(0, 0)
	}
	return lf.Slice(-n, n)
}

// Limit is an alias for Head
func (lf *LazyFrame) Limit(n int) *LazyFrame { return lf.Head(n) }

// First keeps the first row
func (lf *LazyFrame) First() *LazyFrame { return lf.Head(1) }

// Last keeps the last row
func (lf *LazyFrame) Last() *LazyFrame { return lf.Tail(1) }

// Explode validates columns; scalar dtypes explode to themselves.
func (lf *LazyFrame) Explode(columns ...string) *LazyFrame {
	return lf.with(&explodeNode{columns: columns})
}

// Unpivot turns the on columns into variable/value rows next to index.
func (lf *LazyFrame) Unpivot(on, index []string) *LazyFrame {
	return lf.with(&unpivotNode{on: on, index: index})
}

// Cast converts the named columns
func (lf *LazyFrame) Cast(dtypes map[string]DType, strict bool) *LazyFrame {
	return lf.with(&castNode{dtypes: dtypes, strict: strict})
}

// WithRowIndex prepends a UInt32 row number column starting at offset
func (lf *LazyFrame) WithRowIndex(name string, offset uint32) *LazyFrame {
	return lf.with(&rowIndexNode{column: name, offset: offset})
}

// Cache memoizes the plan up to this point. Every LazyFrame derived from the
// result shares the memo, so later collects resume from it.
func (lf *LazyFrame) Cache() *LazyFrame {
	return lf.with(newCacheNode())
}

// GroupBy starts a grouped aggregation; no work happens until a terminal call.
func (lf *LazyFrame) GroupBy(keys ...*Expr) *GroupBy {
	return &GroupBy{lf: lf, keys: keys}
}

func (lf *LazyFrame) reduceAll(kind AggKind, args reduceArgs) *LazyFrame {
	return lf.Select(All().aggregate(kind, args))
}

func (lf *LazyFrame) Sum() *LazyFrame       { return lf.reduceAll(AggSum, reduceArgs{}) }
func (lf *LazyFrame) Mean() *LazyFrame      { return lf.reduceAll(AggMean, reduceArgs{}) }
func (lf *LazyFrame) Median() *LazyFrame    { return lf.reduceAll(AggMedian, reduceArgs{}) }
func (lf *LazyFrame) Min() *LazyFrame       { return lf.reduceAll(AggMin, reduceArgs{}) }
func (lf *LazyFrame) Max() *LazyFrame       { return lf.reduceAll(AggMax, reduceArgs{}) }
func (lf *LazyFrame) Count() *LazyFrame     { return lf.reduceAll(AggCount, reduceArgs{}) }
func (lf *LazyFrame) NullCount() *LazyFrame { return lf.reduceAll(AggNullCount, reduceArgs{}) }
func (lf *LazyFrame) Product() *LazyFrame   { return lf.reduceAll(AggProduct, reduceArgs{}) }

// Std reduces every column to its standard deviation
func (lf *LazyFrame) Std(ddof int) *LazyFrame { return lf.reduceAll(AggStd, reduceArgs{ddof: ddof}) }

// Variance reduces every column to its variance
func (lf *LazyFrame) Variance(ddof int) *LazyFrame {
	return lf.reduceAll(AggVar, reduceArgs{ddof: ddof})
}

// Quantile reduces every column to its nearest-rank quantile
func (lf *LazyFrame) Quantile(q float64) *LazyFrame {
	return lf.reduceAll(AggQuantile, reduceArgs{quantile: q})
}

// sourceSchema returns the input schema without loading a scan.
func (lf *LazyFrame) sourceSchema() (Schema, error) {
	if lf.scan != nil {
		s, err := lf.scan.Schema()
		if err != nil {
			return nil, execErr("scan", err)
		}
		return s, nil
	}
	if lf.df == nil {
		return nil, argErr("collect", "plan has no source frame")
	}
	return lf.df.Schema(), nil
}

// resolve validates the plan and returns the output schema of each node.
func resolvePlan(src Schema, plan []PlanNode) ([]Schema, error) {
	out := make([]Schema, len(plan))
	cur := src
	for i, node := range plan {
		next, err := node.schema(cur)
		if err != nil {
			return nil, err
		}
		out[i] = next
		cur = next
	}
	return out, nil
}

// CollectSchema resolves the output schema without executing the plan.
func (lf *LazyFrame) CollectSchema() (Schema, error) {
	src, err := lf.sourceSchema()
	if err != nil {
		return nil, err
	}
	schemas, err := resolvePlan(src, lf.plan)
	if err != nil {
		return nil, err
	}
	if len(schemas) == 0 {
		return src, nil
	}
	return schemas[len(schemas)-1], nil
}

// Columns returns the output column names without executing the plan
func (lf *LazyFrame) Columns() ([]string, error) {
	s, err := lf.CollectSchema()
	if err != nil {
		return nil, err
	}
	return s.Names(), nil
}

// DTypes returns the output dtypes without executing the plan
func (lf *LazyFrame) DTypes() ([]DType, error) {
	s, err := lf.CollectSchema()
	if err != nil {
		return nil, err
	}
	return s.DTypes(), nil
}

// Width returns the output column count without executing the plan
func (lf *LazyFrame) Width() (int, error) {
	s, err := lf.CollectSchema()
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

// execContext carries per-collect state through the nodes.
type execContext struct {
	opts   ExecOptions
	logger *zap.Logger
}

// Collect resolves, optimizes and executes the plan.
func (lf *LazyFrame) Collect() (df *DataFrame, err error) {
	opts := lf.options()
	ctx := &execContext{opts: opts, logger: opts.logger()}
	start := time.Now()
	defer func() {
		metrics.ObserveCollect(start, err)
		ctx.logger.Debug("collect finished",
			zap.Int("nodes", len(lf.plan)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}()
	return lf.collect(ctx)
}

func (lf *LazyFrame) collect(ctx *execContext) (*DataFrame, error) {
	src, err := lf.sourceSchema()
	if err != nil {
		return nil, err
	}
	if _, err := resolvePlan(src, lf.plan); err != nil {
		return nil, err
	}
	plan := lf.plan
	if ctx.opts.Optimizations != OptNone {
		plan, err = optimize(ctx, src, plan)
		if err != nil {
			return nil, execErr("optimize", err)
		}
	}
	return lf.execute(ctx, plan)
}

// execute runs plan, resuming after the last populated cache node.
func (lf *LazyFrame) execute(ctx *execContext, plan []PlanNode) (*DataFrame, error) {
	start := 0
	var df *DataFrame
	for i := len(plan) - 1; i >= 0; i-- {
		if c, ok := plan[i].(*cacheNode); ok {
			if memo := c.load(); memo != nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				ctx.logger.Debug("cache hit", zap.String("id", c.id.String()))
				df, start = memo, i+1
				break
			}
		}
	}
	if df == nil {
		if lf.scan != nil {
			loaded, err := lf.scan.Load()
			if err != nil {
				return nil, execErr("scan", err)
			}
			df = loaded
		} else {
			df = lf.df
		}
	}
	for _, node := range plan[start:] {
		next, err := node.exec(ctx, df)
		if err != nil {
			return nil, execErr(node.name(), err)
		}
		df = next
	}
	return df, nil
}

// Explain renders the plan top-down, the last node first. With optimized
// set, the plan is shown as it would execute.
func (lf *LazyFrame) Explain(optimized bool) (string, error) {
	plan := lf.plan
	src, err := lf.sourceSchema()
	if err != nil {
		return "", err
	}
	if _, err := resolvePlan(src, plan); err != nil {
		return "", err
	}
	if optimized {
		opts := lf.options()
		ctx := &execContext{opts: opts, logger: opts.logger()}
		if plan, err = optimize(ctx, src, plan); err != nil {
			return "", err
		}
	}
	var b strings.Builder
	lf.render(&b, plan, 0, optimized)
	return strings.TrimRight(b.String(), "\n"), nil
}

func (lf *LazyFrame) render(b *strings.Builder, plan []PlanNode, depth int, optimized bool) {
	for i := len(plan) - 1; i >= 0; i-- {
		indent := strings.Repeat("  ", depth)
		b.WriteString(indent)
		b.WriteString(plan[i].describe())
		b.WriteByte('\n')
		if j, ok := plan[i].(*joinNode); ok {
			b.WriteString(indent + "  RIGHT PLAN:\n")
			other := j.other.plan
			if optimized {
				opts := j.other.options()
				if src, err := j.other.sourceSchema(); err == nil {
					if p, err := optimize(&execContext{opts: opts, logger: opts.logger()}, src, other); err == nil {
						other = p
					}
				}
			}
			j.other.render(b, other, depth+2, optimized)
		}
		depth++
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(lf.describeSource())
	b.WriteByte('\n')
}

func (lf *LazyFrame) describeSource() string {
	if lf.scan != nil {
		return "SCAN " + lf.scan.String()
	}
	names := lf.df.Columns()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("DF [%s]; %d rows", strings.Join(quoted, ", "), lf.df.Height())
}

// planNodes returns a copy of the plan, for tests and tooling.
func (lf *LazyFrame) planNodes() []PlanNode {
	return slices.Clone(lf.plan)
}
