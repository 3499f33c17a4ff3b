package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/internal/parallel"
)

// hashKey encodes a scalar so that equal values, nulls included, share a key.
func hashKey(s Scalar) string {
	switch s.dtype.physical() {
	case physNull:
		return "n"
	case physInt:
		return "i" + strconv.FormatInt(s.i, 10)
	case physUint:
		return "u" + strconv.FormatUint(s.u, 10)
	case physFloat:
		f := s.f
		switch {
		case math.IsNaN(f):
			return "fNaN"
		case f == 0:
			f = 0
		}
		return "f" + strconv.FormatUint(math.Float64bits(f), 16)
	case physBool:
		if s.b {
			return "b1"
		}
		return "b0"
	}
	return "s" + s.s
}

// rowKey encodes the values of row across cols. Parts are length-prefixed so
// no two distinct tuples share a key.
func rowKey(cols []*Column, row int) string {
	if len(cols) == 1 {
		return hashKey(cols[0].at(row))
	}
	var b strings.Builder
	for _, c := range cols {
		k := hashKey(c.at(row))
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
	}
	return b.String()
}

// groupRows partitions row indices by key tuple. order lists keys by first
// appearance.
func groupRows(keys []*Column, height int) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for i := 0; i < height; i++ {
		k := rowKey(keys, i)
		rows, ok := groups[k]
		if !ok {
			order = append(order, k)
		}
		groups[k] = append(rows, i)
	}
	return groups, order
}

// GroupBy binds key expressions to a LazyFrame until a terminal
// aggregation produces a new LazyFrame.
type GroupBy struct {
	lf   *LazyFrame
	keys []*Expr
}

// Agg emits one row per distinct key tuple with the keys followed by the
// aggregations. Every aggregation must reduce to one value per group; a
// wildcard expands to the non-key columns.
func (g *GroupBy) Agg(aggs ...*Expr) *LazyFrame {
	return g.lf.with(&groupByNode{keys: g.keys, aggs: aggs, mode: groupAgg})
}

func (g *GroupBy) all(kind AggKind) *LazyFrame {
	return g.Agg(All().aggregate(kind, reduceArgs{}))
}

func (g *GroupBy) Sum() *LazyFrame     { return g.all(AggSum) }
func (g *GroupBy) Mean() *LazyFrame    { return g.all(AggMean) }
func (g *GroupBy) Median() *LazyFrame  { return g.all(AggMedian) }
func (g *GroupBy) Min() *LazyFrame     { return g.all(AggMin) }
func (g *GroupBy) Max() *LazyFrame     { return g.all(AggMax) }
func (g *GroupBy) Count() *LazyFrame   { return g.all(AggCount) }
func (g *GroupBy) First() *LazyFrame   { return g.all(AggFirst) }
func (g *GroupBy) Last() *LazyFrame    { return g.all(AggLast) }
func (g *GroupBy) NUnique() *LazyFrame { return g.all(AggNUnique) }
func (g *GroupBy) Len() *LazyFrame     { return g.all(AggLen) }

// Head keeps up to n rows of every group in their original order
func (g *GroupBy) Head(n int) *LazyFrame {
	return g.lf.with(&groupByNode{keys: g.keys, mode: groupHead, n: max(n, 0)})
}

// Tail keeps the last n rows of every group in their original order
func (g *GroupBy) Tail(n int) *LazyFrame {
	return g.lf.with(&groupByNode{keys: g.keys, mode: groupTail, n: max(n, 0)})
}

type groupMode int

const (
	groupAgg groupMode = iota
	groupHead
	groupTail
)

type groupByNode struct {
	keys []*Expr
	aggs []*Expr
	mode groupMode
	n    int
}

func (n *groupByNode) name() string { return "group_by" }

func (n *groupByNode) describe() string {
	switch n.mode {
	case groupHead:
		return fmt.Sprintf("GROUP_BY %s HEAD n=%d", exprStrings(n.keys), n.n)
	case groupTail:
		return fmt.Sprintf("GROUP_BY %s TAIL n=%d", exprStrings(n.keys), n.n)
	}
	return fmt.Sprintf("AGGREGATE %s BY %s", exprStrings(n.aggs), exprStrings(n.keys))
}

func (n *groupByNode) keyNames(in Schema) map[string]bool {
	names := make(map[string]bool)
	for _, k := range expandExprs(n.keys, in, nil) {
		names[k.OutputName()] = true
	}
	return names
}

func (n *groupByNode) schema(in Schema) (Schema, error) {
	if len(n.keys) == 0 {
		return nil, argErr("group_by", "at least one key expression is required")
	}
	keys := expandExprs(n.keys, in, nil)
	for _, k := range keys {
		if k.reducesToScalar() {
			return nil, schemaErr("group_by", "key %s must not be an aggregation", k)
		}
	}
	out, err := exprSchema("group_by", in, keys)
	if err != nil {
		return nil, err
	}
	keyNames := n.keyNames(in)
	if n.mode != groupAgg {
		for _, f := range in {
			if !keyNames[f.Name] {
				out = append(out, f)
			}
		}
		return out, nil
	}
	aggs := expandExprs(n.aggs, in, keyNames)
	for _, a := range aggs {
		if !a.reducesToScalar() {
			return nil, schemaErr("agg", "expression %s does not reduce to a single value per group; add an aggregation such as sum() or first()", a)
		}
	}
	aggSchema, err := exprSchema("agg", in, aggs)
	if err != nil {
		return nil, err
	}
	for _, f := range aggSchema {
		if out.Index(f.Name) >= 0 {
			return nil, schemaErr("agg", "duplicate output column %q; use Alias to rename", f.Name)
		}
		out = append(out, f)
	}
	return out, nil
}

func (n *groupByNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	keys, err := evalExprs(ctx, df, expandExprs(n.keys, df.Schema(), nil))
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if keys[i], err = broadcastTo("group_by", k, df.Height()); err != nil {
			return nil, err
		}
	}
	groups, order := groupRows(keys, df.Height())
	ctx.logger.Debug("grouped rows", zap.Int("rows", df.Height()), zap.Int("groups", len(order)))

	if n.mode != groupAgg {
		return n.slices(df, keys, groups, order), nil
	}

	first := make([]int, len(order))
	for g, k := range order {
		first[g] = groups[k][0]
	}
	out := make([]*Column, 0, len(keys)+len(n.aggs))
	for _, k := range keys {
		out = append(out, k.take(first))
	}

	keyNames := n.keyNames(df.Schema())
	aggs := expandExprs(n.aggs, df.Schema(), keyNames)
	schema := df.Schema()
	results := make([][]Scalar, len(aggs))
	dtypes := make([]DType, len(aggs))
	for a, e := range aggs {
		if dtypes[a], err = e.resolveType(schema); err != nil {
			return nil, err
		}
		results[a] = make([]Scalar, len(order))
	}

	chunks := parallel.Chunks(len(order), ctx.opts.parallelWorkers(df.Height()))
	err = parallel.ForEach(len(chunks), len(chunks), func(c int) error {
		for g := chunks[c][0]; g < chunks[c][1]; g++ {
			part := df.takeColumns(groups[order[g]], aggs)
			for a, e := range aggs {
				col, err := e.eval(part)
				if err != nil {
					return err
				}
				if col.Len() != 1 {
					return schemaErr("agg", "expression %s produced %d values for one group", e, col.Len())
				}
				results[a][g] = col.at(0)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for a, e := range aggs {
		b := NewBuilder(e.OutputName(), dtypes[a], len(order))
		for _, v := range results[a] {
			b.Append(v)
		}
		out = append(out, b.Finish())
	}
	return New(out...)
}

// slices implements the per-group head and tail.
func (n *groupByNode) slices(df *DataFrame, keys []*Column, groups map[string][]int, order []string) *DataFrame {
	var rows []int
	for _, k := range order {
		g := groups[k]
		take := min(n.n, len(g))
		if n.mode == groupHead {
			rows = append(rows, g[:take]...)
		} else {
			rows = append(rows, g[len(g)-take:]...)
		}
	}
	keyNames := make(map[string]bool, len(keys))
	out := make([]*Column, 0, df.Width()+len(keys))
	for _, k := range keys {
		keyNames[k.name] = true
		out = append(out, k.take(rows))
	}
	for _, c := range df.columns {
		if !keyNames[c.name] {
			out = append(out, c.take(rows))
		}
	}
	return newFrame(out)
}

// takeColumns gathers rows of only the columns exprs read.
func (df *DataFrame) takeColumns(rows []int, exprs []*Expr) *DataFrame {
	need := make(map[string]bool)
	for _, e := range exprs {
		for _, name := range e.columns() {
			need[name] = true
		}
	}
	cols := make([]*Column, 0, len(need))
	for _, c := range df.columns {
		if need[c.name] {
			cols = append(cols, c.take(rows))
		}
	}
	if len(cols) == 0 {
		// keep the group height visible to literal-only expressions
		cols = append(cols, Nulls("", Null, len(rows)))
	}
	return newFrame(cols)
}
