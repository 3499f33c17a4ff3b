package frame

import (
	"slices"

	"go.uber.org/zap"

	"github.com/vegasq/colframe/internal/metrics"
)

// maxOptimizerPasses bounds the rewrite loop of one segment.
const maxOptimizerPasses = 64

// rewrite is one local rule over an adjacent pair of nodes. in is the
// schema entering a. It returns the replacement nodes, or ok=false.
type rewrite struct {
	name string
	flag OptFlags
	fn   func(a, b PlanNode, in Schema) ([]PlanNode, bool)
}

var rewrites = []rewrite{
	{"filter_fusion", FilterFusion, fuseFilters},
	{"predicate_pushdown", PredicatePushdown, pushFilter},
	{"projection_fusion", ProjectionFusion, fuseProjections},
	{"drop_fusion", ProjectionFusion, fuseDrops},
	{"slice_fusion", SlicePushdown, fuseSlices},
	{"slice_pushdown", SlicePushdown, pushSlice},
}

// optimize rewrites plan without changing its result. Cache nodes split the
// plan into segments that are optimized independently, so memoized
// prefixes keep their exact shape.
func optimize(ctx *execContext, src Schema, plan []PlanNode) ([]PlanNode, error) {
	schemas, err := resolvePlan(src, plan)
	if err != nil {
		return nil, err
	}
	out := make([]PlanNode, 0, len(plan))
	segStart, segSrc := 0, src
	for i, node := range plan {
		if _, ok := node.(*cacheNode); !ok {
			continue
		}
		seg, err := optimizeSegment(ctx, segSrc, plan[segStart:i])
		if err != nil {
			return nil, err
		}
		out = append(append(out, seg...), node)
		segStart, segSrc = i+1, schemas[i]
	}
	seg, err := optimizeSegment(ctx, segSrc, plan[segStart:])
	if err != nil {
		return nil, err
	}
	return append(out, seg...), nil
}

func optimizeSegment(ctx *execContext, src Schema, plan []PlanNode) ([]PlanNode, error) {
	seg := slices.Clone(plan)
	flags := ctx.opts.Optimizations
	for pass := 0; pass < maxOptimizerPasses; pass++ {
		schemas, err := resolvePlan(src, seg)
		if err != nil {
			return nil, err
		}
		changed := false
		for i := 0; i+1 < len(seg) && !changed; i++ {
			in := src
			if i > 0 {
				in = schemas[i-1]
			}
			for _, r := range rewrites {
				if flags&r.flag == 0 {
					continue
				}
				repl, ok := r.fn(seg[i], seg[i+1], in)
				if !ok {
					continue
				}
				ctx.logger.Debug("plan rewrite",
					zap.String("rule", r.name),
					zap.String("first", seg[i].describe()),
					zap.String("second", seg[i+1].describe()))
				metrics.OptimizerRewrites.WithLabelValues(r.name).Inc()
				seg = slices.Concat(seg[:i], repl, seg[i+2:])
				changed = true
				break
			}
		}
		if !changed {
			return seg, nil
		}
	}
	return seg, nil
}

// fuseFilters merges two filters into a conjunction. The second predicate
// must not aggregate, since it would otherwise see the unfiltered rows.
func fuseFilters(a, b PlanNode, _ Schema) ([]PlanNode, bool) {
	fa, ok1 := a.(*filterNode)
	fb, ok2 := b.(*filterNode)
	if !ok1 || !ok2 || fb.pred.hasAgg() {
		return nil, false
	}
	return []PlanNode{&filterNode{pred: fa.pred.And(fb.pred)}}, true
}

// pushFilter moves a filter below a node that neither changes the rows the
// predicate sees nor produces the columns it reads.
func pushFilter(a, b PlanNode, in Schema) ([]PlanNode, bool) {
	f, ok := b.(*filterNode)
	if !ok || f.pred.hasAgg() {
		return nil, false
	}
	swap := []PlanNode{f, a}
	switch n := a.(type) {
	case *reverseNode, *dropNode:
		return swap, true
	case *sortNode:
		if anyAgg(n.by) {
			return nil, false
		}
		return swap, true
	case *withColumnsNode:
		if n.hasAgg() {
			return nil, false
		}
		produced := n.produces(in)
		for _, c := range f.pred.columns() {
			if slices.Contains(produced, c) {
				return nil, false
			}
		}
		return swap, true
	case *selectNode:
		for _, e := range n.exprs {
			if e.kind != exprColumn {
				return nil, false
			}
		}
		return swap, true
	case *joinNode:
		if (n.how != JoinInner && n.how != JoinLeft) || anyAgg(n.on) {
			return nil, false
		}
		for _, c := range f.pred.columns() {
			if in.Index(c) < 0 {
				return nil, false
			}
		}
		return swap, true
	}
	return nil, false
}

// anyAgg reports whether any of exprs reads the whole column, so filtering
// first would change its value.
func anyAgg(exprs []*Expr) bool {
	return slices.ContainsFunc(exprs, (*Expr).hasAgg)
}

// fuseProjections collapses two column-picking selects into one.
func fuseProjections(a, b PlanNode, _ Schema) ([]PlanNode, bool) {
	sa, ok1 := a.(*selectNode)
	sb, ok2 := b.(*selectNode)
	if !ok1 || !ok2 || !sa.onlyPlainColumns() || !sb.onlyPlainColumns() {
		return nil, false
	}
	fused := make([]*Expr, len(sb.exprs))
	for i, e := range sb.exprs {
		ref := e
		if e.kind == exprAlias {
			ref = e.left
		}
		idx := slices.IndexFunc(sa.exprs, func(x *Expr) bool { return x.OutputName() == ref.name })
		if idx < 0 {
			return nil, false
		}
		base := sa.exprs[idx]
		if base.kind == exprAlias {
			base = base.left
		}
		if name := e.OutputName(); name != base.name {
			fused[i] = Col(base.name).Alias(name)
		} else {
			fused[i] = Col(base.name)
		}
	}
	return []PlanNode{&selectNode{exprs: fused}}, true
}

func fuseDrops(a, b PlanNode, _ Schema) ([]PlanNode, bool) {
	da, ok1 := a.(*dropNode)
	db, ok2 := b.(*dropNode)
	if !ok1 || !ok2 {
		return nil, false
	}
	return []PlanNode{&dropNode{names: slices.Concat(da.names, db.names)}}, true
}

// fuseSlices composes two slices with non-negative offsets.
func fuseSlices(a, b PlanNode, _ Schema) ([]PlanNode, bool) {
	sa, ok1 := a.(*sliceNode)
	sb, ok2 := b.(*sliceNode)
	if !ok1 || !ok2 || sa.offset < 0 || sb.offset < 0 {
		return nil, false
	}
	length := max(0, min(sb.length, sa.length-sb.offset))
	return []PlanNode{&sliceNode{offset: sa.offset + sb.offset, length: length}}, true
}

// pushSlice moves a slice below an element-wise WithColumns.
func pushSlice(a, b PlanNode, _ Schema) ([]PlanNode, bool) {
	s, ok1 := b.(*sliceNode)
	w, ok2 := a.(*withColumnsNode)
	if !ok1 || !ok2 || w.hasAgg() {
		return nil, false
	}
	return []PlanNode{s, w}, true
}
