package frame

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// JoinKind selects which unmatched rows a join keeps.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

func (k JoinKind) String() string {
	return [...]string{"inner", "left", "right", "full", "cross"}[k]
}

// ParseJoinKind parses "inner", "left", "right", "full" (or "outer") and "cross".
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(s) {
	case "inner", "":
		return JoinInner, nil
	case "left":
		return JoinLeft, nil
	case "right":
		return JoinRight, nil
	case "full", "outer":
		return JoinFull, nil
	case "cross":
		return JoinCross, nil
	}
	return JoinInner, argErr("join", "invalid join type %q: use 'inner', 'left', 'right', 'full' or 'cross'", s)
}

const rightSuffix = "_right"

type joinNode struct {
	other *LazyFrame
	on    []*Expr
	how   JoinKind
	err   error
}

func (n *joinNode) name() string { return "join" }

func (n *joinNode) describe() string {
	if n.how == JoinCross {
		return "CROSS JOIN"
	}
	return fmt.Sprintf("%s JOIN ON %s", strings.ToUpper(n.how.String()), exprStrings(n.on))
}

// sharedKeys returns the plain column keys present on both sides; the
// right-hand copies are dropped from the output.
func (n *joinNode) sharedKeys(left, right Schema) map[string]bool {
	shared := make(map[string]bool)
	if n.how == JoinCross {
		return shared
	}
	for _, e := range n.on {
		if e.kind == exprColumn && left.Index(e.name) >= 0 && right.Index(e.name) >= 0 {
			shared[e.name] = true
		}
	}
	return shared
}

// layout computes the output schema; rightNames maps each kept right
// column to its output name.
func (n *joinNode) layout(left, right Schema) (Schema, map[string]string, error) {
	shared := n.sharedKeys(left, right)
	out := make(Schema, 0, len(left)+len(right))
	for _, f := range left {
		if shared[f.Name] && (n.how == JoinRight || n.how == JoinFull) {
			rt, _ := right.Lookup(f.Name)
			st, ok := supertype(f.DType, rt)
			if !ok {
				return nil, nil, typeErr("join", "key %q has dtype %s on the left and %s on the right", f.Name, f.DType, rt)
			}
			f.DType = st
		}
		out = append(out, f)
	}
	rightNames := make(map[string]string, len(right))
	for _, f := range right {
		if shared[f.Name] {
			continue
		}
		name := f.Name
		if out.Index(name) >= 0 {
			name += rightSuffix
		}
		if out.Index(name) >= 0 {
			return nil, nil, schemaErr("join", "duplicate column name %q after suffixing", name)
		}
		rightNames[f.Name] = name
		out = append(out, Field{Name: name, DType: f.DType})
	}
	return out, rightNames, nil
}

func (n *joinNode) schema(in Schema) (Schema, error) {
	if n.err != nil {
		return nil, n.err
	}
	right, err := n.other.CollectSchema()
	if err != nil {
		return nil, err
	}
	if n.how != JoinCross {
		if len(n.on) == 0 {
			return nil, argErr("join", "%s join requires at least one key expression", n.how)
		}
		for _, e := range n.on {
			if e.isMulti() {
				return nil, schemaErr("join", "join key %s must produce a single column", e)
			}
			lt, err := e.resolveType(in)
			if err != nil {
				return nil, err
			}
			rt, err := e.resolveType(right)
			if err != nil {
				return nil, err
			}
			if _, ok := supertype(lt, rt); !ok {
				return nil, typeErr("join", "key %s has dtype %s on the left and %s on the right", e, lt, rt)
			}
		}
	}
	out, _, err := n.layout(in, right)
	return out, err
}

// joinKeys evaluates the keys on one side, promoted to the shared dtype.
func (n *joinNode) joinKeys(ctx *execContext, df *DataFrame, dtypes []DType) ([]*Column, error) {
	keys, err := evalExprs(ctx, df, n.on)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if k, err = broadcastTo("join", k, df.Height()); err != nil {
			return nil, err
		}
		if keys[i], err = k.Cast(dtypes[i], false); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func hasNullKey(keys []*Column, row int) bool {
	for _, k := range keys {
		if k.isNullAt(row) {
			return true
		}
	}
	return false
}

// keyIndex maps key tuples to the rows holding them, skipping null keys.
func keyIndex(keys []*Column, height int) map[string][]int {
	m := make(map[string][]int, height)
	for i := 0; i < height; i++ {
		if hasNullKey(keys, i) {
			continue
		}
		k := rowKey(keys, i)
		m[k] = append(m[k], i)
	}
	return m
}

func (n *joinNode) exec(ctx *execContext, left *DataFrame) (*DataFrame, error) {
	right, err := n.other.collect(ctx)
	if err != nil {
		return nil, err
	}
	var li, ri []int
	if n.how == JoinCross {
		for l := 0; l < left.Height(); l++ {
			for r := 0; r < right.Height(); r++ {
				li, ri = append(li, l), append(ri, r)
			}
		}
	} else {
		dtypes := make([]DType, len(n.on))
		for i, e := range n.on {
			lt, err := e.resolveType(left.Schema())
			if err != nil {
				return nil, err
			}
			rt, err := e.resolveType(right.Schema())
			if err != nil {
				return nil, err
			}
			dtypes[i], _ = supertype(lt, rt)
		}
		lk, err := n.joinKeys(ctx, left, dtypes)
		if err != nil {
			return nil, err
		}
		rk, err := n.joinKeys(ctx, right, dtypes)
		if err != nil {
			return nil, err
		}
		li, ri = n.match(lk, left.Height(), rk, right.Height())
	}
	ctx.logger.Debug("joined",
		zap.String("how", n.how.String()),
		zap.Int("left_rows", left.Height()),
		zap.Int("right_rows", right.Height()),
		zap.Int("rows", len(li)))
	return n.assemble(left, right, li, ri)
}

// match pairs row indices; -1 marks the missing side of an unmatched row.
func (n *joinNode) match(lk []*Column, lh int, rk []*Column, rh int) ([]int, []int) {
	var li, ri []int
	if n.how == JoinRight {
		lindex := keyIndex(lk, lh)
		for r := 0; r < rh; r++ {
			var rows []int
			if !hasNullKey(rk, r) {
				rows = lindex[rowKey(rk, r)]
			}
			if len(rows) == 0 {
				li, ri = append(li, -1), append(ri, r)
				continue
			}
			for _, l := range rows {
				li, ri = append(li, l), append(ri, r)
			}
		}
		return li, ri
	}

	rindex := keyIndex(rk, rh)
	matched := make([]bool, rh)
	for l := 0; l < lh; l++ {
		var rows []int
		if !hasNullKey(lk, l) {
			rows = rindex[rowKey(lk, l)]
		}
		if len(rows) == 0 {
			if n.how != JoinInner {
				li, ri = append(li, l), append(ri, -1)
			}
			continue
		}
		for _, r := range rows {
			li, ri = append(li, l), append(ri, r)
			matched[r] = true
		}
	}
	if n.how == JoinFull {
		for r := 0; r < rh; r++ {
			if !matched[r] {
				li, ri = append(li, -1), append(ri, r)
			}
		}
	}
	return li, ri
}

func (n *joinNode) assemble(left, right *DataFrame, li, ri []int) (*DataFrame, error) {
	schema, rightNames, err := n.layout(left.Schema(), right.Schema())
	if err != nil {
		return nil, err
	}
	shared := n.sharedKeys(left.Schema(), right.Schema())
	cols := make([]*Column, 0, len(schema))
	for i, c := range left.columns {
		if !shared[c.name] || n.how == JoinInner || n.how == JoinLeft {
			cols = append(cols, c.take(li))
			continue
		}
		rc, _ := right.column(c.name)
		b := NewBuilder(c.name, schema[i].DType, len(li))
		for j := range li {
			if li[j] >= 0 {
				b.Append(c.at(li[j]))
			} else {
				b.Append(rc.at(ri[j]))
			}
		}
		cols = append(cols, b.Finish())
	}
	for _, c := range right.columns {
		name, ok := rightNames[c.name]
		if !ok {
			continue
		}
		cols = append(cols, c.take(ri).Alias(name))
	}
	return newFrame(cols), nil
}
