package frame

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vegasq/colframe/internal/metrics"
	"github.com/vegasq/colframe/internal/parallel"
)

// PlanNode is one relational step of a LazyFrame plan.
type PlanNode interface {
	name() string
	describe() string
	// schema validates the node against its input schema and returns the output schema.
	schema(in Schema) (Schema, error)
	exec(ctx *execContext, df *DataFrame) (*DataFrame, error)
}

func requireColumns(op string, in Schema, names []string) error {
	for _, name := range names {
		if in.Index(name) < 0 {
			return schemaErr(op, "column %q not found in %s", name, in)
		}
	}
	return nil
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// exprSchema types exprs against in and rejects duplicate output names.
func exprSchema(op string, in Schema, exprs []*Expr) (Schema, error) {
	out := make(Schema, 0, len(exprs))
	seen := make(map[string]bool, len(exprs))
	for _, e := range exprs {
		dt, err := e.resolveType(in)
		if err != nil {
			return nil, err
		}
		name := e.OutputName()
		if seen[name] {
			return nil, schemaErr(op, "duplicate output column %q; use Alias to rename", name)
		}
		seen[name] = true
		out = append(out, Field{Name: name, DType: dt})
	}
	return out, nil
}

// evalExprs evaluates exprs over df, column-parallel on large inputs.
func evalExprs(ctx *execContext, df *DataFrame, exprs []*Expr) ([]*Column, error) {
	cols := make([]*Column, len(exprs))
	workers := 1
	if len(exprs) > 1 {
		workers = ctx.opts.parallelWorkers(df.Height())
	}
	err := parallel.ForEach(len(exprs), workers, func(i int) error {
		c, err := exprs[i].eval(df)
		if err != nil {
			return err
		}
		cols[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// broadcastTo stretches a single-row column to n rows.
func broadcastTo(op string, c *Column, n int) (*Column, error) {
	switch {
	case c.Len() == n:
		return c, nil
	case c.Len() == 1:
		return Repeat(c.name, c.dtype, c.at(0), n), nil
	}
	return nil, schemaErr(op, "column %q has length %d, expected %d", c.name, c.Len(), n)
}

type selectNode struct {
	exprs []*Expr
}

func (n *selectNode) name() string     { return "select" }
func (n *selectNode) describe() string { return "SELECT " + exprStrings(n.exprs) }

func (n *selectNode) schema(in Schema) (Schema, error) {
	return exprSchema("select", in, expandExprs(n.exprs, in, nil))
}

func (n *selectNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	exprs := expandExprs(n.exprs, df.Schema(), nil)
	cols, err := evalExprs(ctx, df, exprs)
	if err != nil {
		return nil, err
	}
	target := -1
	for i, e := range exprs {
		if !e.reducesToScalar() {
			target = cols[i].Len()
			break
		}
	}
	if target < 0 {
		target = 0
		for _, c := range cols {
			target = max(target, c.Len())
		}
	}
	for i, c := range cols {
		if cols[i], err = broadcastTo("select", c, target); err != nil {
			return nil, err
		}
	}
	return New(cols...)
}

// onlyPlainColumns reports whether the select just picks, reorders or
// renames columns.
func (n *selectNode) onlyPlainColumns() bool {
	for _, e := range n.exprs {
		if !e.isPlainColumn() {
			return false
		}
	}
	return true
}

type filterNode struct {
	pred *Expr
}

func (n *filterNode) name() string     { return "filter" }
func (n *filterNode) describe() string { return "FILTER " + n.pred.String() }

func (n *filterNode) schema(in Schema) (Schema, error) {
	if n.pred.isMulti() {
		return nil, schemaErr("filter", "predicate %s must produce a single column", n.pred)
	}
	dt, err := n.pred.resolveType(in)
	if err != nil {
		return nil, err
	}
	if dt != Boolean && dt != Null {
		return nil, typeErr("filter", "predicate %s has dtype %s, expected Boolean", n.pred, dt)
	}
	return in, nil
}

func (n *filterNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	mask, err := n.pred.eval(df)
	if err != nil {
		return nil, err
	}
	if mask, err = broadcastTo("filter", mask, df.Height()); err != nil {
		return nil, err
	}
	keep := make([]bool, df.Height())
	for i := range keep {
		v := mask.at(i)
		keep[i] = !v.IsNull() && v.b
	}
	return df.filterMask(keep), nil
}

type withColumnsNode struct {
	exprs []*Expr
}

func (n *withColumnsNode) name() string     { return "with_columns" }
func (n *withColumnsNode) describe() string { return "WITH_COLUMNS " + exprStrings(n.exprs) }

func (n *withColumnsNode) schema(in Schema) (Schema, error) {
	added, err := exprSchema("with_columns", in, expandExprs(n.exprs, in, nil))
	if err != nil {
		return nil, err
	}
	out := slices.Clone(in)
	for _, f := range added {
		if i := out.Index(f.Name); i >= 0 {
			out[i] = f
		} else {
			out = append(out, f)
		}
	}
	return out, nil
}

func (n *withColumnsNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	return applyWithColumns(ctx, df, expandExprs(n.exprs, df.Schema(), nil))
}

// produces returns the names the node writes.
func (n *withColumnsNode) produces(in Schema) []string {
	exprs := expandExprs(n.exprs, in, nil)
	names := make([]string, len(exprs))
	for i, e := range exprs {
		names[i] = e.OutputName()
	}
	return names
}

func (n *withColumnsNode) hasAgg() bool {
	for _, e := range n.exprs {
		if e.hasAgg() {
			return true
		}
	}
	return false
}

func applyWithColumns(ctx *execContext, df *DataFrame, exprs []*Expr) (*DataFrame, error) {
	cols, err := evalExprs(ctx, df, exprs)
	if err != nil {
		return nil, err
	}
	height := df.Height()
	if df.Width() == 0 {
		for _, c := range cols {
			height = max(height, c.Len())
		}
	}
	out := slices.Clone(df.columns)
	for _, c := range cols {
		if c, err = broadcastTo("with_columns", c, height); err != nil {
			return nil, err
		}
		if i := slices.IndexFunc(out, func(o *Column) bool { return o.name == c.name }); i >= 0 {
			out[i] = c
		} else {
			out = append(out, c)
		}
	}
	return newFrame(out), nil
}

type sortNode struct {
	by         []*Expr
	descending []bool
	nullsLast  bool
}

func (n *sortNode) name() string { return "sort" }

func (n *sortNode) describe() string {
	return fmt.Sprintf("SORT BY %s descending=%v nulls_last=%v", exprStrings(n.by), n.descending, n.nullsLast)
}

func (n *sortNode) schema(in Schema) (Schema, error) {
	if len(n.by) == 0 {
		return nil, argErr("sort", "at least one sort key is required")
	}
	for _, e := range n.by {
		if e.isMulti() {
			return nil, schemaErr("sort", "sort key %s must produce a single column", e)
		}
		if _, err := e.resolveType(in); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (n *sortNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	keys, err := evalExprs(ctx, df, n.by)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		if keys[i], err = broadcastTo("sort", k, df.Height()); err != nil {
			return nil, err
		}
	}
	idx := make([]int, df.Height())
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		for k, key := range keys {
			an, bn := key.isNullAt(a), key.isNullAt(b)
			switch {
			case an && bn:
				continue
			case an || bn:
				if an == n.nullsLast {
					return 1
				}
				return -1
			}
			cmp, _ := compareScalars(key.at(a), key.at(b))
			if cmp == 0 {
				continue
			}
			if n.descending[k] {
				return -cmp
			}
			return cmp
		}
		return 0
	})
	return df.take(idx), nil
}

type dropNode struct {
	names []string
}

func (n *dropNode) name() string     { return "drop" }
func (n *dropNode) describe() string { return "DROP " + quoteNames(n.names) }

func (n *dropNode) schema(in Schema) (Schema, error) {
	if err := requireColumns("drop", in, n.names); err != nil {
		return nil, err
	}
	out := make(Schema, 0, len(in))
	for _, f := range in {
		if !slices.Contains(n.names, f.Name) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (n *dropNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	cols := make([]*Column, 0, df.Width())
	for _, c := range df.columns {
		if !slices.Contains(n.names, c.name) {
			cols = append(cols, c)
		}
	}
	return newFrame(cols), nil
}

type renameNode struct {
	old []string
	new []string
}

func (n *renameNode) name() string { return "rename" }

func (n *renameNode) describe() string {
	pairs := make([]string, len(n.old))
	for i := range n.old {
		to := ""
		if i < len(n.new) {
			to = n.new[i]
		}
		pairs[i] = fmt.Sprintf("%q -> %q", n.old[i], to)
	}
	return "RENAME [" + strings.Join(pairs, ", ") + "]"
}

func (n *renameNode) mapping() map[string]string {
	m := make(map[string]string, len(n.old))
	for i, o := range n.old {
		m[o] = n.new[i]
	}
	return m
}

func (n *renameNode) schema(in Schema) (Schema, error) {
	if len(n.old) != len(n.new) {
		return nil, argErr("rename", "got %d existing names and %d new names", len(n.old), len(n.new))
	}
	if err := requireColumns("rename", in, n.old); err != nil {
		return nil, err
	}
	m := n.mapping()
	out := make(Schema, len(in))
	seen := make(map[string]bool, len(in))
	for i, f := range in {
		if to, ok := m[f.Name]; ok {
			f.Name = to
		}
		if seen[f.Name] {
			return nil, schemaErr("rename", "duplicate column name %q", f.Name)
		}
		seen[f.Name] = true
		out[i] = f
	}
	return out, nil
}

func (n *renameNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	m := n.mapping()
	cols := make([]*Column, df.Width())
	for i, c := range df.columns {
		if to, ok := m[c.name]; ok {
			c = c.Alias(to)
		}
		cols[i] = c
	}
	return newFrame(cols), nil
}

// UniqueKeep selects which row of a duplicate set Unique retains.
type UniqueKeep int

const (
	KeepFirst UniqueKeep = iota
	KeepLast
	KeepAny
	KeepNone
)

func (k UniqueKeep) String() string {
	return [...]string{"first", "last", "any", "none"}[k]
}

// ParseUniqueKeep parses "first", "last", "any" or "none".
func ParseUniqueKeep(s string) (UniqueKeep, error) {
	switch strings.ToLower(s) {
	case "first", "":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	case "any":
		return KeepAny, nil
	case "none":
		return KeepNone, nil
	}
	return KeepFirst, argErr("unique", "invalid keep strategy %q: use 'first', 'last', 'any' or 'none'", s)
}

type uniqueNode struct {
	subset []string
	keep   UniqueKeep
	err    error
}

func (n *uniqueNode) name() string { return "unique" }

func (n *uniqueNode) describe() string {
	return fmt.Sprintf("UNIQUE subset=%s keep=%s", quoteNames(n.subset), n.keep)
}

func (n *uniqueNode) schema(in Schema) (Schema, error) {
	if n.err != nil {
		return nil, n.err
	}
	if err := requireColumns("unique", in, n.subset); err != nil {
		return nil, err
	}
	return in, nil
}

func (n *uniqueNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	keys := df.columns
	if len(n.subset) > 0 {
		sub, err := df.selectNames("unique", n.subset)
		if err != nil {
			return nil, err
		}
		keys = sub.columns
	}
	groups, order := groupRows(keys, df.Height())
	var keep []int
	for _, g := range order {
		rows := groups[g]
		switch n.keep {
		case KeepFirst, KeepAny:
			keep = append(keep, rows[0])
		case KeepLast:
			keep = append(keep, rows[len(rows)-1])
		case KeepNone:
			if len(rows) == 1 {
				keep = append(keep, rows[0])
			}
		}
	}
	slices.Sort(keep)
	return df.take(keep), nil
}

type dropNullsNode struct {
	subset []string
}

func (n *dropNullsNode) name() string     { return "drop_nulls" }
func (n *dropNullsNode) describe() string { return "DROP_NULLS subset=" + quoteNames(n.subset) }

func (n *dropNullsNode) schema(in Schema) (Schema, error) {
	if err := requireColumns("drop_nulls", in, n.subset); err != nil {
		return nil, err
	}
	return in, nil
}

func (n *dropNullsNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	cols := df.columns
	if len(n.subset) > 0 {
		sub, err := df.selectNames("drop_nulls", n.subset)
		if err != nil {
			return nil, err
		}
		cols = sub.columns
	}
	keep := make([]bool, df.Height())
	for i := range keep {
		keep[i] = true
		for _, c := range cols {
			if c.isNullAt(i) {
				keep[i] = false
				break
			}
		}
	}
	return df.filterMask(keep), nil
}

// fillNullTarget decides whether a column of dtype col can take a fill value
// of dtype val and what dtype the filled column has.
func fillNullTarget(col, val DType) (DType, bool) {
	switch {
	case val == Null:
		return col, true
	case col == Null:
		return val, true
	case col.IsNumeric() && val.IsNumeric():
		if col.IsInteger() && val.IsFloat() {
			return Float64, true
		}
		return col, true
	case col == val:
		return col, true
	}
	return col, false
}

type fillNullNode struct {
	value *Expr
}

func (n *fillNullNode) name() string     { return "fill_null" }
func (n *fillNullNode) describe() string { return "FILL_NULL " + n.value.String() }

func (n *fillNullNode) plan(in Schema) ([]*Expr, Schema, error) {
	if n.value.isMulti() {
		return nil, nil, schemaErr("fill_null", "fill value %s must produce a single column", n.value)
	}
	vt, err := n.value.resolveType(in)
	if err != nil {
		return nil, nil, err
	}
	out := slices.Clone(in)
	var exprs []*Expr
	for i, f := range in {
		target, ok := fillNullTarget(f.DType, vt)
		if !ok {
			continue
		}
		e := Col(f.Name).FillNull(n.value)
		if st, _ := supertype(f.DType, vt); st != target {
			e = e.Cast(target)
		}
		exprs = append(exprs, e.Alias(f.Name))
		out[i].DType = target
	}
	return exprs, out, nil
}

func (n *fillNullNode) schema(in Schema) (Schema, error) {
	_, out, err := n.plan(in)
	return out, err
}

func (n *fillNullNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	exprs, _, err := n.plan(df.Schema())
	if err != nil {
		return nil, err
	}
	return applyWithColumns(ctx, df, exprs)
}

type fillNanNode struct {
	value *Expr
}

func (n *fillNanNode) name() string     { return "fill_nan" }
func (n *fillNanNode) describe() string { return "FILL_NAN " + n.value.String() }

func (n *fillNanNode) plan(in Schema) ([]*Expr, error) {
	if n.value.isMulti() {
		return nil, schemaErr("fill_nan", "fill value %s must produce a single column", n.value)
	}
	vt, err := n.value.resolveType(in)
	if err != nil {
		return nil, err
	}
	var exprs []*Expr
	for _, f := range in {
		if !f.DType.IsFloat() {
			continue
		}
		if _, err := binaryDType(OpFillNan, f.DType, vt); err != nil {
			return nil, err
		}
		exprs = append(exprs, Col(f.Name).FillNan(n.value).Cast(f.DType).Alias(f.Name))
	}
	return exprs, nil
}

func (n *fillNanNode) schema(in Schema) (Schema, error) {
	if _, err := n.plan(in); err != nil {
		return nil, err
	}
	return in, nil
}

func (n *fillNanNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	exprs, err := n.plan(df.Schema())
	if err != nil {
		return nil, err
	}
	return applyWithColumns(ctx, df, exprs)
}

type reverseNode struct{}

func (n *reverseNode) name() string                     { return "reverse" }
func (n *reverseNode) describe() string                 { return "REVERSE" }
func (n *reverseNode) schema(in Schema) (Schema, error) { return in, nil }

func (n *reverseNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	h := df.Height()
	idx := make([]int, h)
	for i := range idx {
		idx[i] = h - 1 - i
	}
	return df.take(idx), nil
}

type sliceNode struct {
	offset int
	length int
}

func (n *sliceNode) name() string { return "slice" }

func (n *sliceNode) describe() string {
	return fmt.Sprintf("SLICE offset=%d len=%d", n.offset, n.length)
}

func (n *sliceNode) schema(in Schema) (Schema, error) { return in, nil }

func (n *sliceNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	return df.Slice(n.offset, n.length), nil
}

type cacheSlot struct {
	mu sync.Mutex
	df *DataFrame
}

type cacheNode struct {
	id   uuid.UUID
	slot *cacheSlot
}

func newCacheNode() *cacheNode {
	return &cacheNode{id: uuid.New(), slot: &cacheSlot{}}
}

func (n *cacheNode) name() string                     { return "cache" }
func (n *cacheNode) describe() string                 { return "CACHE id=" + n.id.String() }
func (n *cacheNode) schema(in Schema) (Schema, error) { return in, nil }

func (n *cacheNode) load() *DataFrame {
	n.slot.mu.Lock()
	defer n.slot.mu.Unlock()
	return n.slot.df
}

func (n *cacheNode) exec(ctx *execContext, df *DataFrame) (*DataFrame, error) {
	n.slot.mu.Lock()
	defer n.slot.mu.Unlock()
	if n.slot.df == nil {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		ctx.logger.Debug("cache populated", zap.String("id", n.id.String()), zap.Int("rows", df.Height()))
		n.slot.df = df
	}
	return n.slot.df, nil
}

type explodeNode struct {
	columns []string
}

func (n *explodeNode) name() string     { return "explode" }
func (n *explodeNode) describe() string { return "EXPLODE " + quoteNames(n.columns) }

func (n *explodeNode) schema(in Schema) (Schema, error) {
	if len(n.columns) == 0 {
		return nil, argErr("explode", "at least one column is required")
	}
	if err := requireColumns("explode", in, n.columns); err != nil {
		return nil, err
	}
	return in, nil
}

// exec is the identity: no dtype holds nested values.
func (n *explodeNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	return df, nil
}

type unpivotNode struct {
	on    []string
	index []string
}

func (n *unpivotNode) name() string { return "unpivot" }

func (n *unpivotNode) describe() string {
	return fmt.Sprintf("UNPIVOT on=%s index=%s", quoteNames(n.on), quoteNames(n.index))
}

// resolve returns the value columns and the value dtype.
func (n *unpivotNode) resolve(in Schema) ([]string, DType, error) {
	if err := requireColumns("unpivot", in, n.index); err != nil {
		return nil, Null, err
	}
	if err := requireColumns("unpivot", in, n.on); err != nil {
		return nil, Null, err
	}
	for _, reserved := range []string{"variable", "value"} {
		if slices.Contains(n.index, reserved) {
			return nil, Null, schemaErr("unpivot", "index column %q collides with the output column", reserved)
		}
	}
	on := n.on
	if len(on) == 0 {
		for _, f := range in {
			if !slices.Contains(n.index, f.Name) {
				on = append(on, f.Name)
			}
		}
	}
	dtype := Null
	for i, name := range on {
		dt, _ := in.Lookup(name)
		if i == 0 {
			dtype = dt
			continue
		}
		st, ok := supertype(dtype, dt)
		if !ok {
			st = String
		}
		dtype = st
	}
	return on, dtype, nil
}

func (n *unpivotNode) schema(in Schema) (Schema, error) {
	_, dtype, err := n.resolve(in)
	if err != nil {
		return nil, err
	}
	out := make(Schema, 0, len(n.index)+2)
	for _, name := range n.index {
		dt, _ := in.Lookup(name)
		out = append(out, Field{Name: name, DType: dt})
	}
	return append(out, Field{Name: "variable", DType: String}, Field{Name: "value", DType: dtype}), nil
}

func (n *unpivotNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	on, dtype, err := n.resolve(df.Schema())
	if err != nil {
		return nil, err
	}
	h := df.Height()
	idx := make([]int, 0, h*len(on))
	for range on {
		for i := 0; i < h; i++ {
			idx = append(idx, i)
		}
	}
	cols := make([]*Column, 0, len(n.index)+2)
	for _, name := range n.index {
		c, _ := df.column(name)
		cols = append(cols, c.take(idx))
	}
	variable := NewBuilder("variable", String, len(idx))
	value := NewBuilder("value", dtype, len(idx))
	for _, name := range on {
		c, _ := df.column(name)
		for i := 0; i < h; i++ {
			variable.Append(Str(name))
			value.Append(c.at(i))
		}
	}
	return newFrame(append(cols, variable.Finish(), value.Finish())), nil
}

type castNode struct {
	dtypes map[string]DType
	strict bool
}

func (n *castNode) name() string { return "cast" }

func (n *castNode) sortedNames() []string {
	names := make([]string, 0, len(n.dtypes))
	for name := range n.dtypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (n *castNode) describe() string {
	parts := make([]string, 0, len(n.dtypes))
	for _, name := range n.sortedNames() {
		parts = append(parts, fmt.Sprintf("%s: %s", name, n.dtypes[name]))
	}
	return fmt.Sprintf("CAST {%s} strict=%v", strings.Join(parts, ", "), n.strict)
}

func (n *castNode) schema(in Schema) (Schema, error) {
	if err := requireColumns("cast", in, n.sortedNames()); err != nil {
		return nil, err
	}
	out := slices.Clone(in)
	for i, f := range out {
		if dt, ok := n.dtypes[f.Name]; ok {
			out[i].DType = dt
		}
	}
	return out, nil
}

func (n *castNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	cols := slices.Clone(df.columns)
	for i, c := range cols {
		dt, ok := n.dtypes[c.name]
		if !ok {
			continue
		}
		cast, err := c.Cast(dt, n.strict)
		if err != nil {
			return nil, err
		}
		cols[i] = cast
	}
	return newFrame(cols), nil
}

type rowIndexNode struct {
	column string
	offset uint32
}

func (n *rowIndexNode) name() string { return "row_index" }

func (n *rowIndexNode) describe() string {
	return fmt.Sprintf("ROW_INDEX name=%q offset=%d", n.column, n.offset)
}

func (n *rowIndexNode) schema(in Schema) (Schema, error) {
	if in.Index(n.column) >= 0 {
		return nil, schemaErr("with_row_index", "duplicate column name %q", n.column)
	}
	return append(Schema{{Name: n.column, DType: UInt32}}, in...), nil
}

func (n *rowIndexNode) exec(_ *execContext, df *DataFrame) (*DataFrame, error) {
	b := NewBuilder(n.column, UInt32, df.Height())
	for i := 0; i < df.Height(); i++ {
		b.Append(unsignedScalar(UInt32, wrapUnsigned(uint64(n.offset)+uint64(i), UInt32)))
	}
	return newFrame(append([]*Column{b.Finish()}, df.columns...)), nil
}
