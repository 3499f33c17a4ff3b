package query

import (
	"fmt"
	"math"

	"github.com/vegasq/colframe/frame"
)

// Apply appends the statement's clauses to lf and returns the resulting
// plan. The FROM source is not opened here; callers scan it themselves.
//
// Clauses run in SQL order: WHERE, GROUP BY with the select list as
// aggregations, HAVING, the final projection, DISTINCT, ORDER BY and
// LIMIT/OFFSET. HAVING and ORDER BY refer to output column names.
func (s *Statement) Apply(lf *frame.LazyFrame) (*frame.LazyFrame, error) {
	items, err := s.resolveItems(lf)
	if err != nil {
		return nil, err
	}

	if s.Where != nil {
		lf = lf.Filter(s.Where)
	}

	switch {
	case len(s.GroupBy) > 0:
		lf = s.applyGroupBy(lf, items)
	case s.Having != nil:
		return nil, fmt.Errorf("%w: HAVING requires GROUP BY", ErrSyntax)
	case !s.IsStar():
		lf = lf.Select(items...)
	}

	if s.Distinct {
		lf = lf.Unique(nil, "first")
	}

	if len(s.OrderBy) > 0 {
		by := make([]*frame.Expr, len(s.OrderBy))
		desc := make([]bool, len(s.OrderBy))
		for i, o := range s.OrderBy {
			by[i] = o.Expr
			desc[i] = o.Descending
		}
		lf = lf.SortBy(by, desc, s.NullsLast)
	}

	if s.Limit >= 0 || s.Offset > 0 {
		length := s.Limit
		if length < 0 {
			length = math.MaxInt32
		}
		lf = lf.Slice(s.Offset, length)
	}
	return lf, nil
}

// resolveItems turns select items into expressions. count(*) becomes the
// length of the first input column, so the schema is only resolved when it
// appears.
func (s *Statement) resolveItems(lf *frame.LazyFrame) ([]*frame.Expr, error) {
	items := make([]*frame.Expr, len(s.Items))
	for i, item := range s.Items {
		expr := item.Expr
		if item.CountStar {
			schema, err := lf.CollectSchema()
			if err != nil {
				return nil, err
			}
			if len(schema) == 0 {
				return nil, fmt.Errorf("%w: count(*) over a source without columns", ErrSyntax)
			}
			name := item.Alias
			if name == "" {
				name = "count"
			}
			items[i] = frame.Col(schema[0].Name).Len().Alias(name)
			continue
		}
		if item.Alias != "" {
			expr = expr.Alias(item.Alias)
		}
		items[i] = expr
	}
	return items, nil
}

// applyGroupBy aggregates every select item that is not a group key, then
// projects the select list in its written order.
func (s *Statement) applyGroupBy(lf *frame.LazyFrame, items []*frame.Expr) *frame.LazyFrame {
	keys := make(map[string]string, len(s.GroupBy))
	for _, k := range s.GroupBy {
		keys[k.String()] = k.OutputName()
	}

	var aggs []*frame.Expr
	final := make([]*frame.Expr, 0, len(items))
	for i, item := range s.Items {
		if item.Expr != nil {
			if keyName, ok := keys[item.Expr.String()]; ok {
				col := frame.Col(keyName)
				if item.Alias != "" {
					col = col.Alias(item.Alias)
				}
				final = append(final, col)
				continue
			}
		}
		if s.IsStar() {
			break
		}
		aggs = append(aggs, items[i])
		final = append(final, frame.Col(items[i].OutputName()))
	}

	lf = lf.GroupBy(s.GroupBy...).Agg(aggs...)
	if s.Having != nil {
		lf = lf.Filter(s.Having)
	}
	if s.IsStar() {
		return lf
	}
	return lf.Select(final...)
}
