package frame

import (
	"fmt"
	"strings"
)

type exprKind int

const (
	exprColumn exprKind = iota
	exprColumns
	exprWildcard
	exprLiteral
	exprAlias
	exprUnary
	exprBinary
	exprAgg
	exprCast
	exprInvalid
)

// UnaryOp is an element-wise operator with one input.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
	OpIsNull
	OpIsNotNull
	OpIsNaN
	OpIsNotNaN
)

var unaryNames = [...]string{
	OpNeg:       "neg",
	OpNot:       "not",
	OpIsNull:    "is_null",
	OpIsNotNull: "is_not_null",
	OpIsNaN:     "is_nan",
	OpIsNotNaN:  "is_not_nan",
}

func (op UnaryOp) String() string { return unaryNames[op] }

// BinaryOp is an element-wise operator with two inputs.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpAnd
	OpOr
	OpXor
	OpFillNull
	OpFillNan
)

var binarySymbols = [...]string{
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpPow:      "**",
	OpAnd:      "&",
	OpOr:       "|",
	OpXor:      "^",
	OpFillNull: "fill_null",
	OpFillNan:  "fill_nan",
}

func (op BinaryOp) String() string { return binarySymbols[op] }

func (op BinaryOp) isComparison() bool { return op <= OpGe }

func (op BinaryOp) isLogical() bool { return op == OpAnd || op == OpOr || op == OpXor }

// Expr is an immutable description of a computation over the columns of a
// frame. It is only evaluated inside plan execution.
type Expr struct {
	kind   exprKind
	name   string
	names  []string
	value  Scalar
	unary  UnaryOp
	binary BinaryOp
	agg    AggKind
	args   reduceArgs
	dtype  DType
	strict bool
	left   *Expr
	right  *Expr
	err    error
}

// Col references a column by name. The name "*" is the wildcard.
func Col(name string) *Expr {
	if name == "*" {
		return All()
	}
	return &Expr{kind: exprColumn, name: name}
}

// Cols references several columns; it expands to one expression per column.
func Cols(names ...string) *Expr {
	if len(names) == 1 {
		return Col(names[0])
	}
	return &Expr{kind: exprColumns, names: append([]string(nil), names...)}
}

// All references every column of the input.
func All() *Expr {
	return &Expr{kind: exprWildcard}
}

// Lit wraps a host value as a literal. An unsupported value yields an
// expression that fails when the plan is resolved.
func Lit(v interface{}) *Expr {
	return lift(v)
}

// lift converts any combinator argument into an expression.
func lift(v interface{}) *Expr {
	switch x := v.(type) {
	case *Expr:
		if x == nil {
			return &Expr{kind: exprLiteral, value: NullValue}
		}
		return x
	case Expr:
		return &x
	}
	s, err := ScalarOf(v)
	if err != nil {
		return &Expr{kind: exprInvalid, err: err}
	}
	return &Expr{kind: exprLiteral, value: s}
}

func (e *Expr) unaryOp(op UnaryOp) *Expr {
	return &Expr{kind: exprUnary, unary: op, left: e}
}

func (e *Expr) binaryOp(op BinaryOp, other interface{}) *Expr {
	return &Expr{kind: exprBinary, binary: op, left: e, right: lift(other)}
}

func (e *Expr) aggregate(kind AggKind, args reduceArgs) *Expr {
	return &Expr{kind: exprAgg, agg: kind, args: args, left: e}
}

// Alias renames the expression output
func (e *Expr) Alias(name string) *Expr {
	return &Expr{kind: exprAlias, name: name, left: e}
}

func (e *Expr) Eq(other interface{}) *Expr       { return e.binaryOp(OpEq, other) }
func (e *Expr) Ne(other interface{}) *Expr       { return e.binaryOp(OpNe, other) }
func (e *Expr) Lt(other interface{}) *Expr       { return e.binaryOp(OpLt, other) }
func (e *Expr) Le(other interface{}) *Expr       { return e.binaryOp(OpLe, other) }
func (e *Expr) Gt(other interface{}) *Expr       { return e.binaryOp(OpGt, other) }
func (e *Expr) Ge(other interface{}) *Expr       { return e.binaryOp(OpGe, other) }
func (e *Expr) Add(other interface{}) *Expr      { return e.binaryOp(OpAdd, other) }
func (e *Expr) Sub(other interface{}) *Expr      { return e.binaryOp(OpSub, other) }
func (e *Expr) Mul(other interface{}) *Expr      { return e.binaryOp(OpMul, other) }
func (e *Expr) Div(other interface{}) *Expr      { return e.binaryOp(OpDiv, other) }
func (e *Expr) FloorDiv(other interface{}) *Expr { return e.binaryOp(OpFloorDiv, other) }
func (e *Expr) Mod(other interface{}) *Expr      { return e.binaryOp(OpMod, other) }
func (e *Expr) Pow(other interface{}) *Expr      { return e.binaryOp(OpPow, other) }
func (e *Expr) And(other interface{}) *Expr      { return e.binaryOp(OpAnd, other) }
func (e *Expr) Or(other interface{}) *Expr       { return e.binaryOp(OpOr, other) }
func (e *Expr) Xor(other interface{}) *Expr      { return e.binaryOp(OpXor, other) }

// FillNull replaces nulls with value
func (e *Expr) FillNull(value interface{}) *Expr { return e.binaryOp(OpFillNull, value) }

// FillNan replaces NaN values of a float expression with value
func (e *Expr) FillNan(value interface{}) *Expr { return e.binaryOp(OpFillNan, value) }

func (e *Expr) Neg() *Expr       { return e.unaryOp(OpNeg) }
func (e *Expr) Not() *Expr       { return e.unaryOp(OpNot) }
func (e *Expr) IsNull() *Expr    { return e.unaryOp(OpIsNull) }
func (e *Expr) IsNotNull() *Expr { return e.unaryOp(OpIsNotNull) }
func (e *Expr) IsNaN() *Expr     { return e.unaryOp(OpIsNaN) }
func (e *Expr) IsNotNaN() *Expr  { return e.unaryOp(OpIsNotNaN) }

// ClosedInterval selects which bounds of a range test are inclusive.
type ClosedInterval int

const (
	ClosedBoth ClosedInterval = iota
	ClosedLeft
	ClosedRight
	ClosedNone
)

func (c ClosedInterval) String() string {
	switch c {
	case ClosedLeft:
		return "left"
	case ClosedRight:
		return "right"
	case ClosedNone:
		return "none"
	}
	return "both"
}

// ParseClosedInterval parses "both", "left", "right" or "none".
func ParseClosedInterval(s string) (ClosedInterval, error) {
	switch strings.ToLower(s) {
	case "both":
		return ClosedBoth, nil
	case "left":
		return ClosedLeft, nil
	case "right":
		return ClosedRight, nil
	case "none":
		return ClosedNone, nil
	}
	return ClosedBoth, argErr("is_between", "invalid closed interval %q: use 'both', 'left', 'right' or 'none'", s)
}

// IsBetween tests lower <op> e <op> upper where closed picks the inclusive
// bounds. An invalid closed value fails at resolution.
func (e *Expr) IsBetween(lower, upper interface{}, closed string) *Expr {
	c, err := ParseClosedInterval(closed)
	if err != nil {
		return &Expr{kind: exprInvalid, err: err}
	}
	lo, hi := e.Ge(lower), e.Le(upper)
	if c == ClosedRight || c == ClosedNone {
		lo = e.Gt(lower)
	}
	if c == ClosedLeft || c == ClosedNone {
		hi = e.Lt(upper)
	}
	return lo.And(hi)
}

func (e *Expr) Sum() *Expr       { return e.aggregate(AggSum, reduceArgs{}) }
func (e *Expr) Mean() *Expr      { return e.aggregate(AggMean, reduceArgs{}) }
func (e *Expr) Median() *Expr    { return e.aggregate(AggMedian, reduceArgs{}) }
func (e *Expr) Min() *Expr       { return e.aggregate(AggMin, reduceArgs{}) }
func (e *Expr) Max() *Expr       { return e.aggregate(AggMax, reduceArgs{}) }
func (e *Expr) Count() *Expr     { return e.aggregate(AggCount, reduceArgs{}) }
func (e *Expr) NUnique() *Expr   { return e.aggregate(AggNUnique, reduceArgs{}) }
func (e *Expr) First() *Expr     { return e.aggregate(AggFirst, reduceArgs{}) }
func (e *Expr) Last() *Expr      { return e.aggregate(AggLast, reduceArgs{}) }
func (e *Expr) Len() *Expr       { return e.aggregate(AggLen, reduceArgs{}) }
func (e *Expr) Product() *Expr   { return e.aggregate(AggProduct, reduceArgs{}) }
func (e *Expr) NullCount() *Expr { return e.aggregate(AggNullCount, reduceArgs{}) }
func (e *Expr) NanMax() *Expr    { return e.aggregate(AggNanMax, reduceArgs{}) }
func (e *Expr) NanMin() *Expr    { return e.aggregate(AggNanMin, reduceArgs{}) }
func (e *Expr) HasNulls() *Expr  { return e.aggregate(AggHasNulls, reduceArgs{}) }
func (e *Expr) Any() *Expr       { return e.aggregate(AggAny, reduceArgs{}) }
func (e *Expr) All() *Expr       { return e.aggregate(AggAll, reduceArgs{}) }

// Std is the standard deviation with denominator n - ddof
func (e *Expr) Std(ddof int) *Expr { return e.aggregate(AggStd, reduceArgs{ddof: ddof}) }

// Var is the variance with denominator n - ddof
func (e *Expr) Var(ddof int) *Expr { return e.aggregate(AggVar, reduceArgs{ddof: ddof}) }

// Quantile is the nearest-rank quantile q in [0, 1]
func (e *Expr) Quantile(q float64) *Expr {
	return e.aggregate(AggQuantile, reduceArgs{quantile: q})
}

// Cast converts values to dtype, turning failed conversions into nulls.
func (e *Expr) Cast(dtype DType) *Expr {
	return &Expr{kind: exprCast, dtype: dtype, left: e}
}

// StrictCast converts values to dtype and fails on the first value that
// cannot be converted.
func (e *Expr) StrictCast(dtype DType) *Expr {
	return &Expr{kind: exprCast, dtype: dtype, strict: true, left: e}
}

// String renders the expression for plan explanations and error messages.
func (e *Expr) String() string {
	switch e.kind {
	case exprColumn:
		return fmt.Sprintf("col(%q)", e.name)
	case exprColumns:
		return fmt.Sprintf("cols(%s)", strings.Join(e.names, ", "))
	case exprWildcard:
		return "*"
	case exprLiteral:
		return "lit(" + e.value.quoted() + ")"
	case exprAlias:
		return fmt.Sprintf("%s.alias(%q)", e.left, e.name)
	case exprUnary:
		return fmt.Sprintf("%s.%s()", e.left, e.unary)
	case exprBinary:
		if e.binary == OpFillNull || e.binary == OpFillNan {
			return fmt.Sprintf("%s.%s(%s)", e.left, e.binary, e.right)
		}
		return fmt.Sprintf("[(%s) %s (%s)]", e.left, e.binary, e.right)
	case exprAgg:
		switch e.agg {
		case AggStd, AggVar:
			return fmt.Sprintf("%s.%s(ddof=%d)", e.left, e.agg, e.args.ddof)
		case AggQuantile:
			return fmt.Sprintf("%s.quantile(%v)", e.left, e.args.quantile)
		}
		return fmt.Sprintf("%s.%s()", e.left, e.agg)
	case exprCast:
		if e.strict {
			return fmt.Sprintf("%s.strict_cast(%s)", e.left, e.dtype)
		}
		return fmt.Sprintf("%s.cast(%s)", e.left, e.dtype)
	case exprInvalid:
		return fmt.Sprintf("<invalid: %v>", e.err)
	}
	return "<unknown>"
}

// OutputName is the name the expression's result column takes: the alias,
// else the left-most referenced column, else "literal".
func (e *Expr) OutputName() string {
	if e.kind == exprAlias {
		return e.name
	}
	if name, ok := e.leftmostColumn(); ok {
		return name
	}
	return "literal"
}

func (e *Expr) leftmostColumn() (string, bool) {
	switch e.kind {
	case exprColumn:
		return e.name, true
	case exprAlias:
		return e.name, true
	case exprLiteral, exprInvalid, exprWildcard, exprColumns:
		return "", false
	}
	if e.left != nil {
		if name, ok := e.left.leftmostColumn(); ok {
			return name, true
		}
	}
	if e.right != nil {
		return e.right.leftmostColumn()
	}
	return "", false
}

// columns returns every column name the expression reads.
func (e *Expr) columns() []string {
	var out []string
	e.walk(func(n *Expr) {
		switch n.kind {
		case exprColumn:
			out = append(out, n.name)
		case exprColumns:
			out = append(out, n.names...)
		}
	})
	return out
}

func (e *Expr) walk(fn func(*Expr)) {
	fn(e)
	if e.left != nil {
		e.left.walk(fn)
	}
	if e.right != nil {
		e.right.walk(fn)
	}
}

// isMulti reports whether the expression expands to several outputs.
func (e *Expr) isMulti() bool {
	found := false
	e.walk(func(n *Expr) {
		if n.kind == exprWildcard || n.kind == exprColumns {
			found = true
		}
	})
	return found
}

// isPlainColumn reports whether e is a bare column reference, optionally aliased.
func (e *Expr) isPlainColumn() bool {
	return e.kind == exprColumn || (e.kind == exprAlias && e.left.kind == exprColumn)
}

// reducesToScalar reports whether every path through e ends in an
// aggregation or a literal, so the result has exactly one row.
func (e *Expr) reducesToScalar() bool {
	switch e.kind {
	case exprLiteral, exprAgg:
		return true
	case exprColumn, exprColumns, exprWildcard:
		return false
	case exprBinary:
		return e.left.reducesToScalar() && e.right.reducesToScalar()
	case exprInvalid:
		return true
	}
	return e.left.reducesToScalar()
}

// hasAgg reports whether any aggregation appears in the tree.
func (e *Expr) hasAgg() bool {
	found := false
	e.walk(func(n *Expr) {
		if n.kind == exprAgg {
			found = true
		}
	})
	return found
}

// replaceMulti substitutes every multi-column node with a reference to name.
func (e *Expr) replaceMulti(name string) *Expr {
	switch e.kind {
	case exprWildcard, exprColumns:
		return Col(name)
	case exprColumn, exprLiteral, exprInvalid:
		return e
	}
	out := *e
	if e.left != nil {
		out.left = e.left.replaceMulti(name)
	}
	if e.right != nil {
		out.right = e.right.replaceMulti(name)
	}
	return &out
}

// multiNames returns the columns the first multi-column node expands to.
func (e *Expr) multiNames(schema Schema, exclude map[string]bool) []string {
	var names []string
	done := false
	e.walk(func(n *Expr) {
		if done {
			return
		}
		switch n.kind {
		case exprWildcard:
			for _, f := range schema {
				if !exclude[f.Name] {
					names = append(names, f.Name)
				}
			}
			done = true
		case exprColumns:
			names = append(names, n.names...)
			done = true
		}
	})
	return names
}

// expandExprs resolves wildcards and column lists against schema.
func expandExprs(exprs []*Expr, schema Schema, exclude map[string]bool) []*Expr {
	out := make([]*Expr, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if !e.isMulti() {
			out = append(out, e)
			continue
		}
		for _, name := range e.multiNames(schema, exclude) {
			out = append(out, e.replaceMulti(name))
		}
	}
	return out
}

func exprStrings(exprs []*Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
