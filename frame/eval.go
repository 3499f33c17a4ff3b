package frame

import (
	"math"
)

// typeOf infers the result dtype of an expanded expression against schema.
func (e *Expr) typeOf(schema Schema) (DType, error) {
	switch e.kind {
	case exprColumn:
		dt, ok := schema.Lookup(e.name)
		if !ok {
			return Null, schemaErr("resolve", "column %q not found in %s", e.name, schema)
		}
		return dt, nil
	case exprColumns, exprWildcard:
		return Null, schemaErr("resolve", "%s must be expanded before it is resolved", e)
	case exprLiteral:
		return e.value.dtype, nil
	case exprInvalid:
		return Null, e.err
	}
	lt, err := e.left.typeOf(schema)
	if err != nil {
		return Null, err
	}
	switch e.kind {
	case exprAlias:
		return lt, nil
	case exprCast:
		return e.dtype, nil
	case exprAgg:
		return aggDType(e.agg, lt, e.args)
	case exprUnary:
		return unaryDType(e.unary, lt)
	}
	rt, err := e.right.typeOf(schema)
	if err != nil {
		return Null, err
	}
	return binaryDType(e.binary, lt, rt)
}

// resolveType infers the dtype and names the failing expression on error.
func (e *Expr) resolveType(schema Schema) (DType, error) {
	dt, err := e.typeOf(schema)
	if err != nil {
		return Null, WrapError(err, kindOf(err), "resolve", "expression %s", e)
	}
	return dt, nil
}

func kindOf(err error) ErrorKind {
	for _, k := range []ErrorKind{KindSchema, KindType, KindArgument, KindBounds, KindCodec} {
		if IsKind(err, k) {
			return k
		}
	}
	return KindExecution
}

func unaryDType(op UnaryOp, in DType) (DType, error) {
	switch op {
	case OpNeg:
		if in.IsSigned() || in.IsFloat() || in == Null {
			return in, nil
		}
		return Null, typeErr("neg", "cannot negate %s", in)
	case OpNot:
		if in == Boolean || in == Null {
			return Boolean, nil
		}
		return Null, typeErr("not", "expected Boolean, got %s", in)
	case OpIsNaN, OpIsNotNaN:
		if in.IsFloat() || in == Null {
			return Boolean, nil
		}
		return Null, typeErr(op.String(), "expected a float dtype, got %s", in)
	}
	return Boolean, nil
}

// arithDType is the working dtype of an arithmetic operation.
func arithDType(op BinaryOp, l, r DType) (DType, error) {
	if op == OpAdd && (l == String || r == String) {
		if (l == String || l == Null) && (r == String || r == Null) {
			return String, nil
		}
	}
	if l == String || r == String {
		return Null, typeErr(op.String(), "unsupported operand dtypes %s and %s", l, r)
	}
	if op == OpDiv || op == OpPow {
		return Float64, nil
	}
	if l == Boolean {
		l = Int64
	}
	if r == Boolean {
		r = Int64
	}
	st, _ := supertype(l, r)
	return st, nil
}

func binaryDType(op BinaryOp, l, r DType) (DType, error) {
	switch {
	case op.isComparison():
		if l == Null || r == Null || l == r {
			return Boolean, nil
		}
		if l.IsNumeric() && r.IsNumeric() {
			return Boolean, nil
		}
		return Null, typeErr(op.String(), "cannot compare %s with %s", l, r)
	case op.isLogical():
		if (l == Boolean || l == Null) && (r == Boolean || r == Null) {
			return Boolean, nil
		}
		return Null, typeErr(op.String(), "expected Boolean operands, got %s and %s", l, r)
	case op == OpFillNull:
		st, ok := supertype(l, r)
		if !ok {
			return Null, typeErr("fill_null", "cannot fill %s nulls with a %s value", l, r)
		}
		return st, nil
	case op == OpFillNan:
		if !l.IsFloat() {
			return l, nil
		}
		if r != Null && !r.IsNumeric() {
			return Null, typeErr("fill_nan", "cannot fill %s NaN values with a %s value", l, r)
		}
		st, _ := supertype(l, r)
		return st, nil
	}
	return arithDType(op, l, r)
}

// eval computes the expression over df. The result has df's height or, for
// reductions and literals, a single row.
func (e *Expr) eval(df *DataFrame) (*Column, error) {
	col, err := e.evalNode(df)
	if err != nil {
		return nil, WrapError(err, kindOf(err), "evaluate", "expression %s", e)
	}
	if col.name != e.OutputName() {
		col = col.Alias(e.OutputName())
	}
	return col, nil
}

func (e *Expr) evalNode(df *DataFrame) (*Column, error) {
	switch e.kind {
	case exprColumn:
		c, ok := df.column(e.name)
		if !ok {
			return nil, schemaErr("evaluate", "column %q not found in %s", e.name, df.Schema())
		}
		return c, nil
	case exprColumns, exprWildcard:
		return nil, schemaErr("evaluate", "%s must be expanded before it is evaluated", e)
	case exprLiteral:
		return Repeat("literal", e.value.dtype, e.value, 1), nil
	case exprInvalid:
		return nil, e.err
	}
	in, err := e.left.evalNode(df)
	if err != nil {
		return nil, err
	}
	switch e.kind {
	case exprAlias:
		return in.Alias(e.name), nil
	case exprCast:
		return in.Cast(e.dtype, e.strict)
	case exprAgg:
		dt, err := aggDType(e.agg, in.dtype, e.args)
		if err != nil {
			return nil, err
		}
		s, err := reduce(e.agg, in, e.args)
		if err != nil {
			return nil, err
		}
		return Repeat(in.name, dt, s, 1), nil
	case exprUnary:
		return unaryKernel(e.unary, in)
	}
	rhs, err := e.right.evalNode(df)
	if err != nil {
		return nil, err
	}
	return binaryKernel(e.binary, in, rhs)
}

func unaryKernel(op UnaryOp, c *Column) (*Column, error) {
	dt, err := unaryDType(op, c.dtype)
	if err != nil {
		return nil, err
	}
	switch op {
	case OpIsNull:
		return c.IsNull(), nil
	case OpIsNotNull:
		return c.IsNotNull(), nil
	case OpIsNaN:
		return c.IsNaN()
	case OpIsNotNaN:
		return c.IsNotNaN()
	}
	b := NewBuilder(c.name, dt, c.Len())
	for i := 0; i < c.Len(); i++ {
		v := c.at(i)
		switch {
		case v.IsNull():
			b.AppendNull()
		case op == OpNot:
			b.Append(Bool(!v.b))
		case v.dtype.IsFloat():
			b.Append(floatScalar(v.dtype, -v.f))
		default:
			b.Append(signedScalar(v.dtype, wrapSigned(-v.i, v.dtype)))
		}
	}
	return b.Finish(), nil
}

// broadcastLen returns the output length of combining columns of length a
// and b, where a single row broadcasts against any length.
func broadcastLen(a, b int) (int, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	}
	return 0, false
}

func binaryKernel(op BinaryOp, l, r *Column) (*Column, error) {
	dt, err := binaryDType(op, l.dtype, r.dtype)
	if err != nil {
		return nil, err
	}
	n, ok := broadcastLen(l.Len(), r.Len())
	if !ok {
		return nil, schemaErr(op.String(), "operand lengths %d and %d differ", l.Len(), r.Len())
	}
	li, ri := 1, 1
	if l.Len() == 1 && n != 1 {
		li = 0
	}
	if r.Len() == 1 && n != 1 {
		ri = 0
	}
	b := NewBuilder(l.name, dt, n)
	for i := 0; i < n; i++ {
		v, err := binaryScalar(op, dt, l.at(i*li), r.at(i*ri))
		if err != nil {
			return nil, err
		}
		b.Append(v)
	}
	return b.Finish(), nil
}

// binaryScalar applies op to a single pair of values; dt is the result dtype.
func binaryScalar(op BinaryOp, dt DType, a, b Scalar) (Scalar, error) {
	switch op {
	case OpFillNull:
		if a.IsNull() {
			return b, nil
		}
		return a, nil
	case OpFillNan:
		if a.dtype.IsFloat() && math.IsNaN(a.f) {
			return b, nil
		}
		return a, nil
	case OpAnd, OpOr:
		return kleene(op, a, b), nil
	}
	if a.IsNull() || b.IsNull() {
		return NullValue, nil
	}
	if op.isComparison() {
		cmp, err := compareScalars(a, b)
		if err != nil {
			return NullValue, err
		}
		return Bool(compareResult(op, cmp)), nil
	}
	if op == OpXor {
		return Bool(a.b != b.b), nil
	}
	if dt == String {
		return Str(a.s + b.s), nil
	}
	a, _ = castScalar(a, dt, false)
	b, _ = castScalar(b, dt, false)
	switch dt.physical() {
	case physFloat:
		return floatScalar(dt, floatArith(op, a.f, b.f)), nil
	case physUint:
		v, ok := uintArith(op, a.u, b.u)
		if !ok {
			return NullValue, nil
		}
		return unsignedScalar(dt, wrapUnsigned(v, dt)), nil
	case physInt:
		v, ok := intArith(op, a.i, b.i)
		if !ok {
			return NullValue, nil
		}
		return signedScalar(dt, wrapSigned(v, dt)), nil
	}
	return NullValue, nil
}

func compareResult(op BinaryOp, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	}
	return cmp >= 0
}

// kleene implements three-valued AND/OR.
func kleene(op BinaryOp, a, b Scalar) Scalar {
	an, bn := a.IsNull(), b.IsNull()
	if op == OpAnd {
		if (!an && !a.b) || (!bn && !b.b) {
			return Bool(false)
		}
		if an || bn {
			return NullValue
		}
		return Bool(true)
	}
	if (!an && a.b) || (!bn && b.b) {
		return Bool(true)
	}
	if an || bn {
		return NullValue
	}
	return Bool(false)
}

func floatArith(op BinaryOp, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpFloorDiv:
		return math.Floor(a / b)
	case OpMod:
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m
	case OpPow:
		return math.Pow(a, b)
	}
	return math.NaN()
}

// intArith wraps on overflow; floor division and modulo by zero are not defined.
func intArith(op BinaryOp, a, b int64) (int64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpFloorDiv:
		if b == 0 {
			return 0, false
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return q, true
	case OpMod:
		if b == 0 {
			return 0, false
		}
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return m, true
	}
	return 0, false
}

func uintArith(op BinaryOp, a, b uint64) (uint64, bool) {
	switch op {
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	case OpMul:
		return a * b, true
	case OpFloorDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case OpMod:
		if b == 0 {
			return 0, false
		}
		return a % b, true
	}
	return 0, false
}
