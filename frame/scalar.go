package frame

import (
	"math"
	"strconv"
)

// Scalar is a single typed value. A Scalar whose dtype is Null is the null value.
type Scalar struct {
	dtype DType
	i     int64
	u     uint64
	f     float64
	s     string
	b     bool
}

// NullValue is the untyped null scalar.
var NullValue = Scalar{}

// Int returns an Int64 scalar
func Int(v int64) Scalar { return Scalar{dtype: Int64, i: v} }

// UInt returns a UInt64 scalar
func UInt(v uint64) Scalar { return Scalar{dtype: UInt64, u: v} }

// Float returns a Float64 scalar
func Float(v float64) Scalar { return Scalar{dtype: Float64, f: v} }

// Str returns a String scalar
func Str(v string) Scalar { return Scalar{dtype: String, s: v} }

// Bool returns a Boolean scalar
func Bool(v bool) Scalar { return Scalar{dtype: Boolean, b: v} }

func signedScalar(d DType, v int64) Scalar   { return Scalar{dtype: d, i: v} }
func unsignedScalar(d DType, v uint64) Scalar { return Scalar{dtype: d, u: v} }
func floatScalar(d DType, v float64) Scalar {
	if d == Float32 {
		v = float64(float32(v))
	}
	return Scalar{dtype: d, f: v}
}

// ScalarOf lifts a host value into a Scalar. Supported inputs are Go integer,
// float, string and bool kinds, nil and Scalar itself.
func ScalarOf(v interface{}) (Scalar, error) {
	switch x := v.(type) {
	case nil:
		return NullValue, nil
	case Scalar:
		return x, nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return signedScalar(Int8, int64(x)), nil
	case int16:
		return signedScalar(Int16, int64(x)), nil
	case int32:
		return signedScalar(Int32, int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return UInt(uint64(x)), nil
	case uint8:
		return unsignedScalar(UInt8, uint64(x)), nil
	case uint16:
		return unsignedScalar(UInt16, uint64(x)), nil
	case uint32:
		return unsignedScalar(UInt32, uint64(x)), nil
	case uint64:
		return UInt(x), nil
	case float32:
		return floatScalar(Float32, float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return Str(x), nil
	case bool:
		return Bool(x), nil
	default:
		return NullValue, typeErr("scalar", "unsupported value type %T", v)
	}
}

// DType returns the scalar's dtype; Null for the null value
func (s Scalar) DType() DType { return s.dtype }

// IsNull reports whether the scalar is null
func (s Scalar) IsNull() bool { return s.dtype == Null }

// Value returns the host representation: int64, uint64, float64, string, bool or nil.
func (s Scalar) Value() interface{} {
	switch {
	case s.dtype == Null:
		return nil
	case s.dtype.IsSigned():
		return s.i
	case s.dtype.IsUnsigned():
		return s.u
	case s.dtype.IsFloat():
		return s.f
	case s.dtype == Boolean:
		return s.b
	default:
		return s.s
	}
}

// Int64 returns the value as int64 when the scalar is numeric or boolean
func (s Scalar) Int64() (int64, bool) {
	switch {
	case s.dtype.IsSigned():
		return s.i, true
	case s.dtype.IsUnsigned():
		return int64(s.u), true
	case s.dtype.IsFloat():
		return int64(s.f), true
	case s.dtype == Boolean:
		if s.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Float64 returns the value as float64 when the scalar is numeric or boolean
func (s Scalar) Float64() (float64, bool) {
	switch {
	case s.dtype.IsSigned():
		return float64(s.i), true
	case s.dtype.IsUnsigned():
		return float64(s.u), true
	case s.dtype.IsFloat():
		return s.f, true
	case s.dtype == Boolean:
		if s.b {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Bool returns the value when the scalar is a Boolean
func (s Scalar) Bool() (bool, bool) {
	return s.b, s.dtype == Boolean
}

// Str returns the value when the scalar is a String
func (s Scalar) Str() (string, bool) {
	return s.s, s.dtype == String
}

// String formats the scalar; null renders as "null"
func (s Scalar) String() string {
	switch {
	case s.dtype == Null:
		return "null"
	case s.dtype.IsSigned():
		return strconv.FormatInt(s.i, 10)
	case s.dtype.IsUnsigned():
		return strconv.FormatUint(s.u, 10)
	case s.dtype == Float32:
		return strconv.FormatFloat(s.f, 'g', -1, 32)
	case s.dtype == Float64:
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	case s.dtype == Boolean:
		return strconv.FormatBool(s.b)
	default:
		return s.s
	}
}

// quoted renders strings quoted, everything else as String does.
func (s Scalar) quoted() string {
	if s.dtype == String {
		return strconv.Quote(s.s)
	}
	return s.String()
}

// Equal is exact value equality; nulls are equal to each other and NaN equals NaN.
func (s Scalar) Equal(other Scalar) bool {
	if s.dtype == Null || other.dtype == Null {
		return s.dtype == other.dtype
	}
	if s.dtype != other.dtype {
		c, err := compareScalars(s, other)
		return err == nil && c == 0
	}
	switch {
	case s.dtype.IsSigned():
		return s.i == other.i
	case s.dtype.IsUnsigned():
		return s.u == other.u
	case s.dtype.IsFloat():
		return s.f == other.f || (math.IsNaN(s.f) && math.IsNaN(other.f))
	case s.dtype == Boolean:
		return s.b == other.b
	default:
		return s.s == other.s
	}
}

// compareScalars orders two non-null scalars. Numeric kinds compare across
// dtypes; strings and booleans only compare with their own kind.
func compareScalars(a, b Scalar) (int, error) {
	switch {
	case a.dtype == String && b.dtype == String:
		return compareOrdered(a.s, b.s), nil
	case a.dtype == Boolean && b.dtype == Boolean:
		return compareOrdered(boolRank(a.b), boolRank(b.b)), nil
	case a.dtype.IsNumeric() && b.dtype.IsNumeric():
		return compareNumeric(a, b), nil
	}
	return 0, typeErr("compare", "cannot compare %s with %s", a.dtype, b.dtype)
}

func compareNumeric(a, b Scalar) int {
	switch {
	case a.dtype.IsFloat() || b.dtype.IsFloat():
		x, _ := a.Float64()
		y, _ := b.Float64()
		return compareFloat(x, y)
	case a.dtype.IsSigned() && b.dtype.IsSigned():
		return compareOrdered(a.i, b.i)
	case a.dtype.IsUnsigned() && b.dtype.IsUnsigned():
		return compareOrdered(a.u, b.u)
	case a.dtype.IsSigned():
		if a.i < 0 {
			return -1
		}
		return compareOrdered(uint64(a.i), b.u)
	default:
		if b.i < 0 {
			return 1
		}
		return compareOrdered(a.u, uint64(b.i))
	}
}

// compareFloat sorts NaN after every other value.
func compareFloat(x, y float64) int {
	xn, yn := math.IsNaN(x), math.IsNaN(y)
	switch {
	case xn && yn:
		return 0
	case xn:
		return 1
	case yn:
		return -1
	}
	return compareOrdered(x, y)
}

func compareOrdered[T int64 | uint64 | float64 | string | int](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
