package frame

import (
	"math"
	"strconv"
	"strings"
)

// castScalar converts a non-null scalar to target. Numeric conversions are
// always defined (narrowing wraps, floats truncate). Parsing failures and
// non-finite floats cast to integers fail when strict and become null otherwise.
func castScalar(s Scalar, target DType, strict bool) (Scalar, error) {
	if s.IsNull() || target == Null {
		return NullValue, nil
	}
	if s.dtype == target {
		return s, nil
	}
	switch {
	case target.IsSigned():
		switch {
		case s.dtype.IsFloat():
			if math.IsNaN(s.f) || math.IsInf(s.f, 0) {
				return castFailure(s, target, strict)
			}
			return signedScalar(target, wrapSigned(int64(s.f), target)), nil
		case s.dtype == String:
			v, err := strconv.ParseInt(strings.TrimSpace(s.s), 10, 64)
			if err != nil {
				f, ferr := strconv.ParseFloat(strings.TrimSpace(s.s), 64)
				if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
					return castFailure(s, target, strict)
				}
				v = int64(f)
			}
			return signedScalar(target, wrapSigned(v, target)), nil
		default:
			v, _ := s.Int64()
			return signedScalar(target, wrapSigned(v, target)), nil
		}
	case target.IsUnsigned():
		switch {
		case s.dtype.IsFloat():
			if math.IsNaN(s.f) || math.IsInf(s.f, 0) {
				return castFailure(s, target, strict)
			}
			if s.f < 0 {
				return unsignedScalar(target, wrapUnsigned(uint64(int64(s.f)), target)), nil
			}
			return unsignedScalar(target, wrapUnsigned(uint64(s.f), target)), nil
		case s.dtype.IsUnsigned():
			return unsignedScalar(target, wrapUnsigned(s.u, target)), nil
		case s.dtype == String:
			v, err := strconv.ParseUint(strings.TrimSpace(s.s), 10, 64)
			if err != nil {
				return castFailure(s, target, strict)
			}
			return unsignedScalar(target, wrapUnsigned(v, target)), nil
		default:
			v, _ := s.Int64()
			return unsignedScalar(target, wrapUnsigned(uint64(v), target)), nil
		}
	case target.IsFloat():
		if s.dtype == String {
			v, err := strconv.ParseFloat(strings.TrimSpace(s.s), 64)
			if err != nil {
				return castFailure(s, target, strict)
			}
			return floatScalar(target, v), nil
		}
		v, _ := s.Float64()
		return floatScalar(target, v), nil
	case target == Boolean:
		if s.dtype == String {
			v, err := strconv.ParseBool(strings.TrimSpace(s.s))
			if err != nil {
				return castFailure(s, target, strict)
			}
			return Bool(v), nil
		}
		v, _ := s.Float64()
		return Bool(v != 0), nil
	case target == String:
		return Str(s.String()), nil
	}
	return castFailure(s, target, strict)
}

func castFailure(s Scalar, target DType, strict bool) (Scalar, error) {
	if strict {
		return NullValue, typeErr("cast", "cannot cast %s value %s to %s", s.dtype, s.quoted(), target)
	}
	return NullValue, nil
}

func wrapSigned(v int64, d DType) int64 {
	switch d {
	case Int8:
		return int64(int8(v))
	case Int16:
		return int64(int16(v))
	case Int32:
		return int64(int32(v))
	}
	return v
}

func wrapUnsigned(v uint64, d DType) uint64 {
	switch d {
	case UInt8:
		return uint64(uint8(v))
	case UInt16:
		return uint64(uint16(v))
	case UInt32:
		return uint64(uint32(v))
	}
	return v
}

// Cast converts the column to target. With strict set, the first value that
// cannot be converted fails the whole cast; otherwise it becomes null.
func (c *Column) Cast(target DType, strict bool) (*Column, error) {
	if c.dtype == target {
		return c, nil
	}
	b := NewBuilder(c.name, target, c.Len())
	for i := 0; i < c.Len(); i++ {
		v, err := castScalar(c.at(i), target, strict)
		if err != nil {
			return nil, WrapError(err, KindType, "cast", "column %q row %d", c.name, i)
		}
		b.Append(v)
	}
	return b.Finish(), nil
}
