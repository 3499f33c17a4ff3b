package frame

import (
	"math"
	"slices"
)

// AggKind identifies a reduction.
type AggKind int

const (
	AggSum AggKind = iota
	AggMean
	AggMedian
	AggMin
	AggMax
	AggStd
	AggVar
	AggCount
	AggNUnique
	AggFirst
	AggLast
	AggLen
	AggProduct
	AggNullCount
	AggNanMax
	AggNanMin
	AggQuantile
	AggAny
	AggAll
	AggHasNulls
)

var aggNames = map[AggKind]string{
	AggSum:       "sum",
	AggMean:      "mean",
	AggMedian:    "median",
	AggMin:       "min",
	AggMax:       "max",
	AggStd:       "std",
	AggVar:       "var",
	AggCount:     "count",
	AggNUnique:   "n_unique",
	AggFirst:     "first",
	AggLast:      "last",
	AggLen:       "len",
	AggProduct:   "product",
	AggNullCount: "null_count",
	AggNanMax:    "nan_max",
	AggNanMin:    "nan_min",
	AggQuantile:  "quantile",
	AggAny:       "any",
	AggAll:       "all",
	AggHasNulls:  "has_nulls",
}

func (k AggKind) String() string {
	if name, ok := aggNames[k]; ok {
		return name
	}
	return "unknown"
}

// reduceArgs carries the parameters of the parameterized reductions.
type reduceArgs struct {
	ddof     int
	quantile float64
}

// numericOnly reports whether the reduction is only meaningful for numbers.
func (k AggKind) numericOnly() bool {
	switch k {
	case AggSum, AggMean, AggMedian, AggStd, AggVar, AggProduct, AggQuantile:
		return true
	}
	return false
}

// aggDType returns the result dtype of reducing a column of dtype in. It
// also rejects parameters no input could satisfy.
func aggDType(kind AggKind, in DType, args reduceArgs) (DType, error) {
	if kind == AggQuantile && !(args.quantile >= 0 && args.quantile <= 1) {
		return Null, argErr("quantile", "quantile %v must be between 0 and 1", args.quantile)
	}
	switch kind {
	case AggCount, AggLen, AggNullCount, AggNUnique:
		return UInt32, nil
	case AggHasNulls:
		return Boolean, nil
	case AggAny, AggAll:
		if in != Boolean && in != Null {
			return Null, typeErr(kind.String(), "expected a Boolean input, got %s", in)
		}
		return Boolean, nil
	case AggMin, AggMax, AggFirst, AggLast, AggNanMin, AggNanMax:
		return in, nil
	}
	if !in.IsNumeric() && in != Boolean {
		return in, nil
	}
	switch kind {
	case AggSum:
		switch {
		case in == Boolean:
			return UInt32, nil
		case in.IsSigned():
			return Int64, nil
		case in.IsUnsigned():
			return UInt64, nil
		}
		return in, nil
	case AggProduct:
		switch {
		case in == Boolean, in.IsSigned():
			return Int64, nil
		case in.IsUnsigned():
			return UInt64, nil
		}
		return Float64, nil
	}
	return Float64, nil
}

// reduce collapses c to a single scalar typed by aggDType.
func reduce(kind AggKind, c *Column, args reduceArgs) (Scalar, error) {
	out, err := aggDType(kind, c.dtype, args)
	if err != nil {
		return NullValue, err
	}
	n := c.Len()
	switch kind {
	case AggCount:
		return unsignedScalar(UInt32, uint64(n-c.NullCount())), nil
	case AggLen:
		return unsignedScalar(UInt32, uint64(n)), nil
	case AggNullCount:
		return unsignedScalar(UInt32, uint64(c.NullCount())), nil
	case AggNUnique:
		return unsignedScalar(UInt32, uint64(c.NUnique())), nil
	case AggHasNulls:
		return Bool(c.NullCount() > 0), nil
	case AggFirst:
		return c.First(), nil
	case AggLast:
		return c.Last(), nil
	case AggAny, AggAll:
		want := kind == AggAny
		for i := 0; i < n; i++ {
			if c.isNullAt(i) {
				continue
			}
			if c.buf.bools[i] == want {
				return Bool(want), nil
			}
		}
		return Bool(!want), nil
	case AggMin, AggMax, AggNanMin, AggNanMax:
		return extremum(kind, c), nil
	}

	if kind.numericOnly() && !c.dtype.IsNumeric() && c.dtype != Boolean {
		return NullValue, nil
	}
	switch kind {
	case AggSum:
		return sumColumn(c, out), nil
	case AggProduct:
		return productColumn(c, out), nil
	}

	vals := nonNullFloats(c)
	switch kind {
	case AggMean:
		if len(vals) == 0 {
			return NullValue, nil
		}
		var sum float64
		for _, v := range vals {
			sum += v
		}
		return Float(sum / float64(len(vals))), nil
	case AggMedian:
		if len(vals) == 0 {
			return NullValue, nil
		}
		slices.SortFunc(vals, compareFloat)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			return Float(vals[mid]), nil
		}
		return Float((vals[mid-1] + vals[mid]) / 2), nil
	case AggQuantile:
		if len(vals) == 0 {
			return NullValue, nil
		}
		slices.SortFunc(vals, compareFloat)
		idx := int(math.Round(float64(len(vals)-1) * args.quantile))
		return Float(vals[idx]), nil
	case AggVar, AggStd:
		v, ok := variance(vals, args.ddof)
		if !ok {
			return NullValue, nil
		}
		if kind == AggStd {
			v = math.Sqrt(v)
		}
		return Float(v), nil
	}
	return NullValue, NewError(KindExecution, kind.String(), "unsupported reduction")
}

func nonNullFloats(c *Column) []float64 {
	vals := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if c.isNullAt(i) {
			continue
		}
		f, _ := c.at(i).Float64()
		vals = append(vals, f)
	}
	return vals
}

// variance uses the two-pass algorithm with denominator n - ddof.
func variance(vals []float64, ddof int) (float64, bool) {
	n := len(vals)
	if n == 0 || n-ddof <= 0 {
		return 0, false
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(n)
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n-ddof), true
}

func sumColumn(c *Column, out DType) Scalar {
	switch {
	case out.IsFloat():
		var sum float64
		for i := 0; i < c.Len(); i++ {
			if !c.isNullAt(i) {
				sum += c.buf.floats[i]
			}
		}
		return floatScalar(out, sum)
	case out.IsUnsigned():
		var sum uint64
		for i := 0; i < c.Len(); i++ {
			if c.isNullAt(i) {
				continue
			}
			if c.dtype == Boolean {
				if c.buf.bools[i] {
					sum++
				}
				continue
			}
			sum += c.buf.uints[i]
		}
		return unsignedScalar(out, wrapUnsigned(sum, out))
	default:
		var sum int64
		for i := 0; i < c.Len(); i++ {
			if !c.isNullAt(i) {
				sum += c.buf.ints[i]
			}
		}
		return signedScalar(out, sum)
	}
}

func productColumn(c *Column, out DType) Scalar {
	switch {
	case out.IsFloat():
		prod := 1.0
		for i := 0; i < c.Len(); i++ {
			if !c.isNullAt(i) {
				f, _ := c.at(i).Float64()
				prod *= f
			}
		}
		return Float(prod)
	case out.IsUnsigned():
		var prod uint64 = 1
		for i := 0; i < c.Len(); i++ {
			if !c.isNullAt(i) {
				prod *= c.buf.uints[i]
			}
		}
		return UInt(prod)
	default:
		var prod int64 = 1
		for i := 0; i < c.Len(); i++ {
			if !c.isNullAt(i) {
				v, _ := c.at(i).Int64()
				prod *= v
			}
		}
		return Int(prod)
	}
}

// extremum returns the min or max value. Min and Max skip NaN unless every
// value is NaN; the Nan variants return NaN as soon as one is present.
func extremum(kind AggKind, c *Column) Scalar {
	propagate := kind == AggNanMin || kind == AggNanMax
	wantMax := kind == AggMax || kind == AggNanMax
	best := -1
	isFloat := c.dtype.IsFloat()
	for i := 0; i < c.Len(); i++ {
		if c.isNullAt(i) {
			continue
		}
		if isFloat && math.IsNaN(c.buf.floats[i]) {
			if propagate {
				return c.at(i)
			}
			if best < 0 {
				best = i
			}
			continue
		}
		if best < 0 || (isFloat && math.IsNaN(c.buf.floats[best])) {
			best = i
			continue
		}
		cmp, _ := compareScalars(c.at(i), c.at(best))
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			best = i
		}
	}
	if best < 0 {
		return NullValue
	}
	return c.at(best)
}
