package frame

type physical int

const (
	physNull physical = iota
	physInt
	physUint
	physFloat
	physBool
	physString
)

func (d DType) physical() physical {
	switch {
	case d.IsSigned():
		return physInt
	case d.IsUnsigned():
		return physUint
	case d.IsFloat():
		return physFloat
	case d == Boolean:
		return physBool
	case d == String:
		return physString
	}
	return physNull
}

// buffer is the immutable storage behind a Column. Only the slice matching
// the column's physical kind is populated. Buffers are never written after
// Finish, so columns share them freely.
type buffer struct {
	ints   []int64
	uints  []uint64
	floats []float64
	bools  []bool
	strs   []string
	valid  []bool // nil means every slot is valid
	n      int
}

func (b *buffer) isValid(i int) bool {
	return b.valid == nil || b.valid[i]
}

func (b *buffer) slice(off, n int) *buffer {
	out := &buffer{n: n}
	if b.ints != nil {
		out.ints = b.ints[off : off+n]
	}
	if b.uints != nil {
		out.uints = b.uints[off : off+n]
	}
	if b.floats != nil {
		out.floats = b.floats[off : off+n]
	}
	if b.bools != nil {
		out.bools = b.bools[off : off+n]
	}
	if b.strs != nil {
		out.strs = b.strs[off : off+n]
	}
	if b.valid != nil {
		out.valid = b.valid[off : off+n]
	}
	return out
}

// Builder accumulates values of a single dtype into a new Column.
type Builder struct {
	name  string
	dtype DType
	buf   *buffer
	nulls int
}

// NewBuilder creates a builder for a column of the given dtype
func NewBuilder(name string, dtype DType, capacity int) *Builder {
	if capacity < 0 {
		capacity = 0
	}
	buf := &buffer{}
	switch dtype.physical() {
	case physInt:
		buf.ints = make([]int64, 0, capacity)
	case physUint:
		buf.uints = make([]uint64, 0, capacity)
	case physFloat:
		buf.floats = make([]float64, 0, capacity)
	case physBool:
		buf.bools = make([]bool, 0, capacity)
	case physString:
		buf.strs = make([]string, 0, capacity)
	}
	return &Builder{name: name, dtype: dtype, buf: buf}
}

// Len returns the number of values appended so far
func (b *Builder) Len() int { return b.buf.n }

// AppendNull appends a null slot
func (b *Builder) AppendNull() {
	if b.buf.valid == nil && b.dtype != Null {
		b.buf.valid = make([]bool, b.buf.n, b.buf.n+16)
		for i := range b.buf.valid {
			b.buf.valid[i] = true
		}
	}
	switch b.dtype.physical() {
	case physInt:
		b.buf.ints = append(b.buf.ints, 0)
	case physUint:
		b.buf.uints = append(b.buf.uints, 0)
	case physFloat:
		b.buf.floats = append(b.buf.floats, 0)
	case physBool:
		b.buf.bools = append(b.buf.bools, false)
	case physString:
		b.buf.strs = append(b.buf.strs, "")
	}
	if b.buf.valid != nil {
		b.buf.valid = append(b.buf.valid, false)
	}
	b.buf.n++
	b.nulls++
}

// Append appends s converted to the builder's dtype. Values that cannot be
// converted are stored as null.
func (b *Builder) Append(s Scalar) {
	if err := b.AppendStrict(s); err != nil {
		b.AppendNull()
	}
}

// AppendStrict appends s converted to the builder's dtype and reports
// conversion failures instead of storing null.
func (b *Builder) AppendStrict(s Scalar) error {
	if s.IsNull() || b.dtype == Null {
		b.AppendNull()
		return nil
	}
	if s.dtype != b.dtype {
		var err error
		if s, err = castScalar(s, b.dtype, true); err != nil {
			return err
		}
		if s.IsNull() {
			b.AppendNull()
			return nil
		}
	}
	switch b.dtype.physical() {
	case physInt:
		b.buf.ints = append(b.buf.ints, s.i)
	case physUint:
		b.buf.uints = append(b.buf.uints, s.u)
	case physFloat:
		b.buf.floats = append(b.buf.floats, s.f)
	case physBool:
		b.buf.bools = append(b.buf.bools, s.b)
	case physString:
		b.buf.strs = append(b.buf.strs, s.s)
	}
	if b.buf.valid != nil {
		b.buf.valid = append(b.buf.valid, true)
	}
	b.buf.n++
	return nil
}

// AppendValue lifts a host value and appends it; unsupported types are an error.
func (b *Builder) AppendValue(v interface{}) error {
	s, err := ScalarOf(v)
	if err != nil {
		return err
	}
	return b.AppendStrict(s)
}

// Finish returns the built column. The builder must not be used afterwards.
func (b *Builder) Finish() *Column {
	buf := b.buf
	if b.nulls == 0 {
		buf.valid = nil
	}
	b.buf = nil
	return &Column{name: b.name, dtype: b.dtype, buf: buf}
}
