package frame

import "strings"

// DType is the closed set of value kinds a column may hold.
type DType int

const (
	Null DType = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Boolean
	String
)

var dtypeNames = [...]string{
	Null:    "Null",
	Int8:    "Int8",
	Int16:   "Int16",
	Int32:   "Int32",
	Int64:   "Int64",
	UInt8:   "UInt8",
	UInt16:  "UInt16",
	UInt32:  "UInt32",
	UInt64:  "UInt64",
	Float32: "Float32",
	Float64: "Float64",
	Boolean: "Boolean",
	String:  "String",
}

// String returns the canonical dtype name
func (d DType) String() string {
	if d < 0 || int(d) >= len(dtypeNames) {
		return "Unknown"
	}
	return dtypeNames[d]
}

var dtypeAliases = map[string]DType{
	"null": Null,
	"int8": Int8, "i8": Int8,
	"int16": Int16, "i16": Int16,
	"int32": Int32, "i32": Int32,
	"int64": Int64, "i64": Int64, "int": Int64,
	"uint8": UInt8, "u8": UInt8,
	"uint16": UInt16, "u16": UInt16,
	"uint32": UInt32, "u32": UInt32,
	"uint64": UInt64, "u64": UInt64,
	"float32": Float32, "f32": Float32,
	"float64": Float64, "f64": Float64, "float": Float64, "double": Float64,
	"boolean": Boolean, "bool": Boolean,
	"string": String, "str": String, "utf8": String,
}

// ParseDType parses a dtype name case-insensitively.
func ParseDType(name string) (DType, error) {
	if d, ok := dtypeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return Null, typeErr("parse dtype", "unknown dtype %q", name)
}

// IsSigned reports whether d is a signed integer dtype
func (d DType) IsSigned() bool { return d >= Int8 && d <= Int64 }

// IsUnsigned reports whether d is an unsigned integer dtype
func (d DType) IsUnsigned() bool { return d >= UInt8 && d <= UInt64 }

// IsInteger reports whether d is any integer dtype
func (d DType) IsInteger() bool { return d.IsSigned() || d.IsUnsigned() }

// IsFloat reports whether d is a floating point dtype
func (d DType) IsFloat() bool { return d == Float32 || d == Float64 }

// IsNumeric reports whether d is an integer or floating point dtype
func (d DType) IsNumeric() bool { return d.IsInteger() || d.IsFloat() }

// supertype returns the common dtype a and b promote to
// in arithmetic and concatenation. String only unifies with itself.
func supertype(a, b DType) (DType, bool) {
	switch {
	case a == b:
		return a, true
	case a == Null:
		return b, true
	case b == Null:
		return a, true
	case a == String || b == String:
		return Null, false
	}
	if a == Boolean {
		a = Int64
	}
	if b == Boolean {
		b = Int64
	}
	switch {
	case a == b:
		return a, true
	case a.IsFloat() || b.IsFloat():
		return Float64, true
	case a.IsUnsigned() && b.IsUnsigned():
		return UInt64, true
	default:
		return Int64, true
	}
}

// Field is a single named entry of a Schema.
type Field struct {
	Name  string
	DType DType
}

// Schema is the ordered list of column names and dtypes of a frame.
type Schema []Field

// Names returns the column names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// DTypes returns the column dtypes in order
func (s Schema) DTypes() []DType {
	dtypes := make([]DType, len(s))
	for i, f := range s {
		dtypes[i] = f.DType
	}
	return dtypes
}

// Index returns the position of name, or -1
func (s Schema) Index(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the dtype of name
func (s Schema) Lookup(name string) (DType, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i].DType, true
	}
	return Null, false
}

// String renders the schema as {name: dtype, ...}
func (s Schema) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.DType.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Equal reports whether both schemas have the same names and dtypes in order
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
