package frame

import (
	"fmt"
	"math"
	"reflect"
	"slices"
)

// DataFrame is an ordered collection of equal-length columns with unique
// names. Operators return new frames that share unchanged column buffers.
type DataFrame struct {
	columns []*Column
}

// New builds a frame from columns; lengths must match and names must be unique.
func New(columns ...*Column) (*DataFrame, error) {
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c == nil {
			return nil, schemaErr("new", "column %d is nil", i)
		}
		if seen[c.name] {
			return nil, schemaErr("new", "duplicate column name %q", c.name)
		}
		seen[c.name] = true
		if c.Len() != columns[0].Len() {
			return nil, schemaErr("new", "column %q has length %d, expected %d", c.name, c.Len(), columns[0].Len())
		}
	}
	return &DataFrame{columns: slices.Clone(columns)}, nil
}

// FromValues builds a frame from parallel name and value lists, inferring
// each column's dtype.
func FromValues(names []string, values [][]interface{}) (*DataFrame, error) {
	if len(names) != len(values) {
		return nil, schemaErr("new", "got %d names for %d columns", len(names), len(values))
	}
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, err := NewColumn(name, values[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return New(cols...)
}

// FromMap builds a frame from a name to values map. Columns are ordered by name.
func FromMap(data map[string][]interface{}) (*DataFrame, error) {
	names := make([]string, 0, len(data))
	for name := range data {
		names = append(names, name)
	}
	slices.Sort(names)
	values := make([][]interface{}, len(names))
	for i, name := range names {
		values[i] = data[name]
	}
	return FromValues(names, values)
}

// newFrame wraps columns already known to be consistent.
func newFrame(columns []*Column) *DataFrame {
	return &DataFrame{columns: columns}
}

// Height returns the number of rows
func (df *DataFrame) Height() int {
	if len(df.columns) == 0 {
		return 0
	}
	return df.columns[0].Len()
}

// Width returns the number of columns
func (df *DataFrame) Width() int { return len(df.columns) }

// Shape returns (height, width)
func (df *DataFrame) Shape() (int, int) { return df.Height(), df.Width() }

// IsEmpty reports whether the frame has no rows
func (df *DataFrame) IsEmpty() bool { return df.Height() == 0 }

// Columns returns the column names in order
func (df *DataFrame) Columns() []string {
	names := make([]string, len(df.columns))
	for i, c := range df.columns {
		names[i] = c.name
	}
	return names
}

// DTypes returns the column dtypes in order
func (df *DataFrame) DTypes() []DType {
	out := make([]DType, len(df.columns))
	for i, c := range df.columns {
		out[i] = c.dtype
	}
	return out
}

// Schema returns the ordered name/dtype pairs
func (df *DataFrame) Schema() Schema {
	s := make(Schema, len(df.columns))
	for i, c := range df.columns {
		s[i] = Field{Name: c.name, DType: c.dtype}
	}
	return s
}

func (df *DataFrame) column(name string) (*Column, bool) {
	for _, c := range df.columns {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// Column returns the named column
func (df *DataFrame) Column(name string) (*Column, error) {
	c, ok := df.column(name)
	if !ok {
		return nil, schemaErr("column", "column %q not found in %v", name, df.Columns())
	}
	return c, nil
}

// Series returns the frame's columns in order
func (df *DataFrame) Series() []*Column { return slices.Clone(df.columns) }

// Copy returns a new handle sharing the column buffers
func (df *DataFrame) Copy() *DataFrame {
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.Alias(c.name)
	}
	return newFrame(cols)
}

// SetColumnNames renames every column positionally. Only this handle changes.
func (df *DataFrame) SetColumnNames(names []string) error {
	if len(names) != len(df.columns) {
		return schemaErr("set column names", "got %d names for %d columns", len(names), len(df.columns))
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return schemaErr("set column names", "duplicate column name %q", n)
		}
		seen[n] = true
	}
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.Alias(names[i])
	}
	df.columns = cols
	return nil
}

// RenameInPlace renames one column of this handle. Other handles sharing the
// column are unaffected.
func (df *DataFrame) RenameInPlace(oldName, newName string) error {
	idx := df.Schema().Index(oldName)
	if idx < 0 {
		return schemaErr("rename", "column %q not found in %v", oldName, df.Columns())
	}
	if oldName != newName && df.Schema().Index(newName) >= 0 {
		return schemaErr("rename", "duplicate column name %q", newName)
	}
	cols := slices.Clone(df.columns)
	cols[idx] = cols[idx].Alias(newName)
	df.columns = cols
	return nil
}

// ShrinkToFit reallocates column storage to its exact length, releasing any
// larger backing arrays this handle kept alive through slicing.
func (df *DataFrame) ShrinkToFit() {
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		b := NewBuilder(c.name, c.dtype, c.Len())
		for j := 0; j < c.Len(); j++ {
			b.Append(c.at(j))
		}
		cols[i] = b.Finish()
	}
	df.columns = cols
}

// Get implements the indexing surface:
//
//	string          one column as a frame
//	integer         one row as a frame, negative counts from the end
//	[]string        several columns
//	[]interface{}   one or more column names plus at most one integer row
func (df *DataFrame) Get(key interface{}) (*DataFrame, error) {
	if row, ok, err := asIndex(key); ok {
		if err != nil {
			return nil, err
		}
		return df.rowFrame(row)
	}
	switch k := key.(type) {
	case string:
		c, ok := df.column(k)
		if !ok {
			return nil, schemaErr("get", "column %q not found in %v", k, df.Columns())
		}
		return newFrame([]*Column{c}), nil
	case []string:
		return df.selectNames("get", k)
	case []interface{}:
		var names []string
		row, hasRow := 0, false
		for _, item := range k {
			if idx, ok, err := asIndex(item); ok {
				if err != nil {
					return nil, err
				}
				if hasRow {
					return nil, argErr("get", "at most one row index may be given, got %d and %d", row, idx)
				}
				row, hasRow = idx, true
				continue
			}
			name, ok := item.(string)
			if !ok {
				return nil, argErr("get", "unsupported key element of type %T", item)
			}
			names = append(names, name)
		}
		if len(names) == 0 {
			return nil, argErr("get", "a mixed key needs at least one column name; use an integer to select a row")
		}
		out, err := df.selectNames("get", names)
		if err != nil {
			return nil, err
		}
		if hasRow {
			return out.rowFrame(row)
		}
		return out, nil
	}
	return nil, argErr("get", "unsupported key type %T", key)
}

// Has reports whether key addresses an existing column or row.
func (df *DataFrame) Has(key interface{}) bool {
	if row, ok, err := asIndex(key); ok {
		if err != nil {
			return false
		}
		_, err = df.resolveRow(row)
		return err == nil
	}
	if name, ok := key.(string); ok {
		_, found := df.column(name)
		return found
	}
	return false
}

// Set always fails: frames are read-only through indexing. Use WithColumns.
func (df *DataFrame) Set(key, value interface{}) error {
	return argErr("set", "DataFrame does not support assignment through indexing; use WithColumns")
}

// Unset always fails: frames are read-only through indexing. Use Drop.
func (df *DataFrame) Unset(key interface{}) error {
	return argErr("unset", "DataFrame does not support removal through indexing; use Drop")
}

// asIndex reports whether key is an integer row index. Unsigned keys past
// the int range are out of bounds for every frame.
func asIndex(key interface{}) (int, bool, error) {
	v := reflect.ValueOf(key)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(v.Int()), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt {
			return 0, true, NewError(KindBounds, "get", "row index %d out of bounds", u)
		}
		return int(u), true, nil
	}
	return 0, false, nil
}

func (df *DataFrame) resolveRow(row int) (int, error) {
	h := df.Height()
	idx := row
	if idx < 0 {
		idx += h
	}
	if idx < 0 || idx >= h {
		return 0, NewError(KindBounds, "get", "row index %d out of bounds for DataFrame with %d rows", row, h)
	}
	return idx, nil
}

func (df *DataFrame) rowFrame(row int) (*DataFrame, error) {
	idx, err := df.resolveRow(row)
	if err != nil {
		return nil, err
	}
	return df.Slice(idx, 1), nil
}

func (df *DataFrame) selectNames(op string, names []string) (*DataFrame, error) {
	cols := make([]*Column, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		c, ok := df.column(name)
		if !ok {
			return nil, schemaErr(op, "column %q not found in %v", name, df.Columns())
		}
		if seen[name] {
			return nil, schemaErr(op, "duplicate column name %q", name)
		}
		seen[name] = true
		cols[i] = c
	}
	return newFrame(cols), nil
}

// Slice returns rows [offset, offset+length); a negative offset counts from
// the end and length is clamped.
func (df *DataFrame) Slice(offset, length int) *DataFrame {
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.Slice(offset, length)
	}
	return newFrame(cols)
}

// Head returns the first n rows
func (df *DataFrame) Head(n int) *DataFrame { return df.Slice(0, max(n, 0)) }

// Tail returns the last n rows
func (df *DataFrame) Tail(n int) *DataFrame {
	n = min(max(n, 0), df.Height())
	return df.Slice(df.Height()-n, n)
}

func (df *DataFrame) take(indices []int) *DataFrame {
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.take(indices)
	}
	return newFrame(cols)
}

func (df *DataFrame) filterMask(mask []bool) *DataFrame {
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = c.filter(mask)
	}
	return newFrame(cols)
}

// Row returns row i as a name to value map; negative i counts from the end.
func (df *DataFrame) Row(i int) (map[string]interface{}, error) {
	idx, err := df.resolveRow(i)
	if err != nil {
		return nil, err
	}
	row := make(map[string]interface{}, len(df.columns))
	for _, c := range df.columns {
		row[c.name] = c.at(idx).Value()
	}
	return row, nil
}

// Rows returns every row as a name to value map
func (df *DataFrame) Rows() []map[string]interface{} {
	rows := make([]map[string]interface{}, df.Height())
	for i := range rows {
		row := make(map[string]interface{}, len(df.columns))
		for _, c := range df.columns {
			row[c.name] = c.at(i).Value()
		}
		rows[i] = row
	}
	return rows
}

// ToMap returns column name to host values
func (df *DataFrame) ToMap() map[string][]interface{} {
	out := make(map[string][]interface{}, len(df.columns))
	for _, c := range df.columns {
		out[c.name] = c.Values()
	}
	return out
}

// Item returns the single value of a 1x1 frame.
func (df *DataFrame) Item() (Scalar, error) {
	h, w := df.Shape()
	if h != 1 || w != 1 {
		return NullValue, schemaErr("item", "can only call item() on a DataFrame of shape (1, 1), got shape: (%d, %d)", h, w)
	}
	return df.columns[0].at(0), nil
}

// VStack appends the rows of other, whose schema must be identical.
func (df *DataFrame) VStack(other *DataFrame) (*DataFrame, error) {
	if !df.Schema().Equal(other.Schema()) {
		return nil, schemaErr("vstack", "schemas differ: %s vs %s", df.Schema(), other.Schema())
	}
	cols := make([]*Column, len(df.columns))
	for i, c := range df.columns {
		cols[i] = concatColumns(c.name, c.dtype, c, other.columns[i])
	}
	return newFrame(cols), nil
}

// concatColumns appends parts into one column of dtype.
func concatColumns(name string, dtype DType, parts ...*Column) *Column {
	n := 0
	for _, p := range parts {
		n += p.Len()
	}
	b := NewBuilder(name, dtype, n)
	for _, p := range parts {
		for i := 0; i < p.Len(); i++ {
			b.Append(p.at(i))
		}
	}
	return b.Finish()
}

// Concat stacks frames vertically. Columns are matched by name; dtypes are
// promoted to their supertype.
func Concat(frames ...*DataFrame) (*DataFrame, error) {
	if len(frames) == 0 {
		return newFrame(nil), nil
	}
	first := frames[0].Schema()
	cols := make([]*Column, len(first))
	for i, f := range first {
		dtype := f.DType
		parts := make([]*Column, len(frames))
		for j, df := range frames {
			if df.Width() != len(first) {
				return nil, schemaErr("concat", "frame %d has %d columns, expected %d", j, df.Width(), len(first))
			}
			c, ok := df.column(f.Name)
			if !ok {
				return nil, schemaErr("concat", "frame %d has no column %q", j, f.Name)
			}
			st, ok := supertype(dtype, c.dtype)
			if !ok {
				return nil, typeErr("concat", "column %q mixes %s and %s", f.Name, dtype, c.dtype)
			}
			dtype = st
			parts[j] = c
		}
		cols[i] = concatColumns(f.Name, dtype, parts...)
	}
	return newFrame(cols), nil
}

// HStack appends columns, which must match the height and have new names.
func (df *DataFrame) HStack(columns ...*Column) (*DataFrame, error) {
	cols := slices.Clone(df.columns)
	for _, c := range columns {
		if len(cols) > 0 && c.Len() != df.Height() {
			return nil, schemaErr("hstack", "column %q has length %d, expected %d", c.name, c.Len(), df.Height())
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Equals reports structural equality: same schema and values including null positions.
func (df *DataFrame) Equals(other *DataFrame) bool {
	if other == nil || df.Width() != other.Width() || df.Height() != other.Height() {
		return false
	}
	for i, c := range df.columns {
		if !c.Equals(other.columns[i]) {
			return false
		}
	}
	return true
}

// String renders a short description; tabular display lives in the output package.
func (df *DataFrame) String() string {
	return fmt.Sprintf("DataFrame(%d x %d) %s", df.Height(), df.Width(), df.Schema())
}
