package reader

import (
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/colframe/frame"
)

// SchemaMetadataKey is the Parquet key/value metadata entry holding the
// frame schema as a JSON list of {"name","dtype"}. Writers set it so that
// column order and dtypes without a Parquet equivalent survive a round trip.
const SchemaMetadataKey = "colframe.schema"

// SchemaField is one entry of the schema metadata
type SchemaField struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// EncodeSchema renders s as the metadata value stored under SchemaMetadataKey
func EncodeSchema(s frame.Schema) (string, error) {
	fields := make([]SchemaField, len(s))
	for i, f := range s {
		fields[i] = SchemaField{Name: f.Name, DType: f.DType.String()}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSchema(value string) (frame.Schema, error) {
	var fields []SchemaField
	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		return nil, err
	}
	s := make(frame.Schema, len(fields))
	for i, f := range fields {
		d, err := frame.ParseDType(f.DType)
		if err != nil {
			return nil, err
		}
		s[i] = frame.Field{Name: f.Name, DType: d}
	}
	return s, nil
}

// ColumnInfo describes one Parquet leaf column and the dtype it loads as.
type ColumnInfo struct {
	Name         string      `json:"name"`
	DType        frame.DType `json:"-"`
	PhysicalType string      `json:"physical_type"`
	LogicalType  string      `json:"logical_type"`
	Optional     bool        `json:"optional"`
	Repeated     bool        `json:"repeated"`
}

// InspectParquet lists the leaf columns of a Parquet file in file order.
// Nested fields use dot notation; their dtype is Null because they cannot
// be loaded.
func InspectParquet(r io.ReaderAt, size int64) ([]ColumnInfo, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, codecErr(err, "inspect parquet", "failed to open parquet file")
	}
	var infos []ColumnInfo
	for _, field := range f.Schema().Fields() {
		infos = append(infos, fieldInfo(field, "", false)...)
	}
	return infos, nil
}

// fieldInfo flattens field into leaf infos, propagating repetition from
// enclosing groups.
func fieldInfo(field parquet.Field, prefix string, parentRepeated bool) []ColumnInfo {
	name := field.Name()
	if prefix != "" {
		name = prefix + "." + name
	}
	repeated := parentRepeated || field.Repeated()

	if children := field.Fields(); len(children) > 0 {
		var infos []ColumnInfo
		for _, child := range children {
			infos = append(infos, fieldInfo(child, name, repeated)...)
		}
		return infos
	}

	info := ColumnInfo{
		Name:         name,
		PhysicalType: physicalType(field),
		Optional:     field.Optional(),
		Repeated:     repeated,
	}
	if lt := field.Type().LogicalType(); lt != nil {
		info.LogicalType = lt.String()
	}
	if !repeated && prefix == "" {
		if d, err := parquetDType(field); err == nil {
			info.DType = d
		}
	}
	return []ColumnInfo{info}
}

func physicalType(node parquet.Node) string {
	if node.Type() == nil {
		return "GROUP"
	}
	switch node.Type().Kind() {
	case parquet.Boolean:
		return "BOOLEAN"
	case parquet.Int32:
		return "INT32"
	case parquet.Int64:
		return "INT64"
	case parquet.Int96:
		return "INT96"
	case parquet.Float:
		return "FLOAT"
	case parquet.Double:
		return "DOUBLE"
	case parquet.ByteArray:
		return "BYTE_ARRAY"
	case parquet.FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// parquetDType maps a leaf node to the dtype it loads as. Logical integer
// annotations select the width and signedness; string-like annotations and
// plain byte arrays load as String.
func parquetDType(node parquet.Node) (frame.DType, error) {
	t := node.Type()
	if lt := t.LogicalType(); lt != nil {
		switch {
		case lt.Integer != nil:
			return intDType(int(lt.Integer.BitWidth), lt.Integer.IsSigned), nil
		case lt.UTF8 != nil, lt.Enum != nil, lt.Json != nil, lt.UUID != nil:
			return frame.String, nil
		case lt.Unknown != nil:
			return frame.Null, nil
		}
	}
	switch t.Kind() {
	case parquet.Boolean:
		return frame.Boolean, nil
	case parquet.Int32:
		return frame.Int32, nil
	case parquet.Int64:
		return frame.Int64, nil
	case parquet.Float:
		return frame.Float32, nil
	case parquet.Double:
		return frame.Float64, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return frame.String, nil
	}
	return frame.Null, frame.NewError(frame.KindCodec, "read parquet", "unsupported physical type %s", physicalType(node))
}

func intDType(bits int, signed bool) frame.DType {
	switch {
	case bits == 8 && signed:
		return frame.Int8
	case bits == 16 && signed:
		return frame.Int16
	case bits == 32 && signed:
		return frame.Int32
	case signed:
		return frame.Int64
	case bits == 8:
		return frame.UInt8
	case bits == 16:
		return frame.UInt16
	case bits == 32:
		return frame.UInt32
	default:
		return frame.UInt64
	}
}

type parquetLeaf struct {
	name  string
	index int
	dtype frame.DType
}

// parquetLeaves returns the loadable columns of f in frame order: the order
// recorded in the schema metadata when present, file order otherwise.
func parquetLeaves(f *parquet.File) ([]parquetLeaf, error) {
	schema := f.Schema()
	var leaves []parquetLeaf
	for _, path := range schema.Columns() {
		name := strings.Join(path, ".")
		leaf, ok := schema.Lookup(path...)
		if !ok {
			continue
		}
		if len(path) != 1 || leaf.MaxRepetitionLevel > 0 {
			return nil, frame.NewError(frame.KindCodec, "read parquet", "nested or repeated column %q is not supported", name)
		}
		dtype, err := parquetDType(leaf.Node)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, parquetLeaf{name: name, index: leaf.ColumnIndex, dtype: dtype})
	}

	value, ok := f.Lookup(SchemaMetadataKey)
	if !ok {
		return leaves, nil
	}
	hint, err := decodeSchema(value)
	if err != nil || len(hint) != len(leaves) {
		return leaves, nil
	}
	byName := make(map[string]parquetLeaf, len(leaves))
	for _, l := range leaves {
		byName[l.name] = l
	}
	ordered := make([]parquetLeaf, 0, len(leaves))
	for _, h := range hint {
		l, ok := byName[h.Name]
		if !ok {
			return leaves, nil
		}
		l.dtype = h.DType
		ordered = append(ordered, l)
	}
	return ordered, nil
}

// parquetSchema returns the frame schema of f without reading row data.
func parquetSchema(f *parquet.File) (frame.Schema, error) {
	leaves, err := parquetLeaves(f)
	if err != nil {
		return nil, err
	}
	s := make(frame.Schema, len(leaves))
	for i, l := range leaves {
		s[i] = frame.Field{Name: l.name, DType: l.dtype}
	}
	return s, nil
}
