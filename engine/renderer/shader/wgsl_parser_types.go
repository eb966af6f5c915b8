package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment of a WGSL type in a host-shareable
// address space.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// FieldLayout is the resolved placement of one struct member.
type FieldLayout struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
	Align  uint64
}

// StructLayout is the resolved memory layout of a WGSL struct. Host code compares it against
// the Go mirror of the struct to catch drift between the two.
type StructLayout struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []FieldLayout
}

// Field looks up a member by name.
//
// Parameters:
//   - name: the member name
//
// Returns:
//   - FieldLayout: the member placement
//   - bool: false if the struct has no such member
func (l StructLayout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}
