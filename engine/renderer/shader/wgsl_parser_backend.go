package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslPrimitiveLayoutMap maps WGSL scalar, vector and matrix type names to their byte size
// and alignment.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec3<u32>": {12, 16},
	"vec4<u32>": {16, 16},
	"vec2<i32>": {8, 8},
	"vec3<i32>": {12, 16},
	"vec4<i32>": {16, 16},

	// matCxR<f32>: C columns of vecR<f32>
	"mat3x3<f32>": {48, 16},
	"mat3x4<f32>": {48, 16},
	"mat4x3<f32>": {64, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// roundUpAlign rounds value up to the next multiple of a power-of-two alignment.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves a WGSL type to its size and alignment using primitives and the
// already-computed struct layouts. Fixed-size arrays are resolved with their element stride;
// runtime-sized arrays resolve to one element, the minimum useful binding size.
//
// Parameters:
//   - typeName: the WGSL type name, e.g. "f32", "SceneUniform", "array<mat4x4<f32>, 1024>"
//   - known: already-resolved struct layouts
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false for unknown types
func resolveTypeLayout(typeName string, known map[string]StructLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := known[typeName]; ok {
		return wgslTypeLayout{layout.Size, layout.Align}, true
	}

	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	inner = inner[:len(inner)-1]

	elemType, countStr := inner, ""
	if i := strings.LastIndex(inner, ","); i >= 0 && !strings.Contains(inner[i:], ">") {
		elemType, countStr = strings.TrimSpace(inner[:i]), strings.TrimSpace(inner[i+1:])
	}
	elem, ok := resolveTypeLayout(elemType, known)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elem.align, elem.size)
	if countStr == "" {
		return wgslTypeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(countStr, 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * stride, elem.align}, true
}

// computeStructLayout places each field at the next offset aligned for its type and rounds the
// total size up to the largest field alignment. @builtin fields are not part of any buffer and
// are skipped.
//
// Parameters:
//   - ps: the parsed struct
//   - known: already-resolved struct layouts
//
// Returns:
//   - StructLayout: the computed layout
//   - bool: false if a field type cannot be resolved yet
func computeStructLayout(ps parsedStruct, known map[string]StructLayout) (StructLayout, bool) {
	out := StructLayout{Name: ps.name, Align: 1}
	offset := uint64(0)

	for _, field := range ps.fields {
		if field.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(field.typeName, known)
		if !ok {
			return StructLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset)
		out.Fields = append(out.Fields, FieldLayout{
			Name:   field.name,
			Type:   field.typeName,
			Offset: offset,
			Size:   fl.size,
			Align:  fl.align,
		})
		offset += fl.size
		out.Align = max(out.Align, fl.align)
	}

	out.Size = roundUpAlign(out.Align, offset)
	return out, true
}

// computeStructLayouts resolves every parsed struct, repeating passes so structs can contain
// structs declared after them.
//
// Parameters:
//   - structs: all parsed struct blocks from the WGSL source
//
// Returns:
//   - map[string]StructLayout: layouts keyed by struct name
func computeStructLayouts(structs []parsedStruct) map[string]StructLayout {
	resolved := make(map[string]StructLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}
	return resolved
}

// classifyResource creates a buffer layout entry from the address space of a declaration.
// Handle types (textures, samplers) carry no address space and are rejected.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier, e.g. "uniform" or "storage, read"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the buffer layout entry
//   - error: for handle types and writable storage
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace string) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case addressSpace == "storage" || strings.ReplaceAll(addressSpace, " ", "") == "storage,read":
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	case addressSpace == "":
		return entry, fmt.Errorf("texture and sampler bindings are not supported")
	default:
		return entry, fmt.Errorf("unsupported address space %q", addressSpace)
	}
	return entry, nil
}

// stripComments removes both single-line (//) and block (/* */) comments from WGSL source.
func stripComments(source string) string {
	return stripLineComments(stripBlockComments(source))
}

// stripLineComments removes single-line // comments from WGSL source.
func stripLineComments(source string) string {
	var sb strings.Builder
	for line := range strings.SplitSeq(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// stripBlockComments removes block comments, which may nest in WGSL.
func stripBlockComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); {
		if i+1 < len(source) {
			if source[i] == '/' && source[i+1] == '*' {
				depth++
				i += 2
				continue
			}
			if source[i] == '*' && source[i+1] == '/' && depth > 0 {
				depth--
				i += 2
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
		i++
	}
	return sb.String()
}

// isVertexInputStruct reports whether a struct has @location fields and no @builtin fields,
// which separates vertex inputs from stage outputs carrying @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexBufferLayout converts a vertex input struct into a tightly packed per-vertex
// buffer layout.
//
// Parameters:
//   - ps: the parsed vertex input struct
//
// Returns:
//   - wgpu.VertexBufferLayout: the constructed vertex buffer layout
//   - bool: false if a field type has no vertex format
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64

	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// splitAtTopLevelCommas splits a struct body at commas outside angle brackets, keeping types
// like array<mat4x4<f32>, 1024> intact.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
