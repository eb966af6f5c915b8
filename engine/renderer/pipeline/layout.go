package pipeline

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// MergeBindGroupLayouts combines the vertex and fragment stage layout descriptors into the
// descriptors of one render pipeline layout.
//
// For each group index present in either stage:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one stage are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
//   - error: ErrLayoutMismatch if both stages declare a binding with a different buffer type or size
func MergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) (map[int]wgpu.BindGroupLayoutDescriptor, error) {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts)+len(fragmentLayouts))
	for g, desc := range vertexLayouts {
		merged[g] = desc
	}

	for g, fDesc := range fragmentLayouts {
		vDesc, shared := merged[g]
		if !shared {
			merged[g] = fDesc
			continue
		}

		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries)+len(fDesc.Entries))
		for _, e := range vDesc.Entries {
			entryMap[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			existing, ok := entryMap[e.Binding]
			if !ok {
				entryMap[e.Binding] = e
				continue
			}
			if existing.Buffer.Type != e.Buffer.Type || existing.Buffer.MinBindingSize != e.Buffer.MinBindingSize {
				return nil, fmt.Errorf("%w: @group(%d) @binding(%d) differs between vertex and fragment stages",
					ErrLayoutMismatch, g, e.Binding)
			}
			existing.Visibility |= e.Visibility
			entryMap[e.Binding] = existing
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   vDesc.Label,
			Entries: entries,
		}
	}
	return merged, nil
}

// ValidateLayout checks a Go GPU struct against the layout of its WGSL counterpart. Go fields
// named "_" or starting with "_" are padding and are skipped; every other field must line up
// with the WGSL member at the same position in offset and size, and the total sizes must match.
//
// Parameters:
//   - layout: the WGSL struct layout from shader.Shader.StructLayout
//   - host: a value or pointer of the Go struct type
//
// Returns:
//   - error: ErrLayoutMismatch describing the first difference
func ValidateLayout(layout shader.StructLayout, host any) error {
	t := reflect.TypeOf(host)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s: host value is not a struct", ErrLayoutMismatch, layout.Name)
	}

	fields := hostFields(t)
	if len(fields) != len(layout.Fields) {
		return fmt.Errorf("%w: %s has %d members, %s has %d fields",
			ErrLayoutMismatch, layout.Name, len(layout.Fields), t.Name(), len(fields))
	}
	for i, f := range fields {
		w := layout.Fields[i]
		if uint64(f.Offset) != w.Offset || uint64(f.Type.Size()) != w.Size {
			return fmt.Errorf("%w: %s.%s is %d bytes at offset %d, %s.%s is %d bytes at offset %d",
				ErrLayoutMismatch, layout.Name, w.Name, w.Size, w.Offset, t.Name(), f.Name, f.Type.Size(), f.Offset)
		}
	}
	if uint64(t.Size()) != layout.Size {
		return fmt.Errorf("%w: %s is %d bytes, %s is %d bytes",
			ErrLayoutMismatch, layout.Name, layout.Size, t.Name(), t.Size())
	}
	return nil
}

// ValidateVertexLayout checks a Go vertex struct against a vertex buffer layout: the array
// stride must equal the struct size and attribute i must start at field i's offset.
//
// Parameters:
//   - layout: the vertex buffer layout parsed from the vertex shader
//   - host: a value or pointer of the Go vertex type
//
// Returns:
//   - error: ErrLayoutMismatch describing the first difference
func ValidateVertexLayout(layout wgpu.VertexBufferLayout, host any) error {
	t := reflect.TypeOf(host)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: vertex host value is not a struct", ErrLayoutMismatch)
	}
	if uint64(t.Size()) != layout.ArrayStride {
		return fmt.Errorf("%w: vertex stride %d, %s is %d bytes", ErrLayoutMismatch, layout.ArrayStride, t.Name(), t.Size())
	}

	fields := hostFields(t)
	if len(fields) != len(layout.Attributes) {
		return fmt.Errorf("%w: %d vertex attributes, %s has %d fields",
			ErrLayoutMismatch, len(layout.Attributes), t.Name(), len(fields))
	}
	for i, f := range fields {
		if uint64(f.Offset) != layout.Attributes[i].Offset {
			return fmt.Errorf("%w: attribute @location(%d) at offset %d, %s.%s at offset %d",
				ErrLayoutMismatch, layout.Attributes[i].ShaderLocation, layout.Attributes[i].Offset, t.Name(), f.Name, f.Offset)
		}
	}
	return nil
}

func hostFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if strings.HasPrefix(f.Name, "_") {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}
