// annotations.go defines the @oxy: comment annotations understood by the WGSL pre-processor.
// An annotation is a single-line WGSL comment that either injects a registered struct
// definition or expands into a @group/@binding variable declaration backed by one.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude replaces the annotation line with the WGSL source of a registered
	// struct. It is consumed entirely during pre-processing.
	//
	// Syntax: //@oxy:include <struct_type>
	//
	// Example: //@oxy:include scene
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup expands into a @group/@binding variable declaration and is
	// recorded in the pre-processor's declarations so layouts can be matched to providers.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <struct_type>
	//
	// Example: //@oxy:group 1 0 storage_uniform instances instance_table
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Annotation is one parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments:
	//   - include: [0] = struct type key
	//   - group:   [0] = address space, [1] = var name, [2] = struct type key
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// AnnotationArg is a typed string constant used as an annotation argument.
type AnnotationArg string

// Struct type arguments. Each maps to a Go GPU type with an embedded .wgsl asset.
const (
	// AnnotationArgCamera identifies the CameraUniform struct (engine/camera).
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgScene identifies the SceneUniform struct (engine/light).
	AnnotationArgScene AnnotationArg = "scene"

	// annotationArgVertex identifies the VertexInput struct (engine/model).
	annotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgInstanceTable identifies the InstanceTable struct (engine/model).
	AnnotationArgInstanceTable AnnotationArg = "instance_table"

	// AnnotationArgMaterial identifies the MaterialUniform struct (engine/renderer/material).
	AnnotationArgMaterial AnnotationArg = "material"
)

// Address space arguments for group annotations.
const (
	annotationArgStorageTypeUniform AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead    AnnotationArg = "storage_read"
)

var validStructTypes = []AnnotationArg{
	AnnotationArgCamera,
	AnnotationArgScene,
	annotationArgVertex,
	AnnotationArgInstanceTable,
	AnnotationArgMaterial,
}

var validAddressSpaces = []AnnotationArg{
	annotationArgStorageTypeUniform,
	annotationArgStorageTypeRead,
}

// parseAnnotation parses one WGSL source line. Lines without the annotation prefix return
// nil and no error.
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: if the annotation is malformed or names an unknown argument
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy group annotation requires group, binding, address space, name and struct type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @oxy group annotation", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @oxy group annotation", lineNum, args[2])
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @oxy group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @oxy group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
