// pre_processor.go expands @oxy: annotations in WGSL source. Include annotations are replaced
// by the embedded WGSL of a registered GPU struct, so the shader and its Go mirror share one
// definition. Group annotations become @group/@binding declarations and are collected for
// layout wiring.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/engine/camera"
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
)

// registryEntry pairs an embedded WGSL struct source with its WGSL type name.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations is reset on every Process call.
	declarations []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source.
type PreProcessor interface {
	// Process expands every annotation in source. The declarations list is reset first.
	//
	// Parameters:
	//   - source: raw WGSL source with annotations
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: if an annotation is malformed or references an unknown type
	Process(source string) (string, error)

	// Declarations returns the group annotations found by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the collected declarations
	Declarations() []Annotation

	// StructType resolves a struct type argument to its WGSL type name.
	//
	// Parameters:
	//   - arg: the struct type key
	//
	// Returns:
	//   - string: the WGSL type name
	//   - bool: false when the key is not registered
	StructType(arg AnnotationArg) (string, bool)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the engine's GPU struct types registered.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:        {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			AnnotationArgScene:         {Source: light.GPUSceneUniformSource, Type: "SceneUniform"},
			annotationArgVertex:        {Source: model.GPUVertexSource, Type: "VertexInput"},
			AnnotationArgInstanceTable: {Source: model.GPUInstanceTableSource, Type: "InstanceTable"},
			AnnotationArgMaterial:      {Source: material.GPUMaterialUniformSource, Type: "MaterialUniform"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform: "var<uniform>",
			annotationArgStorageTypeRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			out = append(out, p.structRegistry[a.Args[0]].Source)
		case AnnotationTypeBindingGroup:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding,
				p.addressSpaceRegistry[a.Args[0]],
				a.Args[1],
				p.structRegistry[a.Args[2]].Type,
			))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

func (p *preProcessor) StructType(arg AnnotationArg) (string, bool) {
	entry, ok := p.structRegistry[arg]
	return entry.Type, ok
}
