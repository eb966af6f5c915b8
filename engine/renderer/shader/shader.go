package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader module provides.
type ShaderType int

const (
	// ShaderTypeVertex is a module with a @vertex entry point.
	ShaderTypeVertex ShaderType = iota + 1

	// ShaderTypeFragment is a module with a @fragment entry point.
	ShaderTypeFragment
)

// String returns the stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	structLayouts              map[string]StructLayout
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader is a pre-processed and parsed WGSL module. Everything a pipeline needs is derived
// from the source: the entry point, bind group layouts, vertex buffer layouts and the
// memory layout of every struct.
type Shader interface {
	// Key retrieves the unique identifier for this shader.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the expanded WGSL source code
	Source() string

	// BindGroupLayoutDescriptor retrieves the layout descriptor of one bind group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty one if the group is unused
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not declared
	BindGroupVarName(group, binding int) string

	// VertexLayouts retrieves the vertex buffer layouts parsed from vertex input structs.
	//
	// Returns:
	//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by declaration order
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// StructLayout retrieves the computed memory layout of a struct declared in the source.
	//
	// Parameters:
	//   - name: the WGSL struct name
	//
	// Returns:
	//   - StructLayout: the resolved layout
	//   - bool: false if the struct is not declared or cannot be sized
	StructLayout(name string) (StructLayout, bool)

	// EntryPoint returns the entry point function name for the shader's stage.
	EntryPoint() string

	// Module returns the shader module descriptor holding the expanded WGSL code.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage of the shader.
	ShaderType() ShaderType

	// Declarations returns the @oxy:group annotations found while pre-processing.
	//
	// Returns:
	//   - []Annotation: binding declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader loads, pre-processes and parses a WGSL file.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage the module provides
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: if the file cannot be read or the source is invalid
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: empty source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data))
}

// NewShaderFromSource pre-processes and parses WGSL held in memory, typically an embedded asset.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage the module provides
//   - source: raw WGSL source, may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: if an annotation is malformed, the entry point is missing or a binding is invalid
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	default:
		return nil, fmt.Errorf("shader %s: unsupported shader type %v", key, shaderType)
	}

	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: pre-process: %w", key, err)
	}

	s := &shader{
		key:           key,
		source:        processed,
		shaderType:    shaderType,
		vertexLayouts: make(map[int][]wgpu.VertexBufferLayout),
		declarations:  pp.Declarations(),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
	}

	s.entryPoint = parseEntryPoint(processed, shaderType)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no @%s entry point", key, shaderType)
	}
	if shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayouts(processed)
	}
	s.structLayouts = computeStructLayouts(parseStructBlocks(stripComments(processed)))
	s.bindGroupLayoutDescriptors, s.bindingVarNames, err = parseBindGroupLayouts(processed, visibility)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.structLayouts[name]
	return l, ok
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
