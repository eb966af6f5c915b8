package material

import (
	_ "embed"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shade/common"
)

// GPUMaterialUniformSource is the canonical WGSL definition of the MaterialUniform struct.
// Matches GPUMaterialUniform layout exactly (32 bytes).
//
//go:embed assets/material_uniform.wgsl
var GPUMaterialUniformSource string

// GPUMaterialUniform is the GPU-aligned uniform for the lit fragment shader's group 2.
// Matches the WGSL MaterialUniform struct layout exactly (see GPUMaterialUniformSource).
// Size: 32 bytes.
type GPUMaterialUniform struct {
	Color  [4]float32 // offset  0: RGBA base color
	Params [4]float32 // offset 16: metallic, roughness, unused, unused
}

// Size returns the size of the GPUMaterialUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (32)
func (g *GPUMaterialUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUMaterialUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf[0:], g.Color[:])
	common.PutFloats(buf[16:], g.Params[:])
	return buf
}

// Unmarshal decodes a buffer produced by Marshal.
//
// Parameters:
//   - data: at least 32 bytes of uniform data
//
// Returns:
//   - error: if data is too short
func (g *GPUMaterialUniform) Unmarshal(data []byte) error {
	if len(data) < g.Size() {
		return fmt.Errorf("material uniform needs %d bytes, got %d", g.Size(), len(data))
	}
	common.GetFloats(data[0:], g.Color[:])
	common.GetFloats(data[16:], g.Params[:])
	return nil
}
