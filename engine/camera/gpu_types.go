package camera

import (
	_ "embed"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shade/common"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (64 bytes).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer bound by the
// debug pipeline. Matches the WGSL CameraUniform struct layout exactly (see GPUCameraUniformSource).
// Size: 64 bytes.
type GPUCameraUniform struct {
	ViewProj [16]float32 // offset 0: combined view-projection matrix (mat4x4<f32>)
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf, g.ViewProj[:])
	return buf
}

// Unmarshal decodes a buffer produced by Marshal.
//
// Parameters:
//   - data: at least 64 bytes of uniform data
//
// Returns:
//   - error: if data is too short
func (g *GPUCameraUniform) Unmarshal(data []byte) error {
	if len(data) < g.Size() {
		return fmt.Errorf("camera uniform needs %d bytes, got %d", g.Size(), len(data))
	}
	common.GetFloats(data, g.ViewProj[:])
	return nil
}
