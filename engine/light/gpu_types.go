package light

import (
	_ "embed"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUSceneUniformSource is the canonical WGSL definition of the SceneUniform struct.
// Matches GPUSceneUniform layout exactly (112 bytes).
//
//go:embed assets/scene_uniform.wgsl
var GPUSceneUniformSource string

// GPUSceneUniform is the GPU-aligned representation of the lit pipeline's group 0 uniform.
// Matches the WGSL SceneUniform struct layout exactly (see GPUSceneUniformSource).
// Size: 112 bytes.
type GPUSceneUniform struct {
	ViewProj              [16]float32 // offset   0: combined view-projection matrix (mat4x4<f32>)
	AmbientLight          [4]float32  // offset  64: ambient rgb, alpha unused
	SunDirectionIntensity [4]float32  // offset  80: xyz travel direction (unit), w intensity
	SunColor              [4]float32  // offset  96: sun rgb, alpha unused
}

// NewSceneUniform assembles the scene uniform from a camera matrix, an ambient color and a sun.
// A nil or disabled sun contributes zero intensity.
//
// Parameters:
//   - viewProj: the camera view-projection matrix
//   - ambient: ambient light color
//   - sun: the directional light, may be nil
//
// Returns:
//   - GPUSceneUniform: the populated uniform
func NewSceneUniform(viewProj mgl32.Mat4, ambient mgl32.Vec3, sun Light) GPUSceneUniform {
	u := GPUSceneUniform{
		ViewProj:     viewProj,
		AmbientLight: [4]float32{ambient[0], ambient[1], ambient[2], 1},
	}
	if sun == nil {
		u.SunDirectionIntensity = [4]float32{defaultDirection[0], defaultDirection[1], defaultDirection[2], 0}
		return u
	}

	dir := sun.Direction()
	intensity := sun.Intensity()
	if !sun.Enabled() {
		intensity = 0
	}
	color := sun.Color()
	u.SunDirectionIntensity = [4]float32{dir[0], dir[1], dir[2], intensity}
	u.SunColor = [4]float32{color[0], color[1], color[2], 1}
	return u
}

// Size returns the size of the GPUSceneUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (112)
func (g *GPUSceneUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSceneUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the 112-byte serialized uniform
func (g *GPUSceneUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	common.PutFloats(buf[0:], g.ViewProj[:])
	common.PutFloats(buf[64:], g.AmbientLight[:])
	common.PutFloats(buf[80:], g.SunDirectionIntensity[:])
	common.PutFloats(buf[96:], g.SunColor[:])
	return buf
}

// Unmarshal decodes a buffer produced by Marshal.
//
// Parameters:
//   - data: at least 112 bytes of uniform data
//
// Returns:
//   - error: if data is too short
func (g *GPUSceneUniform) Unmarshal(data []byte) error {
	if len(data) < g.Size() {
		return fmt.Errorf("scene uniform needs %d bytes, got %d", g.Size(), len(data))
	}
	common.GetFloats(data[0:], g.ViewProj[:])
	common.GetFloats(data[64:], g.AmbientLight[:])
	common.GetFloats(data[80:], g.SunDirectionIntensity[:])
	common.GetFloats(data[96:], g.SunColor[:])
	return nil
}
