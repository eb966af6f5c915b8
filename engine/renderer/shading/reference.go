package shading

import (
	"github.com/Carmen-Shannon/oxy-shade/engine/light"
	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/Carmen-Shannon/oxy-shade/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexOutput is the per-vertex record handed from the transform stage to the fragment
// stage. For the debug pipeline Normal is the object-space normal; for the lit pipeline it
// is the normalized world-space normal.
type VertexOutput struct {
	Clip   mgl32.Vec4
	Normal mgl32.Vec3
	UV     mgl32.Vec2
}

// TransformDebug is the debug vertex stage: viewProj * (model * vec4(p, 1)). The normal is
// passed through untransformed.
//
// Parameters:
//   - viewProj: the camera view-projection matrix
//   - modelMat: the instance model matrix
//   - v: the object-space vertex
//
// Returns:
//   - VertexOutput: clip position and object-space normal
func TransformDebug(viewProj, modelMat mgl32.Mat4, v model.GPUVertex) VertexOutput {
	p := mgl32.Vec4{v.Position[0], v.Position[1], v.Position[2], 1}
	return VertexOutput{
		Clip:   viewProj.Mul4x1(modelMat.Mul4x1(p)),
		Normal: v.Normal,
		UV:     v.TexCoord,
	}
}

// TransformLit is the lit vertex stage: (viewProj * model) * vec4(p, 1). The normal goes
// through the linear part of the model matrix and is renormalized. Under non-uniform scale
// this differs from the inverse-transpose transform.
//
// Parameters:
//   - viewProj: the view-projection matrix from the scene uniform
//   - modelMat: the instance model matrix
//   - v: the object-space vertex
//
// Returns:
//   - VertexOutput: clip position, world-space normal and texture coordinate
func TransformLit(viewProj, modelMat mgl32.Mat4, v model.GPUVertex) VertexOutput {
	p := mgl32.Vec4{v.Position[0], v.Position[1], v.Position[2], 1}
	n := modelMat.Mul4x1(mgl32.Vec4{v.Normal[0], v.Normal[1], v.Normal[2], 0}).Vec3()
	return VertexOutput{
		Clip:   viewProj.Mul4(modelMat).Mul4x1(p),
		Normal: normalize(n),
		UV:     v.TexCoord,
	}
}

// DebugNormalFragment colors a fragment by the absolute value of its normal.
//
// Parameters:
//   - in: the interpolated vertex output
//
// Returns:
//   - mgl32.Vec4: (|n.x|, |n.y|, |n.z|, 1)
func DebugNormalFragment(in VertexOutput) mgl32.Vec4 {
	return mgl32.Vec4{mgl32.Abs(in.Normal[0]), mgl32.Abs(in.Normal[1]), mgl32.Abs(in.Normal[2]), 1}
}

// LitFragment evaluates ambient plus one Lambertian directional light. The interpolated
// normal is used as given and the result is not clamped.
//
// Parameters:
//   - in: the interpolated vertex output
//   - scene: the scene uniform holding ambient and sun terms
//   - mat: the material uniform
//
// Returns:
//   - mgl32.Vec4: the unclamped color, alpha taken from the material
func LitFragment(in VertexOutput, scene light.GPUSceneUniform, mat material.GPUMaterialUniform) mgl32.Vec4 {
	base := mgl32.Vec3{mat.Color[0], mat.Color[1], mat.Color[2]}
	ambientLight := mgl32.Vec3{scene.AmbientLight[0], scene.AmbientLight[1], scene.AmbientLight[2]}
	sunDir := mgl32.Vec3{scene.SunDirectionIntensity[0], scene.SunDirectionIntensity[1], scene.SunDirectionIntensity[2]}
	sunColor := mgl32.Vec3{scene.SunColor[0], scene.SunColor[1], scene.SunColor[2]}
	intensity := scene.SunDirectionIntensity[3]

	ndotl := mgl32.Clamp(in.Normal.Mul(-1).Dot(sunDir), 0, 1)
	ambient := mulElem(base, ambientLight)
	diffuse := mulElem(base, sunColor.Mul(intensity*ndotl))
	c := ambient.Add(diffuse)
	return mgl32.Vec4{c[0], c[1], c[2], mat.Color[3]}
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// normalize matches WGSL normalize for non-zero vectors. A zero vector stays zero instead of
// turning into NaNs.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}
