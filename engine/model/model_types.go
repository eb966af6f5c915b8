package model

import (
	"github.com/Carmen-Shannon/oxy-shade/common"
	"github.com/go-gl/mathgl/mgl32"
)

// InstanceHandle identifies one instance inside an InstanceSet. Handles stay valid across
// removals of other instances even though the underlying table slot may move.
type InstanceHandle uint64

// Transform is a decomposed placement of one instance in world space.
type Transform struct {
	// Position is the world-space translation.
	Position mgl32.Vec3

	// Rotation is the orientation quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each local axis.
	Scale mgl32.Vec3
}

// NewTransform returns a Transform at the given position with identity rotation and unit scale.
//
// Parameters:
//   - position: the world-space translation
//
// Returns:
//   - Transform: the transform
func NewTransform(position mgl32.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// ModelMatrix composes the transform into a column-major model matrix (T * R * S).
//
// Returns:
//   - mgl32.Mat4: the model matrix
func (t Transform) ModelMatrix() mgl32.Mat4 {
	return common.ModelMatrix(t.Position, t.Rotation, t.Scale)
}
