package main

import (
	"strconv"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// placement is one cube of the preview grid.
type placement struct {
	material  string
	transform model.Transform
}

func materialName(i int) string {
	return "color_" + strconv.Itoa(i)
}

// buildGrid lays out n*n cubes on the XZ plane centred on the origin. Materials are assigned
// in a checkerboard-like round robin so neighbouring cubes differ.
//
// Parameters:
//   - n: cubes per side
//   - spacing: distance between neighbouring cube centres
//   - colors: number of registered materials
//
// Returns:
//   - []placement: the cubes in row-major order
func buildGrid(n int, spacing float32, colors int) []placement {
	if n <= 0 || colors <= 0 {
		return nil
	}
	offset := float32(n-1) * spacing / 2
	out := make([]placement, 0, n*n)
	for z := range n {
		for x := range n {
			out = append(out, placement{
				material: materialName((x + z) % colors),
				transform: model.NewTransform(mgl32.Vec3{
					float32(x)*spacing - offset,
					0,
					float32(z)*spacing - offset,
				}),
			})
		}
	}
	return out
}
