package model

// cubeFace lists the four corners of one cube face in counter-clockwise order seen from
// outside, together with the face normal.
type cubeFace struct {
	positions [4][3]float32
	normal    [3]float32
}

var cubeFaces = []cubeFace{
	{positions: [4][3]float32{{0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}, {0.5, -0.5, 0.5}}, normal: [3]float32{1, 0, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}, {-0.5, -0.5, -0.5}}, normal: [3]float32{-1, 0, 0}},
	{positions: [4][3]float32{{-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}}, normal: [3]float32{0, 1, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}}, normal: [3]float32{0, -1, 0}},
	{positions: [4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}, normal: [3]float32{0, 0, 1}},
	{positions: [4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}, normal: [3]float32{0, 0, -1}},
}

var quadUVs = [4][2]float32{{0, 1}, {0, 0}, {1, 0}, {1, 1}}

// NewCube builds a unit cube centred on the origin with 24 vertices (flat per-face normals)
// and 36 indices.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - Model: the cube mesh
func NewCube(name string) Model {
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for fi, face := range cubeFaces {
		for ci, pos := range face.positions {
			vertices = append(vertices, GPUVertex{
				Position: pos,
				Normal:   face.normal,
				TexCoord: quadUVs[ci],
			})
		}
		base := uint32(fi * 4)
		indices = append(indices,
			base+0, base+1, base+2,
			base+0, base+2, base+3,
		)
	}
	return NewModel(
		WithName(name),
		WithVertices(vertices),
		WithIndices(indices),
	)
}

// NewPlane builds a square in the XZ plane facing +Y, centred on the origin.
//
// Parameters:
//   - name: the model identifier
//   - size: the edge length
//
// Returns:
//   - Model: the plane mesh
func NewPlane(name string, size float32) Model {
	h := size / 2
	corners := [4][3]float32{{-h, 0, -h}, {-h, 0, h}, {h, 0, h}, {h, 0, -h}}
	vertices := make([]GPUVertex, 4)
	for i, c := range corners {
		vertices[i] = GPUVertex{
			Position: c,
			Normal:   [3]float32{0, 1, 0},
			TexCoord: quadUVs[i],
		}
	}
	return NewModel(
		WithName(name),
		WithVertices(vertices),
		WithIndices([]uint32{0, 1, 2, 0, 2, 3}),
	)
}
