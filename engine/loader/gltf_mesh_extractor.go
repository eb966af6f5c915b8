package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var errNoGeometry = errors.New("document contains no triangle geometry")

// meshData is static geometry flattened into a single vertex and index list.
type meshData struct {
	name     string
	vertices []model.GPUVertex
	indices  []uint32
}

// gltfMeshExtractor flattens every triangle primitive reachable from the default scene into one
// mesh, baking node transforms into positions and normals.
type gltfMeshExtractor struct {
	parser *gltfParser
	log    *zap.Logger
	out    meshData
}

func newGLTFMeshExtractor(parser *gltfParser, log *zap.Logger) *gltfMeshExtractor {
	return &gltfMeshExtractor{parser: parser, log: log}
}

// extract walks the default scene, or every root node when no scene is declared. Documents
// without nodes fall back to each mesh in declaration order with an identity transform.
func (e *gltfMeshExtractor) extract() (*meshData, error) {
	doc := e.parser.doc
	e.out = meshData{name: sceneName(doc)}

	switch {
	case len(doc.Nodes) == 0:
		for i := range doc.Meshes {
			if err := e.appendMesh(i, mgl32.Ident4()); err != nil {
				return nil, err
			}
		}
	default:
		for _, root := range rootNodes(doc) {
			if err := e.walk(root, mgl32.Ident4(), 0); err != nil {
				return nil, err
			}
		}
	}

	if len(e.out.indices) == 0 {
		return nil, errNoGeometry
	}
	return &e.out, nil
}

// walk guards against cyclic hierarchies with a depth limit equal to the node count.
func (e *gltfMeshExtractor) walk(index int, parent mgl32.Mat4, depth int) error {
	doc := e.parser.doc
	if index < 0 || index >= len(doc.Nodes) {
		return fmt.Errorf("node %d out of range", index)
	}
	if depth > len(doc.Nodes) {
		return fmt.Errorf("node %d: hierarchy contains a cycle", index)
	}
	node := &doc.Nodes[index]
	world := parent.Mul4(nodeMatrix(node))

	if node.Mesh != nil {
		if err := e.appendMesh(*node.Mesh, world); err != nil {
			return fmt.Errorf("node %d: %w", index, err)
		}
	}
	for _, child := range node.Children {
		if err := e.walk(child, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *gltfMeshExtractor) appendMesh(index int, world mgl32.Mat4) error {
	doc := e.parser.doc
	if index < 0 || index >= len(doc.Meshes) {
		return fmt.Errorf("mesh %d out of range", index)
	}
	mesh := &doc.Meshes[index]
	for pi := range mesh.Primitives {
		prim := &mesh.Primitives[pi]
		if prim.Mode != nil && *prim.Mode != gltfPrimitiveModeTriangles {
			e.log.Debug("skipping non-triangle primitive",
				zap.String("mesh", mesh.Name),
				zap.Int("primitive", pi),
				zap.Int("mode", *prim.Mode),
			)
			continue
		}
		if err := e.appendPrimitive(prim, world); err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", mesh.Name, pi, err)
		}
	}
	return nil
}

func (e *gltfMeshExtractor) appendPrimitive(prim *gltfPrimitive, world mgl32.Mat4) error {
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return errors.New("primitive has no POSITION attribute")
	}
	positions, err := e.parser.readVec3(posIndex)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	vertices := make([]model.GPUVertex, len(positions))
	for i, pos := range positions {
		vertices[i].Position = pos
	}

	hasNormals := false
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := e.parser.readVec3(idx)
		if err != nil {
			return fmt.Errorf("normals: %w", err)
		}
		for i := range min(len(normals), len(vertices)) {
			vertices[i].Normal = normals[i]
		}
		hasNormals = true
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := e.parser.readVec2(idx)
		if err != nil {
			return fmt.Errorf("texcoords: %w", err)
		}
		for i := range min(len(uvs), len(vertices)) {
			vertices[i].TexCoord = uvs[i]
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = e.parser.readIndices(*prim.Indices); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(vertices))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= len(vertices) {
			return fmt.Errorf("index %d exceeds vertex count %d", idx, len(vertices))
		}
	}

	if !hasNormals {
		generateNormals(vertices, indices)
	}
	bakeTransform(vertices, world)

	base := uint32(len(e.out.vertices))
	e.out.vertices = append(e.out.vertices, vertices...)
	for _, idx := range indices {
		e.out.indices = append(e.out.indices, base+idx)
	}
	return nil
}

// rootNodes returns the nodes of the default scene, the first scene, or every node that is
// nobody's child, in that order of preference.
func rootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		return doc.Scenes[defaultScene(doc)].Nodes
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

func sceneName(doc *gltfDocument) string {
	if len(doc.Scenes) == 0 {
		return ""
	}
	return doc.Scenes[defaultScene(doc)].Name
}

// defaultScene returns the declared scene index, or 0 when it is absent or out of range.
func defaultScene(doc *gltfDocument) int {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		return *doc.Scene
	}
	return 0
}

// nodeMatrix returns the local transform of a node, T * R * S when no matrix is given.
func nodeMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// bakeTransform moves vertices into the parent space. Normals use the inverse transpose so
// non-uniform scale keeps them perpendicular to the surface.
func bakeTransform(vertices []model.GPUVertex, world mgl32.Mat4) {
	if world == mgl32.Ident4() {
		return
	}
	normalMat := world.Mat3().Inv().Transpose()
	for i := range vertices {
		v := &vertices[i]
		v.Position = [3]float32(mgl32.TransformCoordinate(mgl32.Vec3(v.Position), world))
		n := normalMat.Mul3x1(mgl32.Vec3(v.Normal))
		if l := n.Len(); l > 1e-8 {
			n = n.Mul(1 / l)
		}
		v.Normal = [3]float32(n)
	}
}

// generateNormals accumulates area-weighted face normals onto each referenced vertex and
// normalizes the result. Vertices touched only by degenerate triangles point up.
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	accum := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0 := mgl32.Vec3(vertices[i0].Position)
		face := mgl32.Vec3(vertices[i1].Position).Sub(p0).Cross(mgl32.Vec3(vertices[i2].Position).Sub(p0))
		accum[i0] = accum[i0].Add(face)
		accum[i1] = accum[i1].Add(face)
		accum[i2] = accum[i2].Add(face)
	}
	for i, n := range accum {
		if l := n.Len(); l > 1e-6 {
			vertices[i].Normal = [3]float32(n.Mul(1 / l))
		} else {
			vertices[i].Normal = [3]float32{0, 1, 0}
		}
	}
}
