package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-shade/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// quad is a unit square in the XY plane, wound counter-clockwise seen from +Z.
var (
	quadPositions = [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	quadIndices   = []uint16{0, 1, 2, 0, 2, 3}
)

// quadBuffer packs positions followed by uint16 indices.
func quadBuffer() []byte {
	var buf bytes.Buffer
	for _, p := range quadPositions {
		binary.Write(&buf, binary.LittleEndian, p)
	}
	binary.Write(&buf, binary.LittleEndian, quadIndices)
	return buf.Bytes()
}

// quadDocument returns a glTF document for the quad. An empty uri marks the GLB BIN chunk.
func quadDocument(uri string, node map[string]any) map[string]any {
	posBytes := len(quadPositions) * 12
	buffer := map[string]any{"byteLength": len(quadBuffer())}
	if uri != "" {
		buffer["uri"] = uri
	}
	if node == nil {
		node = map[string]any{}
	}
	node["mesh"] = 0
	return map[string]any{
		"asset":  map[string]any{"version": "2.0"},
		"scene":  0,
		"scenes": []any{map[string]any{"name": "quad_scene", "nodes": []int{0}}},
		"nodes":  []any{node},
		"meshes": []any{map[string]any{
			"name": "quad",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": 0},
				"indices":    1,
			}},
		}},
		"accessors": []any{
			map[string]any{"bufferView": 0, "componentType": gltfComponentTypeFloat, "count": len(quadPositions), "type": "VEC3"},
			map[string]any{"bufferView": 1, "componentType": gltfComponentTypeUnsignedShort, "count": len(quadIndices), "type": "SCALAR"},
		},
		"bufferViews": []any{
			map[string]any{"buffer": 0, "byteOffset": 0, "byteLength": posBytes},
			map[string]any{"buffer": 0, "byteOffset": posBytes, "byteLength": len(quadIndices) * 2},
		},
		"buffers": []any{buffer},
	}
}

func dataURI(b []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b)
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// packGLB wraps the JSON and binary payloads in a GLB container with 4-byte padded chunks.
func packGLB(jsonChunk, bin []byte) []byte {
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}
	var buf bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(bin)
	binary.Write(&buf, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: uint32(total)})
	binary.Write(&buf, binary.LittleEndian, glbChunkHeader{Length: uint32(len(jsonChunk)), Type: glbChunkJSON})
	buf.Write(jsonChunk)
	binary.Write(&buf, binary.LittleEndian, glbChunkHeader{Length: uint32(len(bin)), Type: glbChunkBIN})
	buf.Write(bin)
	return buf.Bytes()
}

func near(a, b mgl32.Vec3) bool {
	return a.ApproxEqualThreshold(b, 1e-5)
}

func TestLoadEmbeddedGLTF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.gltf")
	if err := os.WriteFile(path, marshal(t, quadDocument(dataURI(quadBuffer()), nil)), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(BackendTypeGLTF)
	m, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name() != "quad" {
		t.Errorf("name = %q, want quad", m.Name())
	}
	if len(m.Vertices()) != 4 || m.IndexCount() != 6 {
		t.Fatalf("got %d vertices %d indices, want 4 and 6", len(m.Vertices()), m.IndexCount())
	}
	for i, v := range m.Vertices() {
		if !near(v.Normal, mgl32.Vec3{0, 0, 1}) {
			t.Errorf("vertex %d normal = %v, want generated +Z", i, v.Normal)
		}
	}

	again, err := l.Load(path)
	if err != nil || again != m {
		t.Errorf("second Load should return the cached model")
	}
	if l.Get(path) != m || len(l.Models()) != 1 {
		t.Errorf("cache does not hold the model under its path")
	}
}

func TestLoadExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quad.bin"), quadBuffer(), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "quad.gltf")
	if err := os.WriteFile(path, marshal(t, quadDocument("quad.bin", nil)), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewLoader(BackendTypeGLTF).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Indices(); got[2] != 2 || got[5] != 3 {
		t.Errorf("indices = %v", got)
	}
}

func TestLoadReaderGLB(t *testing.T) {
	glb := packGLB(marshal(t, quadDocument("", nil)), quadBuffer())

	l := NewLoader(BackendTypeGLTF)
	m, err := l.LoadReader("quad_glb", bytes.NewReader(glb), true)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if m.Name() != "quad_glb" || len(m.Vertices()) != 4 {
		t.Errorf("unexpected model %q with %d vertices", m.Name(), len(m.Vertices()))
	}
	if l.Get("quad_glb") != m {
		t.Error("reader model not cached under its name")
	}
}

func TestLoadBakesNodeTransform(t *testing.T) {
	node := map[string]any{
		"translation": []float32{0, 0, 5},
		// 90 degrees about +Y: +Z normals turn to +X.
		"rotation": []float32{0, float32(math.Sin(math.Pi / 4)), 0, float32(math.Cos(math.Pi / 4))},
		"scale":    []float32{2, 2, 2},
	}
	doc := quadDocument(dataURI(quadBuffer()), node)

	m, err := NewLoader(BackendTypeGLTF).LoadReader("moved", bytes.NewReader(marshal(t, doc)), false)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	v := m.Vertices()
	if !near(v[1].Position, mgl32.Vec3{0, 0, 3}) {
		t.Errorf("vertex 1 at %v, want (0,0,3)", v[1].Position)
	}
	if !near(v[0].Normal, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("normal = %v, want +X", v[0].Normal)
	}
}

func TestWithFitRadius(t *testing.T) {
	glb := packGLB(marshal(t, quadDocument("", nil)), quadBuffer())
	m, err := NewLoader(BackendTypeGLTF, WithFitRadius(1)).LoadReader("fit", bytes.NewReader(glb), true)
	if err != nil {
		t.Fatal(err)
	}
	if r := m.BoundingRadius(); math.Abs(float64(r)-1) > 1e-5 {
		t.Errorf("radius = %v, want 1", r)
	}
	if !near(m.Vertices()[2].Position, mgl32.Vec3{0.70710677, 0.70710677, 0}) {
		t.Errorf("corner at %v", m.Vertices()[2].Position)
	}
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(BackendTypeGLTF)
	if _, err := l.Load("mesh.obj"); err == nil || !strings.Contains(err.Error(), "unsupported model format") {
		t.Errorf("obj: got %v", err)
	}
	if _, err := l.Load(filepath.Join(t.TempDir(), "missing.gltf")); err == nil {
		t.Error("missing file should fail")
	}

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   string
	}{
		{"old version", func(d map[string]any) { d["asset"] = map[string]any{"version": "1.0"} }, "glTF version"},
		{"no geometry", func(d map[string]any) { d["meshes"] = []any{map[string]any{"primitives": []any{}}} }, "no triangle geometry"},
		{"cyclic nodes", func(d map[string]any) { d["nodes"] = []any{map[string]any{"children": []int{0}}} }, "cycle"},
		{"short buffer", func(d map[string]any) {
			d["buffers"] = []any{map[string]any{"uri": dataURI([]byte{1, 2}), "byteLength": 60}}
		}, "shorter than declared"},
		{"negative bufferView", func(d map[string]any) { accessor(d, 0)["bufferView"] = -1 }, "bufferView -1 out of range"},
		{"negative accessor offset", func(d map[string]any) { accessor(d, 0)["byteOffset"] = -64 }, "negative byte offset"},
		{"negative view offset", func(d map[string]any) { view(d, 1)["byteOffset"] = -8 }, "negative byte offset"},
		{"negative count", func(d map[string]any) { accessor(d, 1)["count"] = -3 }, "negative byte offset or count"},
		{"negative buffer", func(d map[string]any) { view(d, 0)["buffer"] = -1 }, "buffer -1 out of range"},
		{"huge count", func(d map[string]any) { accessor(d, 0)["count"] = math.MaxInt32 }, "past the end"},
		{"negative index accessor", func(d map[string]any) { primitive(d)["indices"] = -1 }, "accessor -1 out of range"},
		{"negative scene", func(d map[string]any) { d["scene"] = -1 }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := quadDocument(dataURI(quadBuffer()), nil)
			tt.mutate(doc)
			_, err := l.LoadReader(tt.name, bytes.NewReader(marshal(t, doc)), false)
			if tt.want == "" {
				if err != nil {
					t.Errorf("got %v, want a fallback to scene 0", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}

	if _, err := l.LoadReader("bad_glb", bytes.NewReader([]byte("not a glb at all")), true); err == nil {
		t.Error("bad GLB magic should fail")
	}

	// the JSON chunk header sits right after the 12-byte file header
	glb := packGLB(marshal(t, quadDocument("", nil)), quadBuffer())
	binary.LittleEndian.PutUint32(glb[12:], 0xFFFFFFF0)
	if _, err := l.LoadReader("long_chunk", bytes.NewReader(glb), true); err == nil || !strings.Contains(err.Error(), "exceeds the remaining data") {
		t.Errorf("oversized GLB chunk: got %v", err)
	}
}

func accessor(doc map[string]any, i int) map[string]any {
	return doc["accessors"].([]any)[i].(map[string]any)
}

func view(doc map[string]any, i int) map[string]any {
	return doc["bufferViews"].([]any)[i].(map[string]any)
}

func primitive(doc map[string]any) map[string]any {
	mesh := doc["meshes"].([]any)[0].(map[string]any)
	return mesh["primitives"].([]any)[0].(map[string]any)
}

func TestGenerateNormalsDegenerate(t *testing.T) {
	vertices := make([]model.GPUVertex, 3)
	generateNormals(vertices, []uint32{0, 1, 2})
	for i, v := range vertices {
		if v.Normal != [3]float32{0, 1, 0} {
			t.Errorf("vertex %d normal = %v, want up", i, v.Normal)
		}
	}
}
