package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-shade/common"
)

var (
	errInvalidGLTFVersion = errors.New("unsupported glTF version, expected 2.x")
	errInvalidGLBMagic    = errors.New("not a GLB file")
	errInvalidGLBVersion  = errors.New("unsupported GLB container version")
	errMissingJSONChunk   = errors.New("GLB has no JSON chunk")
	errBufferTooShort     = errors.New("buffer shorter than declared byteLength")
	errAccessorOutOfRange = errors.New("accessor reads past the end of its buffer")
	errNegativeAccessor   = errors.New("negative byte offset or count")
	errGLBChunkTooLong    = errors.New("GLB chunk length exceeds the remaining data")
)

// gltfParser decodes a .gltf or .glb document and resolves its buffers so accessors can be
// read as typed slices.
type gltfParser struct {
	doc     *gltfDocument
	baseDir string
	glbBin  []byte
}

// parseFile reads a document from disk. The container is chosen by extension or by the GLB
// magic at the start of the file.
func (p *gltfParser) parseFile(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	return p.parseBytes(data, isGLB)
}

// parseReader reads a whole document from r. External buffer URIs resolve against the working
// directory.
func (p *gltfParser) parseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read model data: %w", err)
	}
	return p.parseBytes(data, isGLB)
}

func (p *gltfParser) parseBytes(data []byte, isGLB bool) error {
	if isGLB {
		jsonChunk, bin, err := splitGLB(data)
		if err != nil {
			return err
		}
		data, p.glbBin = jsonChunk, bin
	}

	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return errInvalidGLTFVersion
	}
	if err := p.resolveBuffers(&doc); err != nil {
		return err
	}
	p.doc = &doc
	return nil
}

// splitGLB walks the chunk list of a GLB container and returns the JSON and BIN payloads.
func splitGLB(data []byte) ([]byte, []byte, error) {
	r := bytes.NewReader(data)

	var header glbHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("read GLB header: %w", err)
	}
	if header.Magic != glbMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != glbVersion {
		return nil, nil, errInvalidGLBVersion
	}

	var jsonChunk, bin []byte
	for {
		var ch glbChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("read GLB chunk header: %w", err)
		}
		if int64(ch.Length) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("chunk of %d bytes: %w", ch.Length, errGLBChunkTooLong)
		}
		payload := make([]byte, ch.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("read GLB chunk: %w", err)
		}
		switch ch.Type {
		case glbChunkJSON:
			jsonChunk = payload
		case glbChunkBIN:
			bin = payload
		}
	}
	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, bin, nil
}

func (p *gltfParser) resolveBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && p.glbBin != nil:
			buf.data = p.glbBin
		case buf.URI == "":
			return fmt.Errorf("buffer %d: no uri and no GLB binary chunk", i)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, buf.URI))
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferTooShort)
		}
	}
	return nil
}

// decodeDataURI accepts data:[<mediatype>];base64,<payload>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data uri encoding %q", header)
	}
	return base64.StdEncoding.DecodeString(payload)
}

// elements returns the raw bytes of every element of an accessor with the stride removed.
func (p *gltfParser) elements(index int, elemSize int) ([][]byte, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &p.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil {
		return nil, fmt.Errorf("accessor %d: missing bufferView", index)
	}
	if *acc.BufferView < 0 || *acc.BufferView >= len(p.doc.BufferViews) {
		return nil, fmt.Errorf("accessor %d: bufferView %d out of range", index, *acc.BufferView)
	}
	bv := &p.doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(p.doc.Buffers) {
		return nil, fmt.Errorf("accessor %d: buffer %d out of range", index, bv.Buffer)
	}
	if bv.ByteOffset < 0 || acc.ByteOffset < 0 || acc.Count < 0 {
		return nil, fmt.Errorf("accessor %d: %w", index, errNegativeAccessor)
	}
	data := p.doc.Buffers[bv.Buffer].data

	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	// checked without multiplying so huge counts or offsets cannot overflow
	if bv.ByteOffset > len(data) || acc.ByteOffset > len(data)-bv.ByteOffset {
		return nil, fmt.Errorf("accessor %d: %w", index, errAccessorOutOfRange)
	}
	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 {
		avail := len(data) - start
		if avail < elemSize || acc.Count-1 > (avail-elemSize)/stride {
			return nil, fmt.Errorf("accessor %d: %w", index, errAccessorOutOfRange)
		}
	}

	out := make([][]byte, acc.Count)
	for i := range out {
		off := start + i*stride
		out[i] = data[off : off+elemSize]
	}
	return out, nil
}

// readFloatVec reads a FLOAT accessor of the given type into n-component vectors.
func (p *gltfParser) readFloatVec(index int, accType string, n int) ([][]float32, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &p.doc.Accessors[index]
	if acc.Type != accType || acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d is %s/%d, want %s FLOAT", index, acc.Type, acc.ComponentType, accType)
	}
	raw, err := p.elements(index, 4*n)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(raw))
	for i, e := range raw {
		v := make([]float32, n)
		common.GetFloats(e, v)
		out[i] = v
	}
	return out, nil
}

func (p *gltfParser) readVec3(index int) ([][3]float32, error) {
	vs, err := p.readFloatVec(index, gltfAccessorTypeVec3, 3)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = [3]float32(v)
	}
	return out, nil
}

func (p *gltfParser) readVec2(index int) ([][2]float32, error) {
	vs, err := p.readFloatVec(index, gltfAccessorTypeVec2, 2)
	if err != nil {
		return nil, err
	}
	out := make([][2]float32, len(vs))
	for i, v := range vs {
		out[i] = [2]float32(v)
	}
	return out, nil
}

// readIndices widens an unsigned SCALAR accessor to uint32.
func (p *gltfParser) readIndices(index int) ([]uint32, error) {
	if index < 0 || index >= len(p.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", index)
	}
	acc := &p.doc.Accessors[index]
	if acc.Type != gltfAccessorTypeScalar {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}

	var size int
	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		size = 1
	case gltfComponentTypeUnsignedShort:
		size = 2
	case gltfComponentTypeUnsignedInt:
		size = 4
	default:
		return nil, fmt.Errorf("index accessor %d: unsupported component type %d", index, acc.ComponentType)
	}

	raw, err := p.elements(index, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(raw))
	for i, e := range raw {
		switch size {
		case 1:
			out[i] = uint32(e[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		default:
			out[i] = binary.LittleEndian.Uint32(e)
		}
	}
	return out, nil
}
