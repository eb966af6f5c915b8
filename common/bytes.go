package common

import (
	"encoding/binary"
	"math"
)

// PutFloats writes values into buf as consecutive little-endian float32s, the byte order of
// every GPU buffer upload.
//
// Parameters:
//   - buf: destination, at least 4*len(values) bytes
//   - values: the floats to write
func PutFloats(buf []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

// GetFloats fills dst from consecutive little-endian float32s in buf.
//
// Parameters:
//   - buf: source, at least 4*len(dst) bytes
//   - dst: the floats to fill
func GetFloats(buf []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
}
