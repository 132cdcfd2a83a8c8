package gpucore

import (
	"encoding/binary"
	"math"
)

// Float32Bytes encodes floats as little-endian bytes, the layout every
// backend expects for float buffers and RG32Float textures.
func Float32Bytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// BytesFloat32 decodes little-endian bytes into floats. Trailing bytes that
// do not form a whole float are ignored.
func BytesFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// PutVec2 writes two floats at the start of dst.
func PutVec2(dst []byte, x, y float32) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(y))
}

// Vec2 reads two floats from the start of src.
func Vec2(src []byte) (x, y float32) {
	x = math.Float32frombits(binary.LittleEndian.Uint32(src[0:]))
	y = math.Float32frombits(binary.LittleEndian.Uint32(src[4:]))
	return x, y
}
