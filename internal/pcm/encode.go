package pcm

import (
	"encoding/binary"
	"math"
)

const (
	// BytesPerSample is the width of one LINEAR16 sample.
	BytesPerSample = 2

	positiveScale = 0x7fff
	negativeScale = 0x8000
)

// Encode converts one float sample to a signed 16-bit sample. Negative
// samples scale by 32768 and the rest by 32767, matching the asymmetric
// int16 range. The result is truncated, not rounded or clamped: samples
// outside [-1, 1] wrap around the 16-bit range.
func Encode(f float32) int16 {
	scale := float32(positiveScale)
	if f < 0 {
		scale = negativeScale
	}
	return int16(int32(f * scale))
}

// EncodeBlock converts a capture block into little-endian LINEAR16 bytes.
func EncodeBlock(block []float32) []byte {
	out := make([]byte, len(block)*BytesPerSample)
	for i, f := range block {
		binary.LittleEndian.PutUint16(out[i*BytesPerSample:], uint16(Encode(f)))
	}
	return out
}

// DecodeFloat32LE reads little-endian IEEE-754 samples. Trailing bytes that
// do not form a whole sample are ignored.
func DecodeFloat32LE(raw []byte) []float32 {
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

// Samples reads LINEAR16 bytes back into int16 values.
func Samples(raw []byte) []int16 {
	out := make([]int16, len(raw)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(raw[i*BytesPerSample:]))
	}
	return out
}
