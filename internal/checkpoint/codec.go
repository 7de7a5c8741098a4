package checkpoint

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloats packs values as little-endian IEEE 754 float32.
func encodeFloats(values []float32) []byte {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// decodeFloats is the inverse of encodeFloats. want is the expected
// element count.
func decodeFloats(buf []byte, want int) ([]float32, error) {
	if len(buf) != 4*want {
		return nil, fmt.Errorf("checkpoint: blob has %d bytes, want %d", len(buf), 4*want)
	}
	values := make([]float32, want)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return values, nil
}
