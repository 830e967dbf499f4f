package embcache

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// encode packs a vector as little-endian float32s.
func encode(v []float32) []byte {
	out := make([]byte, 0, len(v)*float32Size)
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func decode(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%float32Size != 0 {
		return nil, fmt.Errorf("embcache: malformed entry of %d bytes", len(b))
	}
	v := make([]float32, 0, len(b)/float32Size)
	for off := 0; off < len(b); off += float32Size {
		v = append(v, math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
	}
	return v, nil
}
