package vector

import (
	"encoding/binary"
	"math"
)

// Encode serializes an embedding to a little-endian float64 blob for BLOB
// column storage.
func Encode(embedding []float64) []byte {
	buf := make([]byte, 8*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// Decode deserializes a blob produced by Encode. Returns nil for blobs whose
// length is not a multiple of 8, which indicates corruption.
func Decode(blob []byte) []float64 {
	if len(blob) == 0 || len(blob)%8 != 0 {
		return nil
	}
	embedding := make([]float64, len(blob)/8)
	for i := range embedding {
		embedding[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return embedding
}
