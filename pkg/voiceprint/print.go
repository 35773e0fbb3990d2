package voiceprint

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultDimension is the embedding dimensionality produced by the
// reference speaker verification models (ECAPA-TDNN class).
const DefaultDimension = 192

// SampleRate is the audio sample rate, in Hz, that every [Extractor]
// consumes. Audio at other rates must be resampled before extraction.
const SampleRate = 16000

// Print is a speaker voice print: a fixed-dimension embedding vector,
// L2-normalized to unit length when at rest.
type Print []float32

// DimensionError reports an embedding or blob whose dimensionality
// does not match the expected model dimension.
type DimensionError struct {
	Want int // expected vector dimension
	Got  int // actual dimension; for blobs, len(blob)/4
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("voiceprint: dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// Marshal encodes the print as 4*len(p) bytes of little-endian
// IEEE-754 float32 values in vector order. The encoding round-trips
// bit-exactly through [Unmarshal].
func (p Print) Marshal() []byte {
	buf := make([]byte, 4*len(p))
	for i, v := range p {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// Unmarshal decodes a print previously encoded with [Print.Marshal].
// The blob must be exactly 4*dim bytes; any other length fails with a
// *DimensionError and no partial result.
func Unmarshal(blob []byte, dim int) (Print, error) {
	if len(blob) != 4*dim {
		return nil, &DimensionError{Want: dim, Got: len(blob) / 4}
	}
	p := make(Print, dim)
	for i := range p {
		p[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return p, nil
}
