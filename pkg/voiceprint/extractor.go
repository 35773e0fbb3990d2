package voiceprint

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sync"
)

// Extractor computes speaker embeddings from raw audio.
//
// The input is float32 PCM at 16 kHz, mono (see [SampleRate]). The
// output is a dense float32 vector of a single fixed dimension
// reported by Dimension; an implementation never returns a vector of
// any other length.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multiple goroutines
// may call Extract simultaneously.
type Extractor interface {
	// Extract computes one embedding from 16 kHz mono float32 PCM.
	// The returned vector has length Dimension().
	Extract(ctx context.Context, pcm []float32) ([]float32, error)

	// Dimension returns the dimensionality of extracted embeddings.
	Dimension() int
}

// Extraction errors.
var (
	// ErrEmptyAudio is returned when the input contains no samples.
	ErrEmptyAudio = errors.New("voiceprint: empty audio")

	// ErrUnavailable is returned by [Unavailable] for every extraction.
	ErrUnavailable = errors.New("voiceprint: no embedding model available")
)

// Unavailable is the null [Extractor], used when no inference backend
// is configured. Every extraction fails with [ErrUnavailable]; callers
// that need a working engine must inject [Remote] or [Static] instead.
type Unavailable struct {
	// Dim is the dimension to report; DefaultDimension if zero.
	Dim int
}

var _ Extractor = Unavailable{}

func (u Unavailable) Extract(ctx context.Context, pcm []float32) ([]float32, error) {
	return nil, ErrUnavailable
}

func (u Unavailable) Dimension() int {
	if u.Dim > 0 {
		return u.Dim
	}
	return DefaultDimension
}

// Static is a deterministic [Extractor] for tests and simulation. Each
// embedding is derived from a fingerprint of the audio content: the
// same audio always yields the same embedding, and unrelated audio
// yields uncorrelated pseudo-random unit vectors. Exact outputs can be
// pinned per input with [Static.Put] for scripted scenarios.
type Static struct {
	dim int

	mu     sync.RWMutex
	pinned map[uint64][]float32
}

var _ Extractor = (*Static)(nil)

// NewStatic creates a Static extractor producing dim-dimensional
// embeddings. If dim <= 0, DefaultDimension is used.
func NewStatic(dim int) *Static {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Static{dim: dim, pinned: make(map[uint64][]float32)}
}

// Put pins the embedding returned for exactly this audio. The
// embedding is copied and must have the extractor's dimension.
func (s *Static) Put(pcm []float32, embedding []float32) {
	if len(embedding) != s.dim {
		panic("voiceprint: embedding dimension mismatch")
	}
	cp := make([]float32, len(embedding))
	copy(cp, embedding)
	s.mu.Lock()
	s.pinned[fingerprint(pcm)] = cp
	s.mu.Unlock()
}

// Extract returns the pinned embedding for this audio if one was
// registered, otherwise a unit vector sampled from a PCG seeded by the
// audio fingerprint.
func (s *Static) Extract(ctx context.Context, pcm []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	fp := fingerprint(pcm)

	s.mu.RLock()
	pinned := s.pinned[fp]
	s.mu.RUnlock()
	if pinned != nil {
		out := make([]float32, len(pinned))
		copy(out, pinned)
		return out, nil
	}

	rng := rand.New(rand.NewPCG(fp, fp^0xdeadbeef))
	emb := make([]float32, s.dim)
	for i := range emb {
		emb[i] = float32(rng.NormFloat64())
	}
	Normalize(emb)
	return emb, nil
}

// Dimension returns the configured embedding dimension.
func (s *Static) Dimension() int { return s.dim }

// fingerprint hashes the raw bit pattern of the samples.
func fingerprint(pcm []float32) uint64 {
	h := fnv.New64a()
	var buf [4]byte
	for _, v := range pcm {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}
