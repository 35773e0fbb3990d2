// Package archive persists the raw audio samples of successful
// enrollments so they can be audited or re-enrolled later.
//
// Samples are written as immutable objects named
//
//	{prefix}/{profileID}/{uuid}.pcm
//
// where the payload is the sample's 32-bit little-endian float PCM.
// The backend is pluggable: [S3] targets Amazon S3 or any S3-compatible
// store, [Dir] targets a local directory tree.
package archive

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// Backend stores immutable blobs. Keys are forward-slash separated.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the object stored under key. If the key does not
	// exist, an error wrapping os.ErrNotExist is returned.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys of every object whose key starts with
	// prefix, in lexical order. A prefix with no objects yields an
	// empty list, not an error.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archive stores enrollment samples through a [Backend].
type Archive struct {
	backend Backend
	prefix  string
}

// New creates an Archive writing through backend. Prefix is prepended
// to every object key; pass "" for none.
func New(backend Backend, prefix string) *Archive {
	return &Archive{backend: backend, prefix: prefix}
}

// dir builds the key directory for one profile's samples.
func (a *Archive) dir(profileID int64) string {
	d := strconv.FormatInt(profileID, 10)
	if a.prefix == "" {
		return d
	}
	return a.prefix + "/" + d
}

// SaveSamples writes one object per sample under the profile's
// directory. Each object gets a fresh random name, so repeated saves
// never overwrite earlier ones. The first backend failure aborts and is
// returned; objects already written stay behind.
func (a *Archive) SaveSamples(ctx context.Context, profileID int64, samples [][]float32) error {
	for i, pcm := range samples {
		key := a.dir(profileID) + "/" + uuid.New().String() + ".pcm"
		if err := a.backend.Put(ctx, key, pcmBytes(pcm)); err != nil {
			return fmt.Errorf("archive: save sample %d for profile %d: %w", i, profileID, err)
		}
	}
	return nil
}

// ListSamples returns the keys of every archived sample for one
// profile, in lexical order.
func (a *Archive) ListSamples(ctx context.Context, profileID int64) ([]string, error) {
	keys, err := a.backend.List(ctx, a.dir(profileID)+"/")
	if err != nil {
		return nil, fmt.Errorf("archive: list samples for profile %d: %w", profileID, err)
	}
	return keys, nil
}

// ReadSample fetches one archived sample by key, as returned by
// [Archive.ListSamples], and decodes it back to float PCM.
func (a *Archive) ReadSample(ctx context.Context, key string) ([]float32, error) {
	data, err := a.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("archive: read sample %s: %w", key, err)
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("archive: sample %s: %d bytes, not 32-bit aligned", key, len(data))
	}
	pcm := make([]float32, len(data)/4)
	for i := range pcm {
		pcm[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return pcm, nil
}

// pcmBytes encodes PCM as little-endian IEEE-754 float32.
func pcmBytes(pcm []float32) []byte {
	buf := make([]byte, 4*len(pcm))
	for i, s := range pcm {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(s))
	}
	return buf
}
