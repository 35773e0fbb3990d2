// Package wav reads PCM WAV files and converts them to the 16 kHz mono
// float PCM that speaker embedding models expect.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

var (
	// ErrFormat means the input is not a RIFF/WAVE stream.
	ErrFormat = errors.New("wav: not a RIFF/WAVE file")

	// ErrUnsupported means the file is a valid WAV but not 16-bit PCM.
	ErrUnsupported = errors.New("wav: unsupported encoding")
)

// maxDataBytes caps the data chunk allocation so a corrupt header cannot
// ask for gigabytes.
const maxDataBytes = 1 << 30

// File is a decoded 16-bit PCM WAV file.
type File struct {
	SampleRate int
	Channels   int
	Samples    []int16 // interleaved
}

// Decode reads a 16-bit PCM WAV stream.
//
// Unknown chunks are skipped. Compressed or non-16-bit files fail with
// an error wrapping [ErrUnsupported].
func Decode(r io.Reader) (*File, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("wav: read header: %w", ErrFormat)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return nil, ErrFormat
	}

	f := &File{}
	haveFmt := false
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(ch[0:4])
		size := int64(binary.LittleEndian.Uint32(ch[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short (%d bytes)", size)
			}
			buf := make([]byte, 16)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			if err := discard(r, size-16+size%2); err != nil {
				return nil, err
			}
			codec := binary.LittleEndian.Uint16(buf[0:2])
			if codec != 1 {
				return nil, fmt.Errorf("%w: format code %d, want 1 (PCM)", ErrUnsupported, codec)
			}
			f.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			if bits := binary.LittleEndian.Uint16(buf[14:16]); bits != 16 {
				return nil, fmt.Errorf("%w: %d-bit samples, want 16", ErrUnsupported, bits)
			}
			if f.Channels < 1 || f.SampleRate < 1 {
				return nil, fmt.Errorf("wav: invalid fmt chunk: %d channels at %d Hz", f.Channels, f.SampleRate)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, errors.New("wav: data chunk before fmt chunk")
			}
			if size > maxDataBytes {
				return nil, fmt.Errorf("wav: data chunk too large (%d bytes)", size)
			}
			if size%2 != 0 {
				return nil, fmt.Errorf("wav: data chunk not 16-bit aligned (%d bytes)", size)
			}
			data := make([]byte, size)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, fmt.Errorf("wav: read data chunk: %w", err)
			}
			f.Samples = make([]int16, len(data)/2)
			for i := range f.Samples {
				f.Samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
			}
			return f, nil

		default:
			if err := discard(r, size+size%2); err != nil {
				return nil, err
			}
		}
	}
	return nil, errors.New("wav: no data chunk")
}

// discard skips n bytes of chunk payload and padding.
func discard(r io.Reader, n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, r, n); err != nil && err != io.EOF {
		return fmt.Errorf("wav: skip chunk: %w", err)
	}
	return nil
}

// Duration returns the play time of the decoded audio.
func (f *File) Duration() time.Duration {
	frames := len(f.Samples) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Mono downmixes the samples to one channel of float PCM normalized to
// the -1.0..1.0 range.
func (f *File) Mono() []float32 {
	frames := len(f.Samples) / f.Channels
	out := make([]float32, frames)
	for i := range out {
		var sum float64
		for c := range f.Channels {
			sum += float64(f.Samples[i*f.Channels+c])
		}
		out[i] = float32(sum / float64(f.Channels) / 32768.0)
	}
	return out
}

// Encode writes mono 16-bit PCM samples as a canonical WAV file.
func Encode(w io.Writer, sampleRate int, samples []int16) error {
	if sampleRate < 1 {
		return fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}
	dataBytes := 2 * len(samples)

	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(36+dataBytes))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(hdr[32:34], 2)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataBytes))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	buf := make([]byte, dataBytes)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	return nil
}

// Int16 converts normalized float PCM back to 16-bit samples, clipping
// to the valid range. It is the inverse of the scaling [File.Mono]
// applies.
func Int16(pcm []float32) []int16 {
	out := make([]int16, len(pcm))
	for i, v := range pcm {
		s := math.Round(float64(v) * 32768)
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		out[i] = int16(s)
	}
	return out
}

// To16kMono converts the file to 16 kHz mono float PCM.
//
// Files already at 16 kHz skip the resampler entirely. The resampler
// keeps its filter tail, so a few trailing milliseconds may be dropped.
func To16kMono(f *File) ([]float32, error) {
	const targetRate = 16000
	mono := f.Mono()
	if f.SampleRate == targetRate {
		return mono, nil
	}

	rs, err := newResampler(f.SampleRate, targetRate)
	if err != nil {
		return nil, fmt.Errorf("wav: create resampler: %w", err)
	}
	input := make([]float64, len(mono))
	for i, s := range mono {
		input[i] = float64(s)
	}
	output, err := rs.Process(input)
	if err != nil {
		return nil, fmt.Errorf("wav: resample %d Hz to %d Hz: %w", f.SampleRate, targetRate, err)
	}
	out := make([]float32, len(output))
	for i, s := range output {
		out[i] = float32(s)
	}
	return out, nil
}
