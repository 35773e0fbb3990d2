package voiceprint

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestStaticDeterministic(t *testing.T) {
	s := NewStatic(192)
	audio := sine(440, 8000)

	emb1, err := s.Extract(context.Background(), audio)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	emb2, err := s.Extract(context.Background(), audio)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if len(emb1) != 192 {
		t.Fatalf("embedding length = %d, want 192", len(emb1))
	}
	for i := range emb1 {
		if emb1[i] != emb2[i] {
			t.Fatalf("same audio produced different embeddings at %d: %v vs %v", i, emb1[i], emb2[i])
		}
	}

	var sum float64
	for _, x := range emb1 {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-6 {
		t.Errorf("embedding norm = %v, want 1", norm)
	}
}

func TestStaticDistinctAudio(t *testing.T) {
	s := NewStatic(192)

	emb1, err := s.Extract(context.Background(), sine(440, 8000))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	emb2, err := s.Extract(context.Background(), sine(880, 8000))
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	// Independent random unit vectors in 192 dims are close to orthogonal.
	if sim := CosineSimilarity(emb1, emb2); math.Abs(float64(sim)) > 0.5 {
		t.Errorf("unrelated audio gave similarity %v, want near 0", sim)
	}
}

func TestStaticPut(t *testing.T) {
	s := NewStatic(4)
	audio := sine(440, 1000)
	pinned := []float32{1, 0, 0, 0}
	s.Put(audio, pinned)

	got, err := s.Extract(context.Background(), audio)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	for i := range pinned {
		if got[i] != pinned[i] {
			t.Fatalf("pinned embedding not returned: got %v", got)
		}
	}

	// The returned slice is a copy; mutating it must not leak back.
	got[0] = -1
	again, err := s.Extract(context.Background(), audio)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if again[0] != 1 {
		t.Errorf("mutation leaked into pinned embedding: %v", again)
	}
}

func TestStaticPutDimensionMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on wrong pinned dimension")
		}
	}()
	NewStatic(4).Put(sine(440, 100), []float32{1, 2, 3})
}

func TestStaticEmptyAudio(t *testing.T) {
	s := NewStatic(192)
	if _, err := s.Extract(context.Background(), nil); !errors.Is(err, ErrEmptyAudio) {
		t.Errorf("error = %v, want ErrEmptyAudio", err)
	}
}

func TestStaticCancelledContext(t *testing.T) {
	s := NewStatic(192)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Extract(ctx, sine(440, 1000)); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestUnavailable(t *testing.T) {
	u := Unavailable{}
	if _, err := u.Extract(context.Background(), sine(440, 1000)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
	if d := u.Dimension(); d != DefaultDimension {
		t.Errorf("Dimension() = %d, want %d", d, DefaultDimension)
	}
	if d := (Unavailable{Dim: 512}).Dimension(); d != 512 {
		t.Errorf("Dimension() = %d, want 512", d)
	}
}

// sine generates float32 PCM of a sine wave at 16kHz.
func sine(freq float64, n int) []float32 {
	pcm := make([]float32, n)
	for i := range pcm {
		pcm[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(SampleRate)))
	}
	return pcm
}
