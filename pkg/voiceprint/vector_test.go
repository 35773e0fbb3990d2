package voiceprint

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		v := []float32{0.6, 0.8, 0}
		if sim := CosineSimilarity(v, v); math.Abs(float64(sim)-1) > 1e-6 {
			t.Errorf("cos(v, v) = %v, want 1", sim)
		}
	})

	t.Run("orthogonal", func(t *testing.T) {
		a := []float32{1, 0, 0}
		b := []float32{0, 1, 0}
		if sim := CosineSimilarity(a, b); sim != 0 {
			t.Errorf("cos(e1, e2) = %v, want 0", sim)
		}
	})

	t.Run("opposite", func(t *testing.T) {
		a := []float32{0.5, -0.5, 0.25}
		b := []float32{-0.5, 0.5, -0.25}
		if sim := CosineSimilarity(a, b); math.Abs(float64(sim)+1) > 1e-6 {
			t.Errorf("cos(v, -v) = %v, want -1", sim)
		}
	})

	t.Run("magnitude independent", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{10, 20, 30}
		if sim := CosineSimilarity(a, b); math.Abs(float64(sim)-1) > 1e-6 {
			t.Errorf("cos(v, 10v) = %v, want 1", sim)
		}
	})

	t.Run("zero vector", func(t *testing.T) {
		zero := []float32{0, 0, 0}
		v := []float32{1, 2, 3}
		if sim := CosineSimilarity(zero, v); sim != 0 {
			t.Errorf("cos(0, v) = %v, want 0", sim)
		}
		if sim := CosineSimilarity(zero, zero); sim != 0 || math.IsNaN(float64(sim)) {
			t.Errorf("cos(0, 0) = %v, want 0", sim)
		}
	})

	t.Run("length mismatch panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic on length mismatch")
			}
		}()
		CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	})
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	norm := math.Hypot(float64(v[0]), float64(v[1]))
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm after Normalize = %v, want 1", norm)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("normalized = %v, want [0.6 0.8]", v)
	}

	zero := []float32{0, 0, 0}
	Normalize(zero)
	for i, x := range zero {
		if x != 0 {
			t.Errorf("zero vector changed at %d: %v", i, x)
		}
	}
}

func TestMean(t *testing.T) {
	samples := [][]float32{
		{1, 0, 3},
		{3, 2, 3},
		{2, 4, 3},
	}
	mean := Mean(samples)
	want := []float32{2, 2, 3}
	for i := range want {
		if math.Abs(float64(mean[i]-want[i])) > 1e-6 {
			t.Errorf("mean[%d] = %v, want %v", i, mean[i], want[i])
		}
	}
}

func TestMeanOfNormalizedStaysBounded(t *testing.T) {
	// Averaging unit vectors then re-normalizing is the enrollment path;
	// the average of unit vectors must itself have norm <= 1.
	rng := rand.New(rand.NewPCG(7, 7))
	samples := make([][]float32, 5)
	for i := range samples {
		v := make([]float32, 64)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		Normalize(v)
		samples[i] = v
	}
	mean := Mean(samples)
	var sum float64
	for _, x := range mean {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); norm > 1+1e-6 {
		t.Errorf("mean of unit vectors has norm %v > 1", norm)
	}
	Normalize(mean)
	sum = 0
	for _, x := range mean {
		sum += float64(x) * float64(x)
	}
	if norm := math.Sqrt(sum); math.Abs(norm-1) > 1e-6 {
		t.Errorf("normalized mean has norm %v, want 1", norm)
	}
}

func TestSampleVariance(t *testing.T) {
	t.Run("identical samples", func(t *testing.T) {
		s := []float32{0.1, 0.2, 0.3}
		samples := [][]float32{s, s, s}
		if v := SampleVariance(samples, Mean(samples)); v != 0 {
			t.Errorf("variance of identical samples = %v, want 0", v)
		}
	})

	t.Run("known spread", func(t *testing.T) {
		// Mean is (0.5, 0.5); each sample sits at squared distance 0.5,
		// so the RMS distance is sqrt(0.5).
		samples := [][]float32{
			{1, 0},
			{0, 1},
		}
		v := SampleVariance(samples, Mean(samples))
		if want := math.Sqrt(0.5); math.Abs(v-want) > 1e-6 {
			t.Errorf("variance = %v, want %v", v, want)
		}
	})

	t.Run("small perturbation stays small", func(t *testing.T) {
		base := make([]float32, 192)
		for i := range base {
			base[i] = float32(i) * 0.01
		}
		Normalize(base)
		samples := make([][]float32, 3)
		for i := range samples {
			s := make([]float32, len(base))
			copy(s, base)
			s[i] += 0.001
			samples[i] = s
		}
		if v := SampleVariance(samples, Mean(samples)); v > 0.01 {
			t.Errorf("variance of tight cluster = %v, want < 0.01", v)
		}
	})
}

func BenchmarkCosineSimilarity(b *testing.B) {
	rng := rand.New(rand.NewPCG(42, 42))
	a := make([]float32, DefaultDimension)
	c := make([]float32, DefaultDimension)
	for i := range a {
		a[i] = float32(rng.NormFloat64())
		c[i] = float32(rng.NormFloat64())
	}
	Normalize(a)
	Normalize(c)

	b.ResetTimer()
	for range b.N {
		CosineSimilarity(a, c)
	}
}
