package voiceprint

import "math"

// CosineSimilarity returns the cosine of the angle between a and b,
// accumulating in float64 for stability. The result lies in [-1, 1]
// for non-zero inputs; if either vector has zero norm the result is 0,
// never NaN, so threshold comparisons stay well-defined.
//
// The vectors must have equal length. A mismatch is a caller bug and
// panics.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		panic("voiceprint: vector length mismatch")
	}
	var dot, na, nb float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// Normalize scales v to unit L2 length in place. A zero vector is left
// unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		scale := float32(1.0 / norm)
		for i := range v {
			v[i] *= scale
		}
	}
}

// Mean returns the component-wise mean of the samples. All samples
// must share one non-zero length; violating that is a caller bug and
// panics.
func Mean(samples [][]float32) []float32 {
	if len(samples) == 0 {
		panic("voiceprint: mean of zero samples")
	}
	dim := len(samples[0])
	sum := make([]float64, dim)
	for _, s := range samples {
		if len(s) != dim {
			panic("voiceprint: vector length mismatch")
		}
		for i, v := range s {
			sum[i] += float64(v)
		}
	}
	mean := make([]float32, dim)
	n := float64(len(samples))
	for i, v := range sum {
		mean[i] = float32(v / n)
	}
	return mean
}

// SampleVariance measures how much the samples spread around their
// mean: the root mean square of each sample's Euclidean distance to
// mean. Low values indicate consistent samples; enrollment uses this
// as its quality gate.
func SampleVariance(samples [][]float32, mean []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total float64
	for _, s := range samples {
		if len(s) != len(mean) {
			panic("voiceprint: vector length mismatch")
		}
		var d2 float64
		for i, v := range s {
			d := float64(v) - float64(mean[i])
			d2 += d * d
		}
		total += d2
	}
	return math.Sqrt(total / float64(len(samples)))
}
