package wav

import (
	resampling "github.com/tphakala/go-audio-resampling"
)

// newResampler builds a mono high-quality sample rate converter.
func newResampler(inRate, outRate int) (resampling.Resampler, error) {
	return resampling.New(&resampling.Config{
		InputRate:  float64(inRate),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
}
