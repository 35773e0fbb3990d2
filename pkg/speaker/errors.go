package speaker

import (
	"errors"
	"fmt"
)

// ErrAudioProcessing wraps every embedding-extraction failure surfaced by
// [Engine.Enroll] or [Engine.Identify]. Test with [errors.Is]; the
// extractor's own error stays in the chain.
var ErrAudioProcessing = errors.New("speaker: audio processing failed")

// InsufficientSamplesError reports an enrollment attempt with fewer audio
// samples than the configured minimum.
type InsufficientSamplesError struct {
	Got int
	Min int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("speaker: insufficient samples: got %d, need at least %d", e.Got, e.Min)
}

// InconsistentSamplesError reports an enrollment rejected by the quality
// gate: the samples disagree with each other more than the configured
// variance threshold allows. Both values are carried so the caller can
// tell the user how far off the recording was.
type InconsistentSamplesError struct {
	Variance  float64
	Threshold float64
}

func (e *InconsistentSamplesError) Error() string {
	return fmt.Sprintf("speaker: inconsistent samples: variance %.4f exceeds threshold %.4f", e.Variance, e.Threshold)
}
