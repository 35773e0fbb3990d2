package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/haivivi/speakerid/pkg/audio/wav"
)

// parseID parses a profile id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid profile id %q", arg)
	}
	return id, nil
}

// loadWAV decodes a WAV file and converts it to the 16 kHz mono float
// PCM the engine expects. It also returns the clip's play time.
func loadWAV(path string) ([]float32, time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	wf, err := wav.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	pcm, err := wav.To16kMono(wf)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}
	return pcm, wf.Duration(), nil
}
