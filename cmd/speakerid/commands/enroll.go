package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/cli"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name> <wav>...",
	Short: "Enroll a speaker from WAV voice samples",
	Long: `Enroll a speaker from three or more WAV voice samples.

Each file must be 16-bit PCM WAV; anything not already 16 kHz mono is
converted before embedding. All samples must be the same person
speaking, since they are averaged into a single voice print. Samples
that disagree too much with each other are rejected as inconsistent.

Examples:
  speakerid enroll alice a1.wav a2.wav a3.wav
  speakerid enroll --simulate alice a1.wav a2.wav a3.wav`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, paths := args[0], args[1:]

		samples := make([][]float32, 0, len(paths))
		var total time.Duration
		for _, path := range paths {
			pcm, d, err := loadWAV(path)
			if err != nil {
				return err
			}
			samples = append(samples, pcm)
			total += d
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		id, err := ev.engine.Enroll(cmd.Context(), name, samples)
		if err != nil {
			return err
		}

		cli.PrintSuccess("Enrolled %q with id %d (%d samples, %s of audio)",
			name, id, len(samples), cli.FormatDuration(total))
		return nil
	},
}

func init() {
	addEngineFlags(enrollCmd)
}
