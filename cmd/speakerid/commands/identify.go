package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/cli"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <wav>",
	Short: "Identify the speaker in a WAV clip",
	Long: `Identify who is speaking in a WAV clip.

The clip is embedded and compared against every active profile. The
closest profile wins if its similarity reaches the threshold; below
the threshold the speaker is reported as unknown.

Examples:
  speakerid identify clip.wav
  speakerid identify --threshold 0.8 clip.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pcm, d, err := loadWAV(args[0])
		if err != nil {
			return err
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		p, err := ev.engine.Identify(cmd.Context(), pcm)
		if err != nil {
			return err
		}
		if p == nil {
			cli.PrintInfo("No match for %s of audio", cli.FormatDuration(d))
			return nil
		}

		cli.PrintSuccess("Matched %q", p.Name)
		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Print(styles.KV([][2]string{
			{"ID", fmt.Sprintf("%d", p.ID)},
			{"Name", p.Name},
			{"Enrolled", p.EnrollmentDate.Local().Format("2006-01-02")},
			{"Recognitions", fmt.Sprintf("%d", p.RecognitionCount)},
			{"Last seen", cli.FormatAgo(p.LastRecognized)},
		}))
		return nil
	},
}

func init() {
	addEngineFlags(identifyCmd)
}
