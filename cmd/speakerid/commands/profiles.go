package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/audio/wav"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/profile"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"profile"},
	Short:   "Manage enrolled speaker profiles",
	Long: `Manage enrolled speaker profiles.

Deactivated profiles are hidden from listing and identification but
stay in the store for audit; 'profiles show' reaches them by id.`,
}

// profileView is the machine-readable rendering of a profile. The raw
// voice print stays out of it.
type profileView struct {
	ID               int64      `json:"id" yaml:"id"`
	Name             string     `json:"name" yaml:"name"`
	Active           bool       `json:"active" yaml:"active"`
	EnrollmentDate   time.Time  `json:"enrollment_date" yaml:"enrollment_date"`
	LastRecognized   *time.Time `json:"last_recognized,omitempty" yaml:"last_recognized,omitempty"`
	RecognitionCount int64      `json:"recognition_count" yaml:"recognition_count"`
}

func newProfileView(p *profile.Profile) profileView {
	return profileView{
		ID:               p.ID,
		Name:             p.Name,
		Active:           p.IsActive,
		EnrollmentDate:   p.EnrollmentDate,
		LastRecognized:   p.LastRecognized,
		RecognitionCount: p.RecognitionCount,
	}
}

var profilesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List active profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("output")
		if err != nil {
			return fmt.Errorf("failed to read 'output' flag: %w", err)
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		profiles, err := ev.engine.ListProfiles(cmd.Context())
		if err != nil {
			return err
		}

		if format != "" {
			views := make([]profileView, len(profiles))
			for i, p := range profiles {
				views[i] = newProfileView(p)
			}
			return cli.Output(views, cli.OutputOptions{Format: cli.OutputFormat(format)})
		}

		if len(profiles) == 0 {
			cli.PrintInfo("No profiles enrolled")
			return nil
		}

		rows := make([][]string, len(profiles))
		for i, p := range profiles {
			rows[i] = []string{
				fmt.Sprintf("%d", p.ID),
				p.Name,
				p.EnrollmentDate.Local().Format("2006-01-02"),
				fmt.Sprintf("%d", p.RecognitionCount),
				cli.FormatAgo(p.LastRecognized),
			}
		}
		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Print(styles.Table(
			[]string{"ID", "NAME", "ENROLLED", "RECOGNITIONS", "LAST SEEN"},
			rows,
		))
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one profile, active or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		format, err := cmd.Flags().GetString("output")
		if err != nil {
			return fmt.Errorf("failed to read 'output' flag: %w", err)
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		p, err := ev.engine.GetProfile(cmd.Context(), id)
		if err != nil {
			return err
		}

		if format != "" {
			return cli.Output(newProfileView(p), cli.OutputOptions{Format: cli.OutputFormat(format)})
		}

		active := "yes"
		if !p.IsActive {
			active = "no (deactivated)"
		}
		pairs := [][2]string{
			{"ID", fmt.Sprintf("%d", p.ID)},
			{"Name", p.Name},
			{"Active", active},
			{"Enrolled", p.EnrollmentDate.Local().Format("2006-01-02 15:04")},
			{"Recognitions", fmt.Sprintf("%d", p.RecognitionCount)},
			{"Last seen", cli.FormatAgo(p.LastRecognized)},
			{"Voice print", fmt.Sprintf("%d floats", len(p.VoicePrint)/4)},
		}
		if ev.arch != nil {
			keys, err := ev.arch.ListSamples(cmd.Context(), id)
			if err != nil {
				cli.PrintWarning("list archived samples: %v", err)
			} else {
				pairs = append(pairs, [2]string{"Archived samples", fmt.Sprintf("%d", len(keys))})
			}
		}
		styles := cli.NewStyles(cli.DefaultTheme)
		fmt.Print(styles.KV(pairs))
		return nil
	},
}

var profilesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <id>",
	Short: "Deactivate a profile (kept for audit, name freed)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		if err := ev.engine.Deactivate(cmd.Context(), id); err != nil {
			return err
		}
		cli.PrintSuccess("Profile %d deactivated; its name is free to enroll again", id)
		return nil
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Permanently delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		if err := ev.engine.Delete(cmd.Context(), id); err != nil {
			return err
		}
		cli.PrintSuccess("Profile %d deleted", id)
		return nil
	},
}

var profilesExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export archived enrollment samples as WAV files",
	Long: `Export a profile's archived enrollment samples as WAV files.

Requires a sample archive configured for the context. Each archived
sample becomes one 16 kHz mono WAV file in the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		outDir, err := cmd.Flags().GetString("out")
		if err != nil {
			return fmt.Errorf("failed to read 'out' flag: %w", err)
		}

		ev, err := newEnv()
		if err != nil {
			return err
		}
		defer ev.close()

		if ev.arch == nil {
			return errors.New("no sample archive configured for this context")
		}

		keys, err := ev.arch.ListSamples(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			cli.PrintInfo("No archived samples for profile %d", id)
			return nil
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		for i, key := range keys {
			pcm, err := ev.arch.ReadSample(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("read %s: %w", key, err)
			}
			path := filepath.Join(outDir, fmt.Sprintf("profile%d_sample%02d.wav", id, i+1))
			if err := writeWAV(path, pcm); err != nil {
				return err
			}
		}
		cli.PrintSuccess("Exported %d samples to %s", len(keys), outDir)
		return nil
	},
}

// writeWAV writes 16 kHz mono float PCM to a WAV file.
func writeWAV(path string, pcm []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := wav.Encode(f, voiceprint.SampleRate, wav.Int16(pcm)); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func init() {
	profilesListCmd.Flags().StringP("output", "o", "", "output format: yaml or json")
	profilesShowCmd.Flags().StringP("output", "o", "", "output format: yaml or json")
	profilesExportCmd.Flags().String("out", "samples", "output directory for exported WAV files")

	addStoreFlags(
		profilesListCmd,
		profilesShowCmd,
		profilesDeactivateCmd,
		profilesDeleteCmd,
		profilesExportCmd,
	)

	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesDeactivateCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
	profilesCmd.AddCommand(profilesExportCmd)
}
