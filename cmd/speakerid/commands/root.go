package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/cli"
)

var (
	cfgFile     string
	contextName string
	verbose     bool

	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "speakerid",
	Short: "Speaker enrollment and identification",
	Long: `speakerid enrolls speakers from short voice samples and identifies
who is talking in new clips.

Enrollment averages several samples of the same person into one voice
print; identification compares a clip against every enrolled print by
cosine similarity and reports the closest match above the threshold.

Configuration is stored under the OS user config directory and supports
multiple contexts, allowing you to switch between engine setups
(profile store location, embedding service, sample archive).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command returns the root cobra command for mounting into a parent CLI.
func Command() *cobra.Command {
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/speakerid/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default is current context)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}

// configErr stores the config load error for deferred reporting.
var configErr error

func initConfig() {
	globalConfig, configErr = cli.LoadConfigWithPath(cfgFile)
}

// getConfig returns the loaded config, surfacing any load error from
// initConfig at first use.
func getConfig() (*cli.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	if configErr != nil {
		return nil, fmt.Errorf("speakerid config: %w", configErr)
	}
	// Lazy init when cobra did not run OnInitialize, e.g. when the
	// command tree is mounted into a parent CLI.
	var err error
	globalConfig, err = cli.LoadConfigWithPath(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("speakerid config: %w", err)
	}
	return globalConfig, nil
}

// getContext returns the context to use, resolving from flag or current context.
func getContext() (*cli.Context, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return cfg.ResolveContext(contextName)
}

// newLogger builds the engine logger. Warnings and errors only unless
// --verbose asks for the full debug stream.
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
