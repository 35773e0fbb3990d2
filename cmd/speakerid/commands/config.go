package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Contexts allow you to manage multiple engine setups, similar to
kubectl's context management: a local sandbox with the simulated
extractor, a staging deployment with a remote embedding service and an
S3 sample archive, and so on.`,
}

// setCtxFlags holds the set-context flag values; only flags the user
// actually passed are applied to the context.
var setCtxFlags struct {
	storeDir    string
	url         string
	apiKey      string
	dimension   int
	simulate    bool
	threshold   float64
	variance    float64
	archiveDir  string
	s3Bucket    string
	s3Region    string
	s3Endpoint  string
	s3AccessKey string
	s3SecretKey string
	s3PathStyle bool
	prefix      string
}

var configSetContextCmd = &cobra.Command{
	Use:   "set-context <name>",
	Short: "Create or update a context",
	Long: `Create a context, or update one flag at a time.

Only the flags you pass are applied, so updating a single setting
leaves the rest of the context untouched.

Examples:
  # Local sandbox with the simulated extractor
  speakerid config set-context dev --simulate

  # Staging with a remote embedding service and S3 archive
  speakerid config set-context staging \
    --extractor-url wss://embed.example.com/v1 --api-key sk-... \
    --s3-bucket voice-samples --s3-region us-east-1 \
    --s3-access-key AK... --s3-secret-key SK...

  # Tighten the match threshold on an existing context
  speakerid config set-context staging --threshold 0.8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, err := getConfig()
		if err != nil {
			return err
		}

		ctx, _ := cfg.GetContext(name)
		created := ctx == nil
		if created {
			ctx = &cli.Context{}
		}

		fs := cmd.Flags()
		if fs.Changed("store-dir") {
			ctx.StoreDir = setCtxFlags.storeDir
		}
		if fs.Changed("extractor-url") {
			ctx.Extractor.URL = setCtxFlags.url
		}
		if fs.Changed("api-key") {
			ctx.Extractor.APIKey = setCtxFlags.apiKey
		}
		if fs.Changed("dimension") {
			ctx.Extractor.Dimension = setCtxFlags.dimension
		}
		if fs.Changed("simulate") {
			ctx.Extractor.Simulate = setCtxFlags.simulate
		}
		if fs.Changed("threshold") {
			ctx.Threshold = float32(setCtxFlags.threshold)
		}
		if fs.Changed("variance-threshold") {
			ctx.VarianceThreshold = setCtxFlags.variance
		}
		if fs.Changed("archive-dir") {
			ctx.Archive.Dir = setCtxFlags.archiveDir
		}
		if fs.Changed("s3-bucket") {
			ctx.Archive.S3Bucket = setCtxFlags.s3Bucket
		}
		if fs.Changed("s3-region") {
			ctx.Archive.S3Region = setCtxFlags.s3Region
		}
		if fs.Changed("s3-endpoint") {
			ctx.Archive.S3Endpoint = setCtxFlags.s3Endpoint
		}
		if fs.Changed("s3-access-key") {
			ctx.Archive.S3AccessKey = setCtxFlags.s3AccessKey
		}
		if fs.Changed("s3-secret-key") {
			ctx.Archive.S3SecretKey = setCtxFlags.s3SecretKey
		}
		if fs.Changed("s3-path-style") {
			ctx.Archive.S3PathStyle = setCtxFlags.s3PathStyle
		}
		if fs.Changed("archive-prefix") {
			ctx.Archive.Prefix = setCtxFlags.prefix
		}

		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}
		if created {
			cli.PrintSuccess("Context %q created", name)
		} else {
			cli.PrintSuccess("Context %q updated", name)
		}
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tSTORE\tEXTRACTOR\tARCHIVE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				current, name, describeStore(ctx), describeExtractor(ctx), describeArchive(ctx))
		}
		w.Flush()
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)
		fmt.Printf("Contexts: %d\n", len(cfg.Contexts))

		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			fmt.Printf("\n  %s:\n", name)
			if ctx.StoreDir != "" {
				fmt.Printf("    Store dir: %s\n", ctx.StoreDir)
			}
			fmt.Printf("    Extractor: %s\n", describeExtractor(ctx))
			if ctx.Extractor.APIKey != "" {
				fmt.Printf("      API Key: %s\n", cli.MaskAPIKey(ctx.Extractor.APIKey))
			}
			if ctx.Extractor.Dimension > 0 {
				fmt.Printf("      Dimension: %d\n", ctx.Extractor.Dimension)
			}
			if ctx.Threshold > 0 {
				fmt.Printf("    Threshold: %.2f\n", ctx.Threshold)
			}
			if ctx.VarianceThreshold > 0 {
				fmt.Printf("    Variance threshold: %.2f\n", ctx.VarianceThreshold)
			}
			if ctx.Archive.Enabled() {
				fmt.Printf("    Archive: %s\n", describeArchive(ctx))
				if ctx.Archive.S3AccessKey != "" {
					fmt.Printf("      Access Key: %s\n", cli.MaskAPIKey(ctx.Archive.S3AccessKey))
					fmt.Printf("      Secret Key: %s\n", cli.MaskAPIKey(ctx.Archive.S3SecretKey))
				}
			}
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.Path())
		return nil
	},
}

func describeStore(ctx *cli.Context) string {
	if ctx.StoreDir == "" {
		return "(default)"
	}
	return ctx.StoreDir
}

func describeExtractor(ctx *cli.Context) string {
	switch {
	case ctx.Extractor.Simulate:
		return "simulate"
	case ctx.Extractor.URL != "":
		return ctx.Extractor.URL
	default:
		return "-"
	}
}

func describeArchive(ctx *cli.Context) string {
	switch {
	case ctx.Archive.S3Bucket != "":
		return "s3://" + ctx.Archive.S3Bucket
	case ctx.Archive.Dir != "":
		return ctx.Archive.Dir
	default:
		return "-"
	}
}

func init() {
	fs := configSetContextCmd.Flags()
	fs.StringVar(&setCtxFlags.storeDir, "store-dir", "", "profile database directory")
	fs.StringVar(&setCtxFlags.url, "extractor-url", "", "embedding service URL (ws:// or wss://)")
	fs.StringVar(&setCtxFlags.apiKey, "api-key", "", "bearer token for the embedding service")
	fs.IntVar(&setCtxFlags.dimension, "dimension", 0, "embedding dimension (0 for the model default)")
	fs.BoolVar(&setCtxFlags.simulate, "simulate", false, "use the deterministic offline extractor")
	fs.Float64Var(&setCtxFlags.threshold, "threshold", 0, "identification similarity threshold")
	fs.Float64Var(&setCtxFlags.variance, "variance-threshold", 0, "enrollment sample consistency gate")
	fs.StringVar(&setCtxFlags.archiveDir, "archive-dir", "", "local directory for archived samples")
	fs.StringVar(&setCtxFlags.s3Bucket, "s3-bucket", "", "S3 bucket for archived samples")
	fs.StringVar(&setCtxFlags.s3Region, "s3-region", "", "S3 region")
	fs.StringVar(&setCtxFlags.s3Endpoint, "s3-endpoint", "", "S3 endpoint URL for S3-compatible stores")
	fs.StringVar(&setCtxFlags.s3AccessKey, "s3-access-key", "", "S3 access key")
	fs.StringVar(&setCtxFlags.s3SecretKey, "s3-secret-key", "", "S3 secret key")
	fs.BoolVar(&setCtxFlags.s3PathStyle, "s3-path-style", false, "use path-style S3 addressing")
	fs.StringVar(&setCtxFlags.prefix, "archive-prefix", "", "key prefix for archived objects")

	configCmd.AddCommand(configSetContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
}
