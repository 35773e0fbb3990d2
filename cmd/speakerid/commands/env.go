package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/archive"
	"github.com/haivivi/speakerid/pkg/cli"
	"github.com/haivivi/speakerid/pkg/profile"
	"github.com/haivivi/speakerid/pkg/speaker"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

// Engine override flags. Each takes precedence over the resolved
// context when set.
var (
	flagStoreDir  string
	flagMemory    bool
	flagSimulate  bool
	flagRemote    string
	flagThreshold float64
)

// addStoreFlags registers store selection flags.
func addStoreFlags(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.Flags().StringVar(&flagStoreDir, "store-dir", "", "profile database directory (overrides context)")
		cmd.Flags().BoolVar(&flagMemory, "memory", false, "use an in-memory profile store (nothing is persisted)")
	}
}

// addExtractorFlags registers embedding backend flags.
func addExtractorFlags(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.Flags().BoolVar(&flagSimulate, "simulate", false, "use the deterministic offline extractor")
		cmd.Flags().StringVar(&flagRemote, "remote", "", "embedding service URL (overrides context)")
	}
}

// addEngineFlags registers the full override set on commands that run
// the whole pipeline.
func addEngineFlags(cmds ...*cobra.Command) {
	addStoreFlags(cmds...)
	addExtractorFlags(cmds...)
	for _, cmd := range cmds {
		cmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "identification similarity threshold (overrides context)")
	}
}

// env bundles everything a command needs to drive the engine: the
// resolved context, the engine itself, and the optional sample archive.
type env struct {
	ctx    *cli.Context
	engine *speaker.Engine
	arch   *archive.Archive
}

// newEnv builds an engine from the resolved context plus any override
// flags. The caller owns the env and must close it.
func newEnv() (*env, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	arch, err := newArchive(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	threshold := ctx.Threshold
	if flagThreshold != 0 {
		threshold = float32(flagThreshold)
	}
	cfg := speaker.Config{
		Store:             store,
		Extractor:         newExtractor(ctx),
		Threshold:         threshold,
		VarianceThreshold: ctx.VarianceThreshold,
		Logger:            newLogger(),
	}
	if arch != nil {
		cfg.Archive = arch
	}

	eng, err := speaker.New(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &env{ctx: ctx, engine: eng, arch: arch}, nil
}

// close releases the engine and its store.
func (e *env) close() {
	if err := e.engine.Close(); err != nil {
		cli.PrintWarning("close engine: %v", err)
	}
}

// openStore opens the profile store for the context: in-memory when
// --memory is set, otherwise BadgerDB in the configured directory.
func openStore(ctx *cli.Context) (profile.Store, error) {
	if flagMemory {
		return profile.NewMemory(), nil
	}
	dir := flagStoreDir
	if dir == "" {
		dir = ctx.StoreDir
	}
	if dir == "" {
		var err error
		dir, err = cli.DataDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return profile.NewBadger(profile.BadgerOptions{Dir: dir})
}

// newExtractor picks the embedding backend for the context. With
// nothing configured it returns the unavailable extractor, so commands
// that never extract (profile management) still work.
func newExtractor(ctx *cli.Context) voiceprint.Extractor {
	dim := ctx.Extractor.Dimension
	if dim <= 0 {
		dim = voiceprint.DefaultDimension
	}

	if flagSimulate || (ctx.Extractor.Simulate && flagRemote == "") {
		return voiceprint.NewStatic(dim)
	}

	url := flagRemote
	if url == "" {
		url = ctx.Extractor.URL
	}
	if url == "" {
		return voiceprint.Unavailable{Dim: dim}
	}

	opts := []voiceprint.RemoteOption{voiceprint.WithDimension(dim)}
	if ctx.Extractor.APIKey != "" {
		opts = append(opts, voiceprint.WithHeader("Authorization", "Bearer "+ctx.Extractor.APIKey))
	}
	return voiceprint.NewRemote(url, opts...)
}

// newArchive builds the sample archive for the context, or nil when
// archival is off.
func newArchive(ctx *cli.Context) (*archive.Archive, error) {
	ac := ctx.Archive
	switch {
	case ac.S3Bucket != "":
		return archive.New(archive.NewS3(newS3Client(ac), ac.S3Bucket), ac.Prefix), nil
	case ac.Dir != "":
		backend, err := archive.NewDir(ac.Dir)
		if err != nil {
			return nil, err
		}
		return archive.New(backend, ac.Prefix), nil
	default:
		return nil, nil
	}
}

// newS3Client builds an S3 client from context settings. Static
// credentials when configured, anonymous otherwise; a custom endpoint
// covers S3-compatible stores like MinIO.
func newS3Client(ac cli.ArchiveConfig) *s3.Client {
	opts := s3.Options{
		Region:       ac.S3Region,
		UsePathStyle: ac.S3PathStyle,
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if ac.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(ac.S3Endpoint)
	}
	if ac.S3AccessKey != "" {
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     ac.S3AccessKey,
				SecretAccessKey: ac.S3SecretKey,
			}, nil
		})
	} else {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	return s3.New(opts)
}
