package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config is the on-disk configuration for the speakerid CLI.
//
// A config holds named contexts, each describing one engine setup
// (profile store location, embedding extractor, thresholds, archive).
// One context may be marked current; commands use it unless told
// otherwise.
type Config struct {
	// CurrentContext is the name of the currently active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context name to its configuration.
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	// configPath is the file this config was loaded from.
	configPath string
}

// Context describes one engine setup.
type Context struct {
	// Name is the context name.
	Name string `yaml:"name"`

	// StoreDir is the profile database directory. Empty means the
	// default data directory.
	StoreDir string `yaml:"store_dir,omitempty"`

	// Extractor selects and configures the embedding backend.
	Extractor ExtractorConfig `yaml:"extractor,omitempty"`

	// Threshold overrides the identification similarity threshold.
	Threshold float32 `yaml:"threshold,omitempty"`

	// VarianceThreshold overrides the enrollment quality gate.
	VarianceThreshold float64 `yaml:"variance_threshold,omitempty"`

	// Archive configures raw-sample archival; zero value disables it.
	Archive ArchiveConfig `yaml:"archive,omitempty"`
}

// ExtractorConfig configures the embedding extractor for a context.
type ExtractorConfig struct {
	// URL of the embedding inference service (ws:// or wss://).
	URL string `yaml:"url,omitempty"`

	// APIKey is sent as a bearer token to the service.
	APIKey string `yaml:"api_key,omitempty"`

	// Dimension is the embedding size; zero means the model default.
	Dimension int `yaml:"dimension,omitempty"`

	// Simulate uses the deterministic offline extractor instead of a
	// service.
	Simulate bool `yaml:"simulate,omitempty"`
}

// ArchiveConfig configures where enrollment samples are archived.
// S3Bucket selects the S3 backend; otherwise Dir selects the local
// backend; if both are empty, archival is off.
type ArchiveConfig struct {
	// Dir is a local directory for archived samples.
	Dir string `yaml:"dir,omitempty"`

	// S3 settings for an S3-compatible object store.
	S3Bucket    string `yaml:"s3_bucket,omitempty"`
	S3Region    string `yaml:"s3_region,omitempty"`
	S3Endpoint  string `yaml:"s3_endpoint,omitempty"`
	S3AccessKey string `yaml:"s3_access_key,omitempty"`
	S3SecretKey string `yaml:"s3_secret_key,omitempty"`
	S3PathStyle bool   `yaml:"s3_path_style,omitempty"`

	// Prefix is prepended to every archived object key.
	Prefix string `yaml:"prefix,omitempty"`
}

// Enabled reports whether any archive backend is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.S3Bucket != "" || a.Dir != ""
}

// LoadConfig loads the configuration from the default location,
// creating an empty config file on first use.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path; an empty
// path means the default location.
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		var err error
		configPath, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("cli: create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("cli: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration to disk. The file is written with mode
// 0600 since contexts may carry credentials.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context and saves.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context and saves.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context and saves.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context.
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("cli: context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, or the current one if name
// is empty. With neither set it returns a fresh default context, so the
// tool works before any configuration exists.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext != "" {
		return c.GetContext(c.CurrentContext)
	}
	return &Context{Name: "default"}, nil
}

// ListContexts returns all context names in sorted order.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaskAPIKey masks a credential for display.
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
