// Package config loads and validates the bundler's YAML build configuration.
// Environment variables are expanded inside the YAML before parsing, and a
// local .env file (if present) is loaded first so secrets can stay out of the
// config file itself.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/bundler/internal/errors"
)

// Config is the top-level build configuration.
type Config struct {
	// Name identifies the compiler in logs, records and reports.
	Name string `yaml:"name,omitempty"`

	// Context is the base directory of the build. Watch paths and records
	// paths are resolved relative to it when not absolute.
	Context string `yaml:"context,omitempty"`

	Output  OutputConfig  `yaml:"output"`
	Records RecordsConfig `yaml:"records,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`

	Monitoring MonitoringConfig `yaml:"monitoring,omitempty"`
	Notify     NotifyConfig     `yaml:"notify,omitempty"`
	Journal    JournalConfig    `yaml:"journal,omitempty"`

	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// OutputConfig controls asset emission.
type OutputConfig struct {
	// Path is the output directory for emitted assets.
	Path string `yaml:"path"`

	// Cache enables write deduplication across builds. Nil means enabled.
	Cache *bool `yaml:"cache,omitempty"`

	// Concurrency bounds simultaneous asset writes (0 = default cap).
	Concurrency int `yaml:"concurrency,omitempty"`
}

// RecordsConfig locates the build continuity records file.
type RecordsConfig struct {
	// Path sets both the input and output records file. InputPath and
	// OutputPath override it individually when set.
	Path       string `yaml:"path,omitempty"`
	InputPath  string `yaml:"input_path,omitempty"`
	OutputPath string `yaml:"output_path,omitempty"`
}

// WatchConfig controls continuous-rebuild mode.
type WatchConfig struct {
	// Paths are the directories observed for changes. Defaults to the
	// build context.
	Paths []string `yaml:"paths,omitempty"`

	// Debounce is how long the watcher waits after the last change before
	// triggering a rebuild.
	Debounce time.Duration `yaml:"debounce,omitempty"`

	// PollInterval, when positive, adds a periodic full-rescan trigger for
	// file systems that deliver no change events (network mounts).
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// MonitoringConfig exposes build metrics over HTTP in watch mode.
type MonitoringConfig struct {
	// MetricsListen is the address of the Prometheus /metrics endpoint.
	// Empty disables the endpoint.
	MetricsListen string `yaml:"metrics_listen,omitempty"`
}

// NotifyConfig publishes build reports to NATS when a build completes.
type NotifyConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// JournalConfig persists per-build lifecycle events to a local SQLite file.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error
	Format string `yaml:"format,omitempty"` // text|json
}

// CacheEnabled resolves the tri-state cache flag.
func (o OutputConfig) CacheEnabled() bool {
	return o.Cache == nil || *o.Cache
}

// RecordsInputPath resolves the effective records input file.
func (r RecordsConfig) RecordsInputPath() string {
	if r.InputPath != "" {
		return r.InputPath
	}
	return r.Path
}

// RecordsOutputPath resolves the effective records output file.
func (r RecordsConfig) RecordsOutputPath() string {
	if r.OutputPath != "" {
		return r.OutputPath
	}
	return r.Path
}

// Load reads, expands and validates a configuration file. A .env or
// .env.local beside the process is loaded first without overriding the
// existing environment.
func Load(path string) (*Config, error) {
	loadDotEnv()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to read config file").
			WithContext("path", path)
	}
	return Parse(data)
}

// Parse expands environment references and unmarshals the YAML document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "failed to parse config file")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv loads the first present env file. Existing process environment
// always wins.
func loadDotEnv() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err == nil {
			_ = godotenv.Load(name)
			return
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "bundler"
	}
	if c.Context == "" {
		c.Context = "."
	}
	if c.Output.Path == "" {
		c.Output.Path = "dist"
	}
	if len(c.Watch.Paths) == 0 {
		c.Watch.Paths = []string{c.Context}
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 300 * time.Millisecond
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return errors.ConfigRequired("output.path")
	}
	if c.Output.Concurrency < 0 {
		return errors.ValidationFailed("output.concurrency", "must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return errors.ValidationFailed("watch.debounce", "must not be negative")
	}
	if c.Watch.PollInterval < 0 {
		return errors.ValidationFailed("watch.poll_interval", "must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.ValidationFailed("logging.level", "must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.ValidationFailed("logging.format", "must be text or json")
	}
	if (c.Notify.URL == "") != (c.Notify.Subject == "") {
		return errors.ValidationFailed("notify", "url and subject must be set together")
	}
	return nil
}
