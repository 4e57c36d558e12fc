// Package config loads and validates the optional .flacwarden YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = ".flacwarden"

// Default values for runner configuration.
const (
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultLogLevel  = "info"
	DefaultFlac      = "flac"
	DefaultMetaflac  = "metaflac"
)

// Step names accepted in check.steps.
const (
	StepTest     = "test"
	StepHash     = "hash"
	StepReencode = "reencode"
)

// Config holds the parsed .flacwarden configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int            `yaml:"version"`
	RawTimeout   string         `yaml:"timeout"`    // e.g. "10m"; empty waits indefinitely
	RawMaxOutput int            `yaml:"max_output"` // bytes per stream
	RawLogLevel  string         `yaml:"log_level"`  // debug, info, warn, error, critical
	Flac         string         `yaml:"flac"`       // path or name of the flac binary
	Metaflac     string         `yaml:"metaflac"`   // path or name of the metaflac binary
	Test         TestConfig     `yaml:"test"`
	Reencode     ReencodeConfig `yaml:"reencode"`
	Check        CheckConfig    `yaml:"check"`
}

// TestConfig controls how flac integrity tests are executed.
type TestConfig struct {
	Args []string `yaml:"args"` // extra flags; -t, --decode-through-errors and -s are always added
}

// ReencodeConfig controls how files are re-encoded in place.
type ReencodeConfig struct {
	Args []string `yaml:"args"` // replaces DefaultReencodeArgs when set
}

// CheckConfig defines the per-file steps for a batch check.
type CheckConfig struct {
	Steps      []string `yaml:"steps"`      // default: [test, hash]
	Extensions []string `yaml:"extensions"` // default: [.flac]
}

// DefaultReencodeArgs are the flac flags used for in-place re-encoding.
var DefaultReencodeArgs = []string{"--force", "--no-error-on-compression-fail", "--verify"}

// DefaultCheckSteps are used when no steps are configured.
var DefaultCheckSteps = []string{StepTest, StepHash}

// DefaultExtensions are used when no extensions are configured.
var DefaultExtensions = []string{".flac"}

var knownSteps = []string{StepTest, StepHash, StepReencode}

var knownLogLevels = []string{"debug", "info", "warn", "warning", "error", "critical"}

// Timeout returns the configured per-invocation timeout, or zero when
// tools should run to completion.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LogLevel returns the configured log level, lower-cased, or the default.
func (c *Config) LogLevel() string {
	if c.RawLogLevel != "" {
		return strings.ToLower(c.RawLogLevel)
	}
	return DefaultLogLevel
}

// FlacPath returns the configured flac binary or the default name.
func (c *Config) FlacPath() string {
	if c.Flac != "" {
		return c.Flac
	}
	return DefaultFlac
}

// MetaflacPath returns the configured metaflac binary or the default name.
func (c *Config) MetaflacPath() string {
	if c.Metaflac != "" {
		return c.Metaflac
	}
	return DefaultMetaflac
}

// ReencodeArgs returns the configured re-encode flags, falling back to defaults.
func (c *Config) ReencodeArgs() []string {
	if len(c.Reencode.Args) > 0 {
		return c.Reencode.Args
	}
	return DefaultReencodeArgs
}

// CheckSteps returns the configured check steps, falling back to defaults.
func (c *Config) CheckSteps() []string {
	if len(c.Check.Steps) > 0 {
		return c.Check.Steps
	}
	return DefaultCheckSteps
}

// Extensions returns the configured file extensions, lower-cased and
// dot-prefixed, falling back to defaults.
func (c *Config) Extensions() []string {
	if len(c.Check.Extensions) == 0 {
		return DefaultExtensions
	}
	out := make([]string, 0, len(c.Check.Extensions))
	for _, ext := range c.Check.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Validate rejects unknown steps, log levels and malformed timeouts.
func (c *Config) Validate() error {
	for _, step := range c.CheckSteps() {
		if !slices.Contains(knownSteps, step) {
			return fmt.Errorf("unknown check step %q (use %s)", step, strings.Join(knownSteps, ", "))
		}
	}
	if !slices.Contains(knownLogLevels, c.LogLevel()) {
		return fmt.Errorf("unknown log level %q", c.RawLogLevel)
	}
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.RawTimeout, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid timeout %q: must not be negative", c.RawTimeout)
		}
	}
	return nil
}

// LoadResult holds the parsed config and the file it was read from.
type LoadResult struct {
	Config *Config
	Path   string // empty when no config file was found
}

// Load looks for a .flacwarden file in dir and each of its parents.
// If none exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	path, err := findConfig(dir)
	if err != nil {
		return &LoadResult{Config: &Config{}}, nil
	}
	return LoadFile(path)
}

// LoadFile reads and parses the config file at path.
func LoadFile(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Path: path}, nil
}

// findConfig walks upward from dir looking for a config file.
func findConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, FileName)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s not found", FileName)
		}
		dir = parent
	}
}
