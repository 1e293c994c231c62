package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/asmcfg/internal/log"
	"github.com/l3aro/asmcfg/pkg/arch"
	"github.com/l3aro/asmcfg/pkg/cfg"
	"github.com/l3aro/asmcfg/pkg/include"
	"github.com/l3aro/asmcfg/pkg/source"
)

// ArchAuto selects architecture detection instead of a fixed tag.
const ArchAuto = "auto"

// Config holds all configuration for asmcfg
type Config struct {
	// Arch is "auto" or an architecture tag such as x86_64 or arm64
	Arch string `yaml:"arch" env:"ASMCFG_ARCH"`

	// Include expansion
	IncludeMode       string   `yaml:"include_mode" env:"ASMCFG_INCLUDE_MODE"`
	IncludeExtensions []string `yaml:"include_extensions" env:"ASMCFG_INCLUDE_EXTENSIONS"`
	MaxIncludeDepth   int      `yaml:"max_include_depth" env:"ASMCFG_MAX_INCLUDE_DEPTH"`

	// Encodings tried in order when reading source files
	Encodings []string `yaml:"encodings" env:"ASMCFG_ENCODINGS"`

	// Graph cache
	CacheEnabled bool   `yaml:"cache_enabled" env:"ASMCFG_CACHE_ENABLED"`
	CacheFile    string `yaml:"cache_file" env:"ASMCFG_CACHE_FILE"`
	CacheSize    int    `yaml:"cache_size" env:"ASMCFG_CACHE_SIZE"`

	// Workers bounds concurrent parses in batch mode
	Workers int `yaml:"workers" env:"ASMCFG_WORKERS"`

	// Logging
	LogLevel string `yaml:"log_level" env:"ASMCFG_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"ASMCFG_JSON_LOGS"`
	Verbose  bool   `yaml:"verbose" env:"ASMCFG_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	encs := make([]string, len(source.DefaultEncodings))
	for i, e := range source.DefaultEncodings {
		encs[i] = string(e)
	}
	return &Config{
		Arch:              ArchAuto,
		IncludeMode:       string(cfg.IncludeAuto),
		IncludeExtensions: append([]string(nil), cfg.DefaultIncludeExtensions...),
		MaxIncludeDepth:   include.DefaultMaxDepth,
		Encodings:         encs,
		CacheEnabled:      true,
		CacheFile:         filepath.Join(GlobalDir(), "cache.msgpack"),
		CacheSize:         256,
		Workers:           runtime.NumCPU(),
		LogLevel:          "info",
		JSONLogs:          false,
		Verbose:           false,
	}
}

// GlobalDir returns the per-user configuration directory (~/.asmcfg).
func GlobalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".asmcfg"
	}
	return filepath.Join(home, ".asmcfg")
}

// GlobalConfigPath returns the global config file path (~/.asmcfg/config.yaml)
func GlobalConfigPath() string {
	return filepath.Join(GlobalDir(), "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.asmcfg/config.yaml)
func ProjectConfigPath() string {
	return filepath.Join(".asmcfg", "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.asmcfg/config.yaml)
// 3. Global config (~/.asmcfg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	c := DefaultConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	c := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies ASMCFG_* environment variable overrides.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("ASMCFG_ARCH"); v != "" {
		c.Arch = v
	}
	if v := os.Getenv("ASMCFG_INCLUDE_MODE"); v != "" {
		c.IncludeMode = v
	}
	if v := os.Getenv("ASMCFG_INCLUDE_EXTENSIONS"); v != "" {
		c.IncludeExtensions = splitList(v)
	}
	if v := os.Getenv("ASMCFG_ENCODINGS"); v != "" {
		c.Encodings = splitList(v)
	}
	if v := os.Getenv("ASMCFG_CACHE_FILE"); v != "" {
		c.CacheFile = v
	}
	if v := os.Getenv("ASMCFG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"ASMCFG_MAX_INCLUDE_DEPTH", &c.MaxIncludeDepth},
		{"ASMCFG_CACHE_SIZE", &c.CacheSize},
		{"ASMCFG_WORKERS", &c.Workers},
	}
	for _, o := range ints {
		if v := os.Getenv(o.name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid %s: %q is not an integer", o.name, v)
			}
			*o.dst = n
		}
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"ASMCFG_CACHE_ENABLED", &c.CacheEnabled},
		{"ASMCFG_JSON_LOGS", &c.JSONLogs},
		{"ASMCFG_VERBOSE", &c.Verbose},
	}
	for _, o := range bools {
		if v := os.Getenv(o.name); v != "" {
			*o.dst = parseBool(v)
		}
	}
	return nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if !strings.EqualFold(c.Arch, ArchAuto) {
		if _, err := arch.Parse(c.Arch); err != nil {
			return fmt.Errorf("invalid arch: %w", err)
		}
	}
	if _, err := cfg.ParseIncludeMode(c.IncludeMode); err != nil {
		return err
	}
	for _, ext := range c.IncludeExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("include_extensions entry %q must start with a dot", ext)
		}
	}
	if c.MaxIncludeDepth <= 0 {
		return fmt.Errorf("max_include_depth must be positive")
	}
	if len(c.Encodings) == 0 {
		return fmt.Errorf("encodings must not be empty")
	}
	if _, err := source.ParseEncodings(c.Encodings); err != nil {
		return err
	}
	if c.CacheEnabled {
		if c.CacheSize <= 0 {
			return fmt.Errorf("cache_size must be positive when the cache is enabled")
		}
		if c.CacheFile == "" {
			return fmt.Errorf("cache_file is required when the cache is enabled")
		}
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseOptions converts the configuration into graph build options.
func (c *Config) ParseOptions(logger log.Logger) (cfg.Options, error) {
	opts := cfg.Options{
		IncludeExtensions: append([]string(nil), c.IncludeExtensions...),
		MaxIncludeDepth:   c.MaxIncludeDepth,
		Logger:            logger,
	}

	if strings.EqualFold(c.Arch, ArchAuto) {
		opts.AutoDetect = true
	} else {
		a, err := arch.Parse(c.Arch)
		if err != nil {
			return cfg.Options{}, err
		}
		opts.Arch = a
	}

	mode, err := cfg.ParseIncludeMode(c.IncludeMode)
	if err != nil {
		return cfg.Options{}, err
	}
	opts.IncludeMode = mode

	encs, err := source.ParseEncodings(c.Encodings)
	if err != nil {
		return cfg.Options{}, err
	}
	opts.Encodings = encs

	return opts, nil
}

// Level returns the effective log level; Verbose forces debug.
func (c *Config) Level() log.Level {
	if c.Verbose {
		return log.DebugLevel
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
