package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexgetty/roux/internal/rerrors"
)

// Config is the complete engine configuration, per the schema in §6 of the
// specification.
type Config struct {
	Source     SourceConfig    `yaml:"source" json:"source"`
	Cache      CacheConfig     `yaml:"cache" json:"cache"`
	Providers  ProvidersConfig `yaml:"providers" json:"providers"`
	Watcher    WatcherConfig   `yaml:"watcher" json:"watcher"`
	Extensions []string        `yaml:"extensions" json:"extensions"`
	Server     ServerConfig    `yaml:"server" json:"server"`
}

// SourceConfig locates the markdown vault.
type SourceConfig struct {
	// Path is the required absolute or relative root of the vault.
	Path string `yaml:"path" json:"path"`
}

// CacheConfig locates the cache and vector index files.
type CacheConfig struct {
	// Path defaults to "<source>/.roux/" when empty.
	Path string `yaml:"path" json:"path"`
}

// ProvidersConfig configures external capability providers.
type ProvidersConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	// Kind is "local", "static", or "none".
	Kind string `yaml:"kind" json:"kind"`
	// Model overrides the provider's default model, if set.
	Model string `yaml:"model" json:"model"`
}

// WatcherConfig configures the filesystem watcher.
type WatcherConfig struct {
	DebounceMS   int      `yaml:"debounce_ms" json:"debounce_ms"`
	ExcludedDirs []string `yaml:"excluded_dirs" json:"excluded_dirs"`
}

// ServerConfig configures the MCP server transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

var defaultExcludedDirs = []string{".git", "node_modules", ".cache", ".roux"}

// NewConfig returns a Config with every field at its specified default
// except SourceConfig.Path, which the caller must supply.
func NewConfig() *Config {
	return &Config{
		Providers: ProvidersConfig{
			Embedding: EmbeddingConfig{Kind: "none"},
		},
		Watcher: WatcherConfig{
			DebounceMS:   1000,
			ExcludedDirs: append([]string{}, defaultExcludedDirs...),
		},
		Extensions: []string{".md", ".markdown"},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// Load resolves configuration for root by applying, in order of increasing
// precedence: hardcoded defaults, a project file (roux.yaml/roux.yml in
// root), then ROUX_* environment variable overrides. source.path defaults
// to root itself if not set by the file.
func Load(root string) (*Config, error) {
	cfg := NewConfig()
	cfg.Source.Path = root

	if err := cfg.loadFromFile(root); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(cfg.Source.Path, ".roux")
	}

	if err := cfg.Validate(); err != nil {
		return nil, rerrors.Invalid(err.Error())
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{"roux.yaml", "roux.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		return c.loadYAML(path)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

func (c *Config) mergeWith(other *Config) {
	if other.Source.Path != "" {
		c.Source.Path = other.Source.Path
	}
	if other.Cache.Path != "" {
		c.Cache.Path = other.Cache.Path
	}
	if other.Providers.Embedding.Kind != "" {
		c.Providers.Embedding.Kind = other.Providers.Embedding.Kind
	}
	if other.Providers.Embedding.Model != "" {
		c.Providers.Embedding.Model = other.Providers.Embedding.Model
	}
	if other.Watcher.DebounceMS != 0 {
		c.Watcher.DebounceMS = other.Watcher.DebounceMS
	}
	if len(other.Watcher.ExcludedDirs) > 0 {
		c.Watcher.ExcludedDirs = other.Watcher.ExcludedDirs
	}
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies ROUX_* environment variable overrides, the
// highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ROUX_SOURCE_PATH"); v != "" {
		c.Source.Path = v
	}
	if v := os.Getenv("ROUX_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
	if v := os.Getenv("ROUX_EMBEDDING_KIND"); v != "" {
		c.Providers.Embedding.Kind = v
	}
	if v := os.Getenv("ROUX_EMBEDDING_MODEL"); v != "" {
		c.Providers.Embedding.Model = v
	}
	if v := os.Getenv("ROUX_WATCHER_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Watcher.DebounceMS = ms
		}
	}
	if v := os.Getenv("ROUX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("ROUX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate checks invariants Load does not already enforce by
// construction.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Path) == "" {
		return fmt.Errorf("source.path is required")
	}

	kind := strings.ToLower(c.Providers.Embedding.Kind)
	if kind != "local" && kind != "static" && kind != "none" {
		return fmt.Errorf("providers.embedding.kind must be 'local', 'static', or 'none', got %q", c.Providers.Embedding.Kind)
	}

	if c.Watcher.DebounceMS <= 0 {
		return fmt.Errorf("watcher.debounce_ms must be positive, got %d", c.Watcher.DebounceMS)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}

	validTransports := map[string]bool{"stdio": true, "sse": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'sse', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GetUserConfigPath returns the XDG-conventional path for a user-global
// config file: $XDG_CONFIG_HOME/roux/config.yaml, or ~/.config/roux/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "roux", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "roux", "config.yaml")
	}
	return filepath.Join(home, ".config", "roux", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// FindProjectRoot walks up from startDir looking for a roux.yaml/.yml or a
// .git directory, falling back to startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, "roux.yaml")) ||
			fileExists(filepath.Join(currentDir, "roux.yml")) ||
			dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
