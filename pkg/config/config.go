package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents mailtype configuration
type Config struct {
	// N-gram model settings
	Model ModelConfig `yaml:"model"`

	// Training corpus settings
	Corpus CorpusConfig `yaml:"corpus"`

	// Model storage settings
	Store StoreConfig `yaml:"store"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`

	// Milter capture settings
	Capture CaptureConfig `yaml:"capture"`

	// Editor integration settings
	Serve ServeConfig `yaml:"serve"`
}

// ModelConfig contains n-gram model parameters
type ModelConfig struct {
	Order       int    `yaml:"order"`       // window width; context is order-1 words
	Suggestions int    `yaml:"suggestions"` // default k
	Name        string `yaml:"name"`        // model name for redis/sqlite backends
}

// CorpusConfig describes where sent mail is read from
type CorpusConfig struct {
	Dirs        []string `yaml:"dirs"`
	Extensions  []string `yaml:"extensions"`   // "" matches files without extension
	Senders     []string `yaml:"senders"`      // empty = every message counts as sent
	MaxMessages int      `yaml:"max_messages"` // newest first, 0 = unlimited
	LuaScript   string   `yaml:"lua_script"`   // optional script defining clean(text)
}

// StoreConfig selects and configures the model backend
type StoreConfig struct {
	Backend string            `yaml:"backend"` // file, redis, sqlite
	File    FileStoreConfig   `yaml:"file"`
	Redis   RedisStoreConfig  `yaml:"redis"`
	SQLite  SQLiteStoreConfig `yaml:"sqlite"`
}

// FileStoreConfig configures the on-disk artifact
type FileStoreConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // json, msgpack, auto (by extension)
}

// RedisStoreConfig configures the redis backend
type RedisStoreConfig struct {
	URL         string `yaml:"url"`
	KeyPrefix   string `yaml:"key_prefix"`
	DatabaseNum int    `yaml:"database_num"`
	TTL         string `yaml:"ttl"` // duration, empty = no expiry
}

// SQLiteStoreConfig configures the libsql backend
type SQLiteStoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	File   string `yaml:"file"`   // log file path, empty = stderr
	Format string `yaml:"format"` // text, json, logfmt
}

// CaptureConfig contains milter capture server settings
type CaptureConfig struct {
	Network  string   `yaml:"network"` // "tcp" or "unix"
	Address  string   `yaml:"address"` // "127.0.0.1:7358" or "/tmp/mailtype.sock"
	SpoolDir string   `yaml:"spool_dir"`
	Senders  []string `yaml:"senders"` // envelope senders to capture, empty = all

	ReadTimeoutMs           int `yaml:"read_timeout_ms"`
	WriteTimeoutMs          int `yaml:"write_timeout_ms"`
	GracefulShutdownTimeout int `yaml:"graceful_shutdown_timeout_ms"`
}

// ServeConfig contains IPC server settings
type ServeConfig struct {
	MaxLimit int `yaml:"max_limit"` // cap for the requested number of suggestions
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Order:       3,
			Suggestions: 5,
			Name:        "default",
		},
		Corpus: CorpusConfig{
			Dirs:        []string{"mail/sent"},
			Extensions:  []string{".eml", ".msg", ".email", ".mbox", ".txt", ""},
			MaxMessages: 5000,
		},
		Store: StoreConfig{
			Backend: "file",
			File: FileStoreConfig{
				Path:   "mailtype-model.json",
				Format: "auto",
			},
			Redis: RedisStoreConfig{
				URL:         "redis://localhost:6379",
				KeyPrefix:   "mailtype",
				DatabaseNum: 0,
			},
			SQLite: SQLiteStoreConfig{
				Path: "mailtype.db",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Capture: CaptureConfig{
			Network:                 "tcp",
			Address:                 "127.0.0.1:7358",
			SpoolDir:                "mail/sent",
			ReadTimeoutMs:           10000,
			WriteTimeoutMs:          10000,
			GracefulShutdownTimeout: 30000,
		},
		Serve: ServeConfig{
			MaxLimit: 50,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Model.Order < 1 {
		return fmt.Errorf("model order must be >= 1")
	}
	if c.Model.Suggestions < 1 {
		return fmt.Errorf("model suggestions must be >= 1")
	}
	if c.Corpus.MaxMessages < 0 {
		return fmt.Errorf("corpus max_messages must be >= 0")
	}

	switch c.Store.Backend {
	case "file":
		if c.Store.File.Path == "" {
			return fmt.Errorf("store file path cannot be empty")
		}
		if !oneOf(c.Store.File.Format, "json", "msgpack", "auto") {
			return fmt.Errorf("invalid store file format: %s", c.Store.File.Format)
		}
	case "redis":
		if c.Store.Redis.URL == "" {
			return fmt.Errorf("store redis url cannot be empty")
		}
		if _, err := c.Store.Redis.TTLDuration(); err != nil {
			return err
		}
	case "sqlite":
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("store sqlite path cannot be empty")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}
	if c.Store.Backend != "file" && c.Model.Name == "" {
		return fmt.Errorf("model name cannot be empty for %s backend", c.Store.Backend)
	}

	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if !oneOf(c.Logging.Format, "text", "json", "logfmt") {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Capture.Network != "tcp" && c.Capture.Network != "unix" {
		return fmt.Errorf("capture network must be 'tcp' or 'unix'")
	}
	if c.Capture.Address == "" {
		return fmt.Errorf("capture address cannot be empty")
	}
	if c.Capture.SpoolDir == "" {
		return fmt.Errorf("capture spool_dir cannot be empty")
	}
	if c.Capture.ReadTimeoutMs < 1000 {
		return fmt.Errorf("capture read_timeout_ms must be >= 1000")
	}
	if c.Capture.WriteTimeoutMs < 1000 {
		return fmt.Errorf("capture write_timeout_ms must be >= 1000")
	}

	if c.Serve.MaxLimit < 1 {
		return fmt.Errorf("serve max_limit must be >= 1")
	}

	return nil
}

// TTLDuration parses the redis key TTL. Empty means no expiry.
func (r RedisStoreConfig) TTLDuration() (time.Duration, error) {
	if r.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid store redis ttl %q: %w", r.TTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("store redis ttl must not be negative")
	}
	return d, nil
}

// IsSender reports whether addr is one of senders. An empty list matches
// every address.
func IsSender(senders []string, addr string) bool {
	if len(senders) == 0 {
		return true
	}
	addr = normalizeAddress(addr)
	for _, s := range senders {
		if normalizeAddress(s) == addr {
			return true
		}
	}
	return false
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
