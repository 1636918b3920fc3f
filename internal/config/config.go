package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables overriding file values
const (
	EnvStoreDSN        = "WA_HISTORY_STORE_DSN"
	EnvAddr            = "WA_HISTORY_ADDR"
	EnvPayloadDir      = "WA_HISTORY_PAYLOAD_DIR"
	EnvPlaceholderName = "WA_HISTORY_PLACEHOLDER_NAME"
	EnvStoreTimeout    = "WA_HISTORY_STORE_TIMEOUT"
)

// Defaults
const (
	DefaultStoreDSN           = "sqlite://./wa-history.db"
	DefaultAddr               = ":4000"
	DefaultPayloadDir         = "./payloads"
	DefaultPlaceholderName    = "Unknown User"
	DefaultAPIPlaceholderName = "New User"
	DefaultStoreTimeout       = 5 * time.Second
	DefaultWatchDebounce      = 250 * time.Millisecond
)

// Config is the complete wa-history configuration
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Account AccountConfig `yaml:"account"`
	Server  ServerConfig  `yaml:"server"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// StoreConfig selects and tunes the conversation store
type StoreConfig struct {
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// AccountConfig holds the labels given to conversations before a contact name is known
type AccountConfig struct {
	PlaceholderName    string `yaml:"placeholder_name"`
	APIPlaceholderName string `yaml:"api_placeholder_name"`
}

// ServerConfig holds the HTTP listen address
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IngestConfig holds payload directory settings
type IngestConfig struct {
	PayloadDir    string        `yaml:"payload_dir"`
	WatchDebounce time.Duration `yaml:"-"`

	WatchDebounceRaw string `yaml:"watch_debounce"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:     DefaultStoreDSN,
			Timeout: DefaultStoreTimeout,
		},
		Account: AccountConfig{
			PlaceholderName:    DefaultPlaceholderName,
			APIPlaceholderName: DefaultAPIPlaceholderName,
		},
		Server: ServerConfig{Addr: DefaultAddr},
		Ingest: IngestConfig{
			PayloadDir:    DefaultPayloadDir,
			WatchDebounce: DefaultWatchDebounce,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment variables. ${VAR} references in the
// file are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or empty when unset
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		c.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPayloadDir)); v != "" {
		c.Ingest.PayloadDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPlaceholderName)); v != "" {
		c.Account.PlaceholderName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreTimeout)); v != "" {
		c.Store.TimeoutRaw = v
	}
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Store.TimeoutRaw != "" {
		cfg.Store.Timeout, err = time.ParseDuration(cfg.Store.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing store.timeout %q: %w", cfg.Store.TimeoutRaw, err)
		}
	}

	if cfg.Ingest.WatchDebounceRaw != "" {
		cfg.Ingest.WatchDebounce, err = time.ParseDuration(cfg.Ingest.WatchDebounceRaw)
		if err != nil {
			return fmt.Errorf("parsing ingest.watch_debounce %q: %w", cfg.Ingest.WatchDebounceRaw, err)
		}
	}

	return nil
}

// Validate checks that required fields are present and valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("store.dsn is required")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store.timeout must be positive, got %s", c.Store.Timeout)
	}
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Account.PlaceholderName == "" {
		return errors.New("account.placeholder_name must not be empty")
	}
	if c.Ingest.WatchDebounce < 0 {
		return fmt.Errorf("ingest.watch_debounce must not be negative, got %s", c.Ingest.WatchDebounce)
	}
	return nil
}
