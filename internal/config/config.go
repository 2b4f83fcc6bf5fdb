// Package config manages TalentFlow configuration and its home directory.
// It handles loading, saving, and defaulting the TOML config file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml/v2"
)

const (
	HomeEnv        = "TALENTFLOW_HOME"
	DefaultHomeDir = ".talentflow"
	ConfigFile     = "config.toml"
	DatabaseFile   = "talentflow.db"
	AttachmentsDir = "attachments"
)

// Duration is a time.Duration stored as a string such as "200ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config represents the TalentFlow configuration.
type Config struct {
	DataDir            string   `toml:"data_dir"`
	StoreBackend       string   `toml:"store_backend"` // "bbolt" or "sqlite"
	APIURL             string   `toml:"api_url"`       // empty runs the backend in-process
	Account            string   `toml:"account"`       // current session account id
	LatencyMin         Duration `toml:"latency_min"`
	LatencyMax         Duration `toml:"latency_max"`
	FailureRate        float64  `toml:"failure_rate"`
	ReorderFailureRate float64  `toml:"reorder_failure_rate"`
	WebhookURLs        []string `toml:"webhook_urls"`
	WebhookSecret      string   `toml:"webhook_secret"`

	path string // path to the home directory
}

// Default returns the configuration used when no file exists.
func Default(home string) *Config {
	return &Config{
		DataDir:            home,
		StoreBackend:       "bbolt",
		Account:            "main",
		LatencyMin:         Duration(200 * time.Millisecond),
		LatencyMax:         Duration(1200 * time.Millisecond),
		FailureRate:        0.08,
		ReorderFailureRate: 0.10,
		path:               home,
	}
}

// Home resolves the TalentFlow home directory: $TALENTFLOW_HOME, else
// ~/.talentflow.
func Home() (string, error) {
	if h := os.Getenv(HomeEnv); h != "" {
		return h, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(userHome, DefaultHomeDir), nil
}

// Load reads the configuration from home. A missing file yields defaults;
// keys absent from the file keep their default values.
func Load(home string) (*Config, error) {
	cfg := Default(home)

	data, err := os.ReadFile(filepath.Join(home, ConfigFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.path = home
	return cfg, nil
}

// Validate rejects settings the backend cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "bbolt", "sqlite":
	default:
		return fmt.Errorf("invalid store_backend %q (want bbolt or sqlite)", c.StoreBackend)
	}
	if c.LatencyMin < 0 || c.LatencyMax < c.LatencyMin {
		return fmt.Errorf("invalid latency range %s..%s", time.Duration(c.LatencyMin), time.Duration(c.LatencyMax))
	}
	for name, rate := range map[string]float64{"failure_rate": c.FailureRate, "reorder_failure_rate": c.ReorderFailureRate} {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("invalid %s %v (want 0..1)", name, rate)
		}
	}
	return nil
}

// Save writes the configuration to disk atomically.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.path, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return atomic.WriteFile(filepath.Join(c.path, ConfigFile), bytes.NewReader(data))
}

// HomePath returns the directory the config was loaded from.
func (c *Config) HomePath() string {
	return c.path
}

// DatabasePath returns the path to the record store file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseFile)
}

// AttachmentsPath returns the path to the attachment store directory.
func (c *Config) AttachmentsPath() string {
	return filepath.Join(c.DataDir, AttachmentsDir)
}
