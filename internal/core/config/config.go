// Package config handles configuration loading and validation for comb.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/comb/internal/core/hooks"
	"github.com/colonyops/comb/internal/core/styles"
)

// Config holds the application configuration.
type Config struct {
	Theme        string         `yaml:"theme"`
	Watch        bool           `yaml:"watch"`
	EventBuffer  int            `yaml:"event_buffer"`
	Claims       ClaimsConfig   `yaml:"claims"`
	Todos        TodosConfig    `yaml:"todos"`
	HookSettings HookSettings   `yaml:"hooks_settings"`
	Database     DatabaseConfig `yaml:"database"`
	Vars         map[string]any `yaml:"vars"`
	VarsFiles    []string       `yaml:"vars_files"`
	Hooks        []hooks.Hook   `yaml:"hooks"`
	DataDir      string         `yaml:"-"` // set by caller, not from config file
}

// ClaimsConfig tunes the claim registry.
type ClaimsConfig struct {
	DefaultTTL    time.Duration `yaml:"default_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// TodosConfig tunes the todo reconciler.
type TodosConfig struct {
	RemovalDelay time.Duration `yaml:"removal_delay"`
}

// HookSettings holds engine-wide hook options.
type HookSettings struct {
	PromptTimeout time.Duration `yaml:"prompt_timeout"`
	// HistoryRetention is how long hook runs stay in the journal.
	HistoryRetention time.Duration `yaml:"history_retention"`
}

// DatabaseConfig holds SQLite connection settings for the hook journal.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout"` // milliseconds
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Theme:       styles.DefaultTheme,
		Watch:       true,
		EventBuffer: 256,
		Claims: ClaimsConfig{
			DefaultTTL:    time.Hour,
			SweepInterval: time.Minute,
		},
		Todos: TodosConfig{
			RemovalDelay: 2 * time.Minute,
		},
		HookSettings: HookSettings{
			PromptTimeout:    5 * time.Minute,
			HistoryRetention: 30 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 2,
			MaxIdleConns: 2,
			BusyTimeout:  5000,
		},
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "comb", "config.yaml")
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Read(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation. It fails only when the file cannot be
// read or parsed.
func Read(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir

			if len(cfg.VarsFiles) > 0 {
				fileVars, err := loadVarsFiles(filepath.Dir(configPath), cfg.VarsFiles)
				if err != nil {
					return nil, err
				}
				// Inline vars win over vars files.
				mergeMaps(fileVars, cfg.Vars)
				cfg.Vars = fileVars
			}
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = defaults.EventBuffer
	}
	if c.Claims.DefaultTTL == 0 {
		c.Claims.DefaultTTL = defaults.Claims.DefaultTTL
	}
	if c.Claims.SweepInterval == 0 {
		c.Claims.SweepInterval = defaults.Claims.SweepInterval
	}
	if c.Todos.RemovalDelay == 0 {
		c.Todos.RemovalDelay = defaults.Todos.RemovalDelay
	}
	if c.HookSettings.PromptTimeout == 0 {
		c.HookSettings.PromptTimeout = defaults.HookSettings.PromptTimeout
	}
	if c.HookSettings.HistoryRetention == 0 {
		c.HookSettings.HistoryRetention = defaults.HookSettings.HistoryRetention
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
}

// Validate checks that the configuration is structurally valid. Hook
// definitions are checked by ValidateDeep.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("unknown theme %q", c.Theme)
	}

	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be at least 1")
	}

	if c.Claims.DefaultTTL < 0 {
		return fmt.Errorf("claims.default_ttl cannot be negative")
	}

	if c.Claims.SweepInterval < 0 {
		return fmt.Errorf("claims.sweep_interval cannot be negative")
	}

	if c.Todos.RemovalDelay < 0 {
		return fmt.Errorf("todos.removal_delay cannot be negative")
	}

	if c.HookSettings.PromptTimeout < 0 {
		return fmt.Errorf("hooks_settings.prompt_timeout cannot be negative")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	return nil
}

// MessagesDir returns the mailbox root.
func (c *Config) MessagesDir() string {
	return filepath.Join(c.DataDir, "messages")
}

// WorkItemsDir returns the work item root.
func (c *Config) WorkItemsDir() string {
	return filepath.Join(c.DataDir, "workitems")
}

// DatabaseFile returns the path to the hook journal database.
func (c *Config) DatabaseFile() string {
	return filepath.Join(c.DataDir, "comb.db")
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "comb.log")
}
