package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes environment overrides, e.g. SPLITBOOK_DETECT_LEVEL.
const EnvPrefix = "SPLITBOOK"

// Manager loads configuration from defaults, the config file, and the
// environment, in increasing order of precedence.
type Manager struct {
	v      *viper.Viper
	config *Config
}

// NewManager creates a new config manager and loads config. An explicit
// cfgFile must exist; otherwise config.yaml is looked up in the working
// directory and then homeDir, and a missing file is not an error.
func NewManager(cfgFile, homeDir string) (*Manager, error) {
	cm := &Manager{v: viper.New()}

	if err := cm.initViper(cfgFile, homeDir); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile, homeDir string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("detect.level", defaults.Detect.Level)
	v.SetDefault("detect.scan_lines", defaults.Detect.ScanLines)
	v.SetDefault("detect.title_max_len", defaults.Detect.TitleMaxLen)
	v.SetDefault("split.filename_max_len", defaults.Split.FilenameMaxLen)
	v.SetDefault("log.level", defaults.Log.Level)

	// Environment variables with SPLITBOOK_ prefix, nested keys joined by _
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if homeDir != "" {
			v.AddConfigPath(homeDir)
		}
	}

	// Try to read config file (not required unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the loaded configuration.
func (cm *Manager) Get() *Config {
	return cm.config
}

// ConfigFile returns the config file that was read, or "" when running
// on defaults and environment only.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Detect.Level < 1 {
		return fmt.Errorf("invalid config: detect.level must be at least 1, got %d", c.Detect.Level)
	}
	if c.Detect.ScanLines < 1 {
		return fmt.Errorf("invalid config: detect.scan_lines must be at least 1, got %d", c.Detect.ScanLines)
	}
	if c.Detect.TitleMaxLen < 1 {
		return fmt.Errorf("invalid config: detect.title_max_len must be at least 1, got %d", c.Detect.TitleMaxLen)
	}
	if c.Split.FilenameMaxLen < 1 {
		return fmt.Errorf("invalid config: split.filename_max_len must be at least 1, got %d", c.Split.FilenameMaxLen)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid config: log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// WriteDefault writes the default configuration to the specified path,
// creating parent directories as needed.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := []byte(`# splitbook configuration
# Every key can be overridden from the environment, e.g. SPLITBOOK_DETECT_LEVEL=2

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
