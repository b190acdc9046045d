package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Device  DeviceConfig  `mapstructure:"device"`
	Buffer  BufferConfig  `mapstructure:"buffer"`
	Seed    SeedConfig    `mapstructure:"seed"`
	View    ViewConfig    `mapstructure:"view"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type DeviceConfig struct {
	Backend    string `mapstructure:"backend"`
	CapacityMB int    `mapstructure:"capacity_mb"`
	PoolMaxMB  int    `mapstructure:"pool_max_mb"`
}

type BufferConfig struct {
	Space   string `mapstructure:"space"`
	Width   int    `mapstructure:"width"`
	Height  int    `mapstructure:"height"`
	Element string `mapstructure:"element"`
}

type SeedConfig struct {
	Value  int64 `mapstructure:"value"`
	Random bool  `mapstructure:"random"`
}

type ViewConfig struct {
	Color     bool   `mapstructure:"color"`
	Style     string `mapstructure:"style"`
	CellWidth int    `mapstructure:"cell_width"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

var (
	validBackends = []string{"auto", "cpu", "cuda", "emulated"}
	validSpaces   = []string{"host", "device"}
	validElements = []string{"uint32", "int32", "float32", "float64"}
	validLevels   = []string{"debug", "info", "warn", "error"}
)

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	appDir := filepath.Join(home, ".buf2d")

	return &Config{
		Device: DeviceConfig{
			Backend:    "auto",
			CapacityMB: 0,
			PoolMaxMB:  64,
		},
		Buffer: BufferConfig{
			Space:   "host",
			Width:   8,
			Height:  6,
			Element: "uint32",
		},
		Seed: SeedConfig{
			Value:  1,
			Random: false,
		},
		View: ViewConfig{
			Color:     true,
			Style:     "monokai",
			CellWidth: 10,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			File:    filepath.Join(appDir, "buf2d.log"),
			Console: false,
		},
	}
}

// Load loads configuration from file, environment, and defaults
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".buf2d"))
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("BUF2D")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is okay, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ExpandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !contains(validBackends, c.Device.Backend) {
		return fmt.Errorf("device.backend must be one of: %v", validBackends)
	}

	if c.Device.CapacityMB < 0 || c.Device.PoolMaxMB < 0 {
		return errors.New("device.capacity_mb and device.pool_max_mb must not be negative")
	}

	if !contains(validSpaces, c.Buffer.Space) {
		return fmt.Errorf("buffer.space must be one of: %v", validSpaces)
	}

	if c.Buffer.Width < 0 || c.Buffer.Height < 0 {
		return errors.New("buffer.width and buffer.height must not be negative")
	}

	if !contains(validElements, c.Buffer.Element) {
		return fmt.Errorf("buffer.element must be one of: %v", validElements)
	}

	if c.View.CellWidth < 1 {
		return errors.New("view.cell_width must be at least 1")
	}

	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	return nil
}

// ExpandPaths expands ~ and environment variables in paths
func (c *Config) ExpandPaths() {
	c.Logging.File = expandPath(c.Logging.File)
}

// CapacityBytes returns the emulated device capacity in bytes
func (d DeviceConfig) CapacityBytes() int64 {
	return int64(d.CapacityMB) * 1024 * 1024
}

// PoolMaxBytes returns the device buffer pool limit in bytes
func (d DeviceConfig) PoolMaxBytes() int64 {
	return int64(d.PoolMaxMB) * 1024 * 1024
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.backend", cfg.Device.Backend)
	v.SetDefault("device.capacity_mb", cfg.Device.CapacityMB)
	v.SetDefault("device.pool_max_mb", cfg.Device.PoolMaxMB)

	v.SetDefault("buffer.space", cfg.Buffer.Space)
	v.SetDefault("buffer.width", cfg.Buffer.Width)
	v.SetDefault("buffer.height", cfg.Buffer.Height)
	v.SetDefault("buffer.element", cfg.Buffer.Element)

	v.SetDefault("seed.value", cfg.Seed.Value)
	v.SetDefault("seed.random", cfg.Seed.Random)

	v.SetDefault("view.color", cfg.View.Color)
	v.SetDefault("view.style", cfg.View.Style)
	v.SetDefault("view.cell_width", cfg.View.CellWidth)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
