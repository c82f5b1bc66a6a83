// Package config handles rigport configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/rigport/internal/logger"
)

// Config holds all rigport settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	TimeEpsilon float32 `yaml:"time_epsilon"` // Key times closer than this are merged
	Workers     int     `yaml:"workers"`      // Files imported in parallel by batch
	CacheModels bool    `yaml:"cache_models"`
}

// OutputConfig holds settings for inspection commands.
type OutputConfig struct {
	DumpDepth   int  `yaml:"dump_depth"`   // Nesting limit for dump, 0 is unlimited
	MaxVertices int  `yaml:"max_vertices"` // Vertices listed by dump
	ShowOffsets bool `yaml:"show_offsets"` // Print byte offsets with errors
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	file := logger.DefaultFileConfig("")
	return &Config{
		Import: ImportConfig{
			TimeEpsilon: 1e-5,
			Workers:     4,
			CacheModels: false,
		},
		Output: OutputConfig{
			DumpDepth:   4,
			MaxVertices: 8,
			ShowOffsets: true,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			LogFile:    "",
			MaxSizeMB:  file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
			MaxAgeDays: file.MaxAgeDays,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Import.TimeEpsilon <= 0 || c.Import.TimeEpsilon >= 1 {
		return fmt.Errorf("import.time_epsilon must be in (0, 1), got %v", c.Import.TimeEpsilon)
	}
	if c.Import.Workers < 1 {
		return fmt.Errorf("import.workers must be at least 1, got %d", c.Import.Workers)
	}
	if c.Output.DumpDepth < 0 {
		return fmt.Errorf("output.dump_depth must not be negative, got %d", c.Output.DumpDepth)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// FileConfig returns the log file settings, or an empty config when file
// logging is off.
func (c *Config) FileConfig() logger.FileConfig {
	if c.Logging.LogFile == "" {
		return logger.FileConfig{}
	}
	return logger.FileConfig{
		Path:       c.Logging.LogFile,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   true,
	}
}
