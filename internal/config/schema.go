package config

import (
	"github.com/jackzampolin/splitbook/internal/detect"
	"github.com/jackzampolin/splitbook/internal/split"
)

// Config holds splitbook configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Detect DetectCfg `mapstructure:"detect" yaml:"detect" json:"detect"`
	Split  SplitCfg  `mapstructure:"split" yaml:"split" json:"split"`
	Log    LogCfg    `mapstructure:"log" yaml:"log" json:"log"`
}

// DetectCfg tunes chapter detection.
type DetectCfg struct {
	Level       int `mapstructure:"level" yaml:"level" json:"level"`                         // Bookmark depth treated as chapters
	ScanLines   int `mapstructure:"scan_lines" yaml:"scan_lines" json:"scan_lines"`          // Lines per page checked for a chapter heading
	TitleMaxLen int `mapstructure:"title_max_len" yaml:"title_max_len" json:"title_max_len"` // Cap on heading-derived titles
}

// SplitCfg tunes chapter file output.
type SplitCfg struct {
	FilenameMaxLen int `mapstructure:"filename_max_len" yaml:"filename_max_len" json:"filename_max_len"`
}

// LogCfg configures the stderr logger.
type LogCfg struct {
	Level string `mapstructure:"level" yaml:"level" json:"level"` // debug, info, warn, error
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Detect: DetectCfg{
			Level:       detect.DefaultLevel,
			ScanLines:   detect.DefaultScanLines,
			TitleMaxLen: detect.DefaultTitleMaxLen,
		},
		Split: SplitCfg{
			FilenameMaxLen: split.DefaultFilenameMaxLen,
		},
		Log: LogCfg{
			Level: "info",
		},
	}
}

// DetectOptions converts the detect section to detector options.
func (c *Config) DetectOptions() detect.Options {
	return detect.Options{
		Level:       c.Detect.Level,
		ScanLines:   c.Detect.ScanLines,
		TitleMaxLen: c.Detect.TitleMaxLen,
	}
}

// SplitOptions converts the split section to splitter options.
func (c *Config) SplitOptions() split.Options {
	return split.Options{FilenameMaxLen: c.Split.FilenameMaxLen}
}
