// Package config loads the one2html settings. Values are layered: built-in
// defaults, then an optional one2html.yaml, then ONE2HTML_* environment
// variables, then command line flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Setting keys. They double as flag names and config file keys.
const (
	KeyOutput        = "output"
	KeyWorkers       = "workers"
	KeyFailFast      = "fail-fast"
	KeyIndex         = "index"
	KeyMaxImageWidth = "max-image-width"
	KeyJPEGQuality   = "jpeg-quality"
	KeyReport        = "report"
	KeyLogLevel      = "log-level"
	KeyLogFormat     = "log-format"
	KeyVerbose       = "verbose"
	KeyNoColor       = "no-color"
	KeyStrict        = "strict"
)

const (
	configName = "one2html"
	envPrefix  = "ONE2HTML"

	DefaultOutput      = "out_html"
	DefaultJPEGQuality = 85
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// Config holds the resolved settings of a run.
type Config struct {
	Output        string `mapstructure:"output"`
	Workers       int    `mapstructure:"workers"`
	FailFast      bool   `mapstructure:"fail-fast"`
	Index         bool   `mapstructure:"index"`
	MaxImageWidth int    `mapstructure:"max-image-width"`
	JPEGQuality   int    `mapstructure:"jpeg-quality"`
	Report        string `mapstructure:"report"`
	LogLevel      string `mapstructure:"log-level"`
	LogFormat     string `mapstructure:"log-format"`
	Verbose       bool   `mapstructure:"verbose"`
	NoColor       bool   `mapstructure:"no-color"`
	Strict        bool   `mapstructure:"strict"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the built-in default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyFailFast, false)
	v.SetDefault(KeyIndex, false)
	v.SetDefault(KeyMaxImageWidth, 0)
	v.SetDefault(KeyJPEGQuality, DefaultJPEGQuality)
	v.SetDefault(KeyReport, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFormat, DefaultLogFormat)
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyStrict, false)
}

// Load reads the config file into v and returns the validated settings.
// With an empty file, one2html.yaml is looked up in the working directory
// and in $HOME/.config/one2html; not finding it there is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize lower-cases enumerated values and trims the output path.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Output = strings.TrimSpace(c.Output)
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}

// Validate checks value ranges. Errors name the flag of the offending value.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid --%s %d: must be >= 0", KeyWorkers, c.Workers)
	}
	if c.MaxImageWidth < 0 {
		return fmt.Errorf("invalid --%s %d: must be >= 0", KeyMaxImageWidth, c.MaxImageWidth)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid --%s %d: must be between 1 and 100", KeyJPEGQuality, c.JPEGQuality)
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("invalid --%s %q: must be one of %s", KeyLogLevel, c.LogLevel, strings.Join(LogLevels, ", "))
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("invalid --%s %q: must be one of %s", KeyLogFormat, c.LogFormat, strings.Join(LogFormats, ", "))
	}
	return nil
}
