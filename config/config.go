// Package config loads the settings of the idlgen command from flags, environment variables
// and an optional configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ifabos/go-idlc/literal"
)

// EnvPrefix prefixes the environment variables read by Load, for example IDLGEN_OUTPUT_DIR
const EnvPrefix = "IDLGEN"

// Config holds the settings of one idlgen run
type Config struct {
	ModuleName  string   `mapstructure:"module_name"`
	OutputDir   string   `mapstructure:"output_dir"`
	Package     string   `mapstructure:"package"`
	IncludeDirs []string `mapstructure:"include_dirs"`
	Defines     []string `mapstructure:"defines"`
	Mappings    []string `mapstructure:"mappings"`
	References  []string `mapstructure:"references"`
	LegacyOctet bool     `mapstructure:"legacy_octet"`
	EmitSource  bool     `mapstructure:"emit_source"`
	LogLevel    string   `mapstructure:"log_level"`
}

// ConfigError reports an invalid setting
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// New returns a viper instance with the defaults and the environment binding of idlgen.
// Command line flags are bound to it by the caller.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("module_name", "")
	v.SetDefault("output_dir", ".")
	v.SetDefault("package", "")
	v.SetDefault("include_dirs", []string{})
	v.SetDefault("defines", []string{})
	v.SetDefault("mappings", []string{})
	v.SetDefault("references", []string{})
	v.SetDefault("legacy_octet", false)
	v.SetDefault("emit_source", true)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file, if any, and unmarshals the merged settings. An empty
// path searches for idlgen.{yaml,toml,json} in the working directory, then in the idlgen
// directory of the user configuration; a missing file found that way is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("idlgen")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "idlgen"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings that can't be defaulted
func (c *Config) Validate() error {
	if c.ModuleName == "" {
		return &ConfigError{Field: "module_name", Message: "a target module name is required"}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &ConfigError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// Mode returns the literal conversion mode selected by the configuration
func (c *Config) Mode() literal.Mode {
	if c.LegacyOctet {
		return literal.LegacyOctet
	}
	return literal.Strict
}

// Logger creates a text logger writing to w at the configured level
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// ParseLevel converts a level name such as "debug" or "WARN" to a slog level
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
