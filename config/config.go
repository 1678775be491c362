// Package config loads the settings of the cosimulation host.
//
// Values are resolved in increasing priority: built-in defaults, an optional
// YAML file, an optional .env file, and COSIM_ environment variables.
package config

import (
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "COSIM_"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Logging   Logging   `yaml:"logging" envPrefix:"LOGGING_"`
	Recording Recording `yaml:"recording" envPrefix:"RECORDING_"`
	Monitor   Monitor   `yaml:"monitor" envPrefix:"MONITOR_"`

	// Devices lists the device modules to register. Empty means all of the
	// built-in modules.
	Devices []string `yaml:"devices" env:"DEVICES" envSeparator:","`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// Recording configures the SQLite trace of port traffic.
type Recording struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH"`
}

// Monitor configures the HTTP monitoring server.
type Monitor struct {
	Enabled     bool `yaml:"enabled" env:"ENABLED"`
	Port        int  `yaml:"port" env:"PORT"`
	OpenBrowser bool `yaml:"open_browser" env:"OPEN_BROWSER"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads the YAML file at path, then the .env file in the working
// directory, then the environment. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	return LoadFiles(path, ".env")
}

// LoadFiles is like Load but reads dotenvPath instead of ./.env. Missing
// .env files are ignored; a missing YAML file is an error.
func LoadFiles(path, dotenvPath string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}

	if dotenvPath != "" {
		err := godotenv.Load(dotenvPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "loading %s", dotenvPath)
		}
	}

	err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return nil, errors.Wrap(err, "parsing environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every field holds a supported value.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Wrapf(ErrInvalid, "logging level %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return errors.Wrapf(ErrInvalid, "logging format %q", c.Logging.Format)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	default:
		return errors.Wrapf(ErrInvalid, "logging output %q", c.Logging.Output)
	}

	if c.Monitor.Port < 0 || c.Monitor.Port > 65535 {
		return errors.Wrapf(ErrInvalid, "monitor port %d", c.Monitor.Port)
	}

	return nil
}

// WantsDevice reports whether the device module called name should be
// registered.
func (c *Config) WantsDevice(name string) bool {
	if len(c.Devices) == 0 {
		return true
	}

	for _, d := range c.Devices {
		if strings.EqualFold(strings.TrimSpace(d), name) {
			return true
		}
	}

	return false
}
