// Package config loads the service configuration from defaults, an optional
// YAML file and OCI_GENAI_* environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/n0madic/go-ocigenai/internal/upstream"
)

// EnvPrefix is the prefix of environment overrides, e.g. OCI_GENAI_REGION.
const EnvPrefix = "OCI_GENAI"

// Config holds all service configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// AccessToken or TokenFile supply the bearer token for the backend.
	AccessToken string `mapstructure:"access_token"`
	TokenFile   string `mapstructure:"token_file"`

	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	CompartmentID string `mapstructure:"compartment_id"`

	// AuthToken, when set, is required from HTTP clients as a bearer token.
	AuthToken string `mapstructure:"auth_token"`

	Model            string `mapstructure:"model"`
	EndpointID       string `mapstructure:"endpoint_id"`
	CapabilitiesFile string `mapstructure:"capabilities_file"`

	Verbose bool `mapstructure:"verbose"`
	Debug   bool `mapstructure:"debug"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:   "127.0.0.1",
		Port:   8000,
		Region: "us-chicago-1",
		Model:  "meta.llama-3.3-70b-instruct",
	}
}

// Load reads the configuration. An empty path searches ./ocigenai.yaml and
// the user config directory; a missing file is not an error in that case.
func Load(path string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ocigenai")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ocigenai"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so that environment overrides are seen by
// Unmarshal even when no file sets them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("access_token", cfg.AccessToken)
	v.SetDefault("token_file", cfg.TokenFile)
	v.SetDefault("region", cfg.Region)
	v.SetDefault("endpoint", cfg.Endpoint)
	v.SetDefault("compartment_id", cfg.CompartmentID)
	v.SetDefault("auth_token", cfg.AuthToken)
	v.SetDefault("model", cfg.Model)
	v.SetDefault("endpoint_id", cfg.EndpointID)
	v.SetDefault("capabilities_file", cfg.CapabilitiesFile)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("debug", cfg.Debug)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.Endpoint) == "" && strings.TrimSpace(c.Region) == "" {
		return fmt.Errorf("config: region or endpoint is required")
	}
	return nil
}

// BaseURL returns the backend endpoint: Endpoint when set, otherwise the
// public endpoint of Region.
func (c *Config) BaseURL() string {
	if e := strings.TrimSpace(c.Endpoint); e != "" {
		return strings.TrimRight(e, "/")
	}
	return upstream.EndpointForRegion(c.Region)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
