// Package config loads server configuration from config files,
// environment variables, and flags via viper. Named profiles let one
// config file carry alternate setups (e.g. a local model endpoint)
// that overlay the base settings.
package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Workspace        string `mapstructure:"workspace"`
	SkillsDir        string `mapstructure:"skills_dir"`
	Engine           string `mapstructure:"engine"`
	Model            string `mapstructure:"model"`
	ArtDirectorModel string `mapstructure:"art_director_model"`
	MaxTokens        int    `mapstructure:"max_tokens"`
	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`

	Tracing TracingConfig `mapstructure:"tracing"`

	// Profile selects one of Profiles to overlay on the base settings.
	Profile  string                    `mapstructure:"profile"`
	Profiles map[string]map[string]any `mapstructure:"profiles"`
}

// TracingConfig controls OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SamplerType  string  `mapstructure:"sampler_type"`
	SamplerRatio float64 `mapstructure:"sampler_ratio"`
}

// SetDefaults installs the default values on a viper instance. Called
// before flags and config files are bound so anything can override them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 8000)
	v.SetDefault("workspace", "workspace")
	v.SetDefault("skills_dir", "skills")
	v.SetDefault("engine", "anthropic")
	v.SetDefault("max_tokens", 8192)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler_type", "ratio")
	v.SetDefault("tracing.sampler_ratio", 0.1)
}

// Load unmarshals the configuration and applies the selected profile.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshalling configuration")
	}
	if err := cfg.applyProfile(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyProfile overlays the selected profile's keys onto the base
// configuration. Unknown profile names are an error; an empty profile
// is a no-op.
func (c *Config) applyProfile() error {
	if c.Profile == "" {
		return nil
	}
	overlay, ok := c.Profiles[c.Profile]
	if !ok {
		return errors.Errorf("unknown profile %q", c.Profile)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "building profile decoder")
	}
	if err := decoder.Decode(overlay); err != nil {
		return errors.Wrapf(err, "applying profile %q", c.Profile)
	}
	return nil
}

// Validate checks the settings that would otherwise fail at bind time.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxTokens < 1 {
		return errors.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}
