// Package config loads application configuration from an optional config.yaml
// plus HAND_-prefixed environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/irc-geo/hand-cli/internal/hand"
)

// Config holds the full application configuration.
type Config struct {
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Sampler SamplerConfig `yaml:"sampler" mapstructure:"sampler"`
	Bands   hand.Bands    `yaml:"bands" mapstructure:"bands"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GeocodeConfig configures the address resolution stage.
type GeocodeConfig struct {
	Provider       string  `yaml:"provider" mapstructure:"provider"`
	GoogleAPIKey   string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	GoogleRegion   string  `yaml:"google_region" mapstructure:"google_region"`
	GoogleLanguage string  `yaml:"google_language" mapstructure:"google_language"`
	NominatimURL   string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Concurrency    int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	FatalThreshold int     `yaml:"fatal_threshold" mapstructure:"fatal_threshold"`
}

// SamplerConfig configures the raster sampling stage.
type SamplerConfig struct {
	Project         string `yaml:"project" mapstructure:"project"`
	Asset           string `yaml:"asset" mapstructure:"asset"`
	Band            string `yaml:"band" mapstructure:"band"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	BatchSize       int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency     int    `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key gets one, even if empty: viper only unmarshals
	// keys it knows about, so an env-only value for an unregistered key
	// would be dropped.
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.google_region", "br")
	v.SetDefault("geocode.google_language", "pt-BR")
	v.SetDefault("geocode.nominatim_url", "")
	v.SetDefault("geocode.user_agent", "")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.timeout_secs", 15)
	v.SetDefault("geocode.concurrency", 8)
	v.SetDefault("geocode.max_attempts", 3)
	v.SetDefault("geocode.fatal_threshold", 5)
	v.SetDefault("sampler.project", "")
	v.SetDefault("sampler.asset", "users/gena/GlobalHAND/30m/hand-1000")
	v.SetDefault("sampler.band", "b1")
	v.SetDefault("sampler.base_url", "")
	v.SetDefault("sampler.credentials_file", "")
	v.SetDefault("sampler.batch_size", 500)
	v.SetDefault("sampler.concurrency", 4)
	v.SetDefault("sampler.max_attempts", 3)
	v.SetDefault("sampler.timeout_secs", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// An absent bands section means the built-in table, not an empty one.
	if len(cfg.Bands.Ranges) == 0 {
		cfg.Bands = hand.Default()
	} else if cfg.Bands.Unknown == "" {
		cfg.Bands.Unknown = hand.Default().Unknown
	}

	return &cfg, nil
}

// Validate checks the constraints a run depends on. Geocoder credentials are
// only required for the Google provider; Nominatim needs none.
func (c *Config) Validate() error {
	var problems []string

	switch c.Geocode.Provider {
	case "google":
		if c.Geocode.GoogleAPIKey == "" {
			problems = append(problems, "geocode.google_api_key is required for the google provider")
		}
	case "nominatim", "":
	default:
		problems = append(problems, "geocode.provider must be google or nominatim")
	}
	if c.Geocode.RateLimit < 0 {
		problems = append(problems, "geocode.rate_limit must be >= 0")
	}
	if c.Geocode.Concurrency < 1 || c.Geocode.Concurrency > 64 {
		problems = append(problems, "geocode.concurrency must be between 1 and 64")
	}
	if c.Sampler.Project == "" {
		problems = append(problems, "sampler.project is required")
	}
	if c.Sampler.BatchSize < 1 {
		problems = append(problems, "sampler.batch_size must be >= 1")
	}
	if err := c.Bands.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
