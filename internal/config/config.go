// Package config loads and validates revisor configuration from a YAML
// file, environment variables, and flag overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ErrInvalidConfig reports configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full revisor configuration.
type Config struct {
	AI       AIConfig       `mapstructure:"ai"`
	Sonar    SonarConfig    `mapstructure:"sonarqube"`
	Batching BatchingConfig `mapstructure:"batching"`
	Merge    MergeConfig    `mapstructure:"merge"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// AIConfig configures the AI reviewer capability.
type AIConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	APIKey         string  `mapstructure:"apiKey"`
	Model          string  `mapstructure:"model"`
	BaseURL        string  `mapstructure:"baseUrl"`
	MaxTokens      int     `mapstructure:"maxTokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	MaxRetries     int     `mapstructure:"maxRetries"`
}

// Available reports whether the AI capability can actually be used.
func (c AIConfig) Available() bool {
	return c.Enabled && c.APIKey != ""
}

// SonarConfig configures the static-analysis collaborator. An empty
// ServerURL means no server is configured.
type SonarConfig struct {
	ServerURL      string `mapstructure:"serverUrl"`
	Token          string `mapstructure:"token"`
	ProjectKey     string `mapstructure:"projectKey"`
	ScannerBin     string `mapstructure:"scannerBin"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// BatchingConfig bounds prompt construction and parallel dispatch.
type BatchingConfig struct {
	MaxTokensPerBatch   int     `mapstructure:"maxTokensPerBatch"`
	SafetyMargin        float64 `mapstructure:"safetyMargin"`
	MaxParallelRequests int     `mapstructure:"maxParallelRequests"`
}

// MergeConfig selects the deduplication behavior.
type MergeConfig struct {
	Strategy        string  `mapstructure:"strategy"`
	PreferSonarQube bool    `mapstructure:"preferSonarQube"`
	FuzzyThreshold  float64 `mapstructure:"fuzzyThreshold"`
}

// CacheConfig configures the analysis cache. A TTLSeconds of 0 means
// entries never expire; negative values are rejected by Validate.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir"`
	Backend    string `mapstructure:"backend"`
	TTLSeconds int    `mapstructure:"ttlSeconds"`
}

// Default returns the configuration with all defaults applied.
func Default() Config {
	return Config{
		AI: AIConfig{
			Enabled:        true,
			Model:          "gpt-4o-mini",
			MaxTokens:      4096,
			Temperature:    0.1,
			TimeoutSeconds: 120,
			MaxRetries:     2,
		},
		Sonar: SonarConfig{
			ScannerBin:     "sonar-scanner",
			TimeoutSeconds: 300,
		},
		Batching: BatchingConfig{
			MaxTokensPerBatch:   8000,
			SafetyMargin:        0.9,
			MaxParallelRequests: 3,
		},
		Merge: MergeConfig{
			Strategy:        "fuzzy",
			PreferSonarQube: true,
			FuzzyThreshold:  0.8,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Backend:    "fs",
			TTLSeconds: 86400,
		},
	}
}

// Load reads configuration from cfgFile (or .revisor.yaml in the current
// directory / $HOME), overlays REVISOR_* environment variables, and
// validates the result. A missing config file is not an error.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".revisor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	v.SetEnvPrefix("REVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	// Conventional fallback when no key is configured explicitly.
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate applies the post-decode checks: URL well-formedness and
// numeric bounds.
func (c Config) Validate() error {
	if c.Batching.MaxTokensPerBatch <= 0 {
		return fmt.Errorf("%w: batching.maxTokensPerBatch must be positive", ErrInvalidConfig)
	}
	if c.Batching.SafetyMargin <= 0 || c.Batching.SafetyMargin > 1 {
		return fmt.Errorf("%w: batching.safetyMargin must be in (0,1]", ErrInvalidConfig)
	}
	if c.Batching.MaxParallelRequests < 1 {
		return fmt.Errorf("%w: batching.maxParallelRequests must be at least 1", ErrInvalidConfig)
	}
	if c.Merge.FuzzyThreshold < 0 || c.Merge.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: merge.fuzzyThreshold must be in [0,1]", ErrInvalidConfig)
	}
	switch c.Merge.Strategy {
	case "exact", "location", "fuzzy":
	default:
		return fmt.Errorf("%w: merge.strategy must be exact, location, or fuzzy", ErrInvalidConfig)
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("%w: cache.ttlSeconds must not be negative", ErrInvalidConfig)
	}
	switch c.Cache.Backend {
	case "fs", "badger":
	default:
		return fmt.Errorf("%w: cache.backend must be fs or badger", ErrInvalidConfig)
	}
	if c.Sonar.ServerURL != "" {
		u, err := url.Parse(c.Sonar.ServerURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: sonarqube.serverUrl %q is not a valid URL", ErrInvalidConfig, c.Sonar.ServerURL)
		}
		if c.Sonar.ProjectKey == "" {
			return fmt.Errorf("%w: sonarqube.projectKey is required when a server is configured", ErrInvalidConfig)
		}
	}
	if c.Sonar.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: sonarqube.timeoutSeconds must be positive", ErrInvalidConfig)
	}
	return nil
}
