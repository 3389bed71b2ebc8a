// Package config loads the learning-core configuration. Values come from an
// optional YAML file plus PAGELENS_-prefixed environment variables; every
// knob has a default so a zero-config embed works.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config aggregates configuration for all core components
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Failure   FailureConfig   `mapstructure:"failure"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Transfer  TransferConfig  `mapstructure:"transfer"`
	Forms     FormsConfig     `mapstructure:"forms"`
}

// StoreConfig configures the persistent store
type StoreConfig struct {
	PatternPath string        `mapstructure:"pattern_path"`
	SessionPath string        `mapstructure:"session_path"`
	Debounce    time.Duration `mapstructure:"debounce"`
}

// RegistryConfig configures the pattern registry
type RegistryConfig struct {
	ArchiveAfter        time.Duration `mapstructure:"archive_after"`
	ConfidenceFloor     float64       `mapstructure:"confidence_floor"`
	ConfidenceEpsilon   float64       `mapstructure:"confidence_epsilon"`
	RecentFailureWindow int           `mapstructure:"recent_failure_window"`
}

// FailureConfig configures the failure learner
type FailureConfig struct {
	AntiPatternThreshold int           `mapstructure:"anti_pattern_threshold"`
	AntiPatternTTL       time.Duration `mapstructure:"anti_pattern_ttl"`
	MaxRetries           int           `mapstructure:"max_retries"`
	MaxBackoff           time.Duration `mapstructure:"max_backoff"`
}

// DiscoveryConfig configures the documentation discovery orchestrator
type DiscoveryConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheSize     int           `mapstructure:"cache_size"`
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
}

// TransferConfig configures cross-site pattern transfer
type TransferConfig struct {
	MinSimilarity   float64 `mapstructure:"min_similarity"`
	ConfidenceDecay float64 `mapstructure:"confidence_decay"`
	MaxCandidates   int     `mapstructure:"max_candidates"`
}

// FormsConfig configures the form submission learner
type FormsConfig struct {
	SubmitTimeout time.Duration `mapstructure:"submit_timeout"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
}

// Load reads configuration from the optional file at path (empty means
// defaults plus environment only).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAGELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// Default returns the built-in configuration
func Default() *Config {
	cfg, _ := Load("")
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.pattern_path", "data/patterns.json")
	v.SetDefault("store.session_path", "data/session.json")
	v.SetDefault("store.debounce", 500*time.Millisecond)

	v.SetDefault("registry.archive_after", 30*24*time.Hour)
	v.SetDefault("registry.confidence_floor", 0.1)
	v.SetDefault("registry.confidence_epsilon", 0.05)
	v.SetDefault("registry.recent_failure_window", 10)

	v.SetDefault("failure.anti_pattern_threshold", 3)
	v.SetDefault("failure.anti_pattern_ttl", 24*time.Hour)
	v.SetDefault("failure.max_retries", 3)
	v.SetDefault("failure.max_backoff", 60*time.Second)

	v.SetDefault("discovery.cache_ttl", time.Hour)
	v.SetDefault("discovery.cache_size", 256)
	v.SetDefault("discovery.source_timeout", 30*time.Second)

	v.SetDefault("transfer.min_similarity", 0.3)
	v.SetDefault("transfer.confidence_decay", 0.5)
	v.SetDefault("transfer.max_candidates", 3)

	v.SetDefault("forms.submit_timeout", 30*time.Second)
	v.SetDefault("forms.max_backoff", 60*time.Second)
}
