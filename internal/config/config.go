package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Apollo     ApolloConfig     `yaml:"apollo" mapstructure:"apollo"`
	ContactOut ContactOutConfig `yaml:"contactout" mapstructure:"contactout"`
	ScrapIn    ScrapInConfig    `yaml:"scrapin" mapstructure:"scrapin"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ApolloConfig holds profile-search provider settings.
type ApolloConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// ContactOutConfig holds contact-enrichment provider settings.
type ContactOutConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// DelayMs is the mandatory pause between consecutive calls. The
	// provider enforces a hard per-minute quota, so enrichment is
	// sequential by design.
	DelayMs int `yaml:"delay_ms" mapstructure:"delay_ms"`
}

// ScrapInConfig holds profile-scrape provider settings.
type ScrapInConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	ParseModel string `yaml:"parse_model" mapstructure:"parse_model"`
	ScoreModel string `yaml:"score_model" mapstructure:"score_model"`
}

// PipelineConfig configures stage batching and concurrency.
type PipelineConfig struct {
	MaxCandidates    int    `yaml:"max_candidates" mapstructure:"max_candidates"`
	MaxSearchRetries int    `yaml:"max_search_retries" mapstructure:"max_search_retries"`
	ScrapeBatchSize  int    `yaml:"scrape_batch_size" mapstructure:"scrape_batch_size"`
	ParseBatchSize   int    `yaml:"parse_batch_size" mapstructure:"parse_batch_size"`
	SaveBatchSize    int    `yaml:"save_batch_size" mapstructure:"save_batch_size"`
	ScoreBatchSize   int    `yaml:"score_batch_size" mapstructure:"score_batch_size"`
	ScoreConcurrency int    `yaml:"score_concurrency" mapstructure:"score_concurrency"`
	ParseConcurrency int    `yaml:"parse_concurrency" mapstructure:"parse_concurrency"`
	RubricPath       string `yaml:"rubric_path" mapstructure:"rubric_path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("SOURCING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sourcing.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("apollo.base_url", "https://api.apollo.io/api/v1")
	v.SetDefault("apollo.page_size", 100)
	v.SetDefault("contactout.base_url", "https://api.contactout.com/v1")
	v.SetDefault("contactout.delay_ms", 1100)
	v.SetDefault("scrapin.base_url", "https://api.scrapin.io")
	v.SetDefault("anthropic.parse_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.score_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("pipeline.max_candidates", 50)
	v.SetDefault("pipeline.max_search_retries", 3)
	v.SetDefault("pipeline.scrape_batch_size", 20)
	v.SetDefault("pipeline.parse_batch_size", 10)
	v.SetDefault("pipeline.save_batch_size", 20)
	v.SetDefault("pipeline.score_batch_size", 20)
	v.SetDefault("pipeline.score_concurrency", 5)
	v.SetDefault("pipeline.parse_concurrency", 5)

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

	return &cfg, nil
}

// Validate checks that required provider credentials are present. A missing
// credential is a configuration error: fatal and non-retryable.
func (c *Config) Validate() error {
	if c.Apollo.Key == "" {
		return eris.New("config: apollo.key is required")
	}
	if c.ContactOut.Key == "" {
		return eris.New("config: contactout.key is required")
	}
	if c.ScrapIn.Key == "" {
		return eris.New("config: scrapin.key is required")
	}
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required")
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
