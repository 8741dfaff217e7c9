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
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Safety     SafetyConfig     `yaml:"safety" mapstructure:"safety"`
	Planner    PlannerConfig    `yaml:"planner" mapstructure:"planner"`
	Images     ImagesConfig     `yaml:"images" mapstructure:"images"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. The three model slots map to
// the tiers the pipeline routes between: haiku for cheap classification and
// title work, sonnet for drafting and review, opus reserved for pillar drafts.
type AnthropicConfig struct {
	Key                 string  `yaml:"key" mapstructure:"key"`
	HaikuModel          string  `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel         string  `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	OpusModel           string  `yaml:"opus_model" mapstructure:"opus_model"`
	MaxBatchSize        int     `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	NoBatch             bool    `yaml:"no_batch" mapstructure:"no_batch"`
	SmallBatchThreshold int     `yaml:"small_batch_threshold" mapstructure:"small_batch_threshold"`
	RequestsPerSecond   float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Unsplash  UnsplashPricing         `yaml:"unsplash" mapstructure:"unsplash"`
	Dalle     DallePricing            `yaml:"dalle" mapstructure:"dalle"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// UnsplashPricing holds Unsplash cost accounting (free tier, kept for
// completeness in cost reports).
type UnsplashPricing struct {
	PerDownload float64 `yaml:"per_download" mapstructure:"per_download"`
}

// DallePricing holds image generation pricing.
type DallePricing struct {
	PerImage float64 `yaml:"per_image" mapstructure:"per_image"`
}

// PipelineConfig configures generation behavior. StyleProfilePath points to
// an optional YAML voice profile; empty means the built-in house voice.
type PipelineConfig struct {
	MaxRewriteAttempts   int     `yaml:"max_rewrite_attempts" mapstructure:"max_rewrite_attempts"`
	PassingScore         int     `yaml:"passing_score" mapstructure:"passing_score"`
	StageTimeoutSecs     int     `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	DailyBudgetUSD       float64 `yaml:"daily_budget_usd" mapstructure:"daily_budget_usd"`
	PublishOnReviewFail  bool    `yaml:"publish_on_review_fail" mapstructure:"publish_on_review_fail"`
	StyleProfilePath     string  `yaml:"style_profile_path" mapstructure:"style_profile_path"`
}

// SafetyConfig configures the two-phase content safety gate.
type SafetyConfig struct {
	TaxonomyPath     string `yaml:"taxonomy_path" mapstructure:"taxonomy_path"`
	ContentCheckChars int   `yaml:"content_check_chars" mapstructure:"content_check_chars"`
	Disabled         bool   `yaml:"disabled" mapstructure:"disabled"`
}

// PlannerConfig configures the daily planning mix.
type PlannerConfig struct {
	DailyHowTo      int `yaml:"daily_how_to" mapstructure:"daily_how_to"`
	DailyPillar     int `yaml:"daily_pillar" mapstructure:"daily_pillar"`
	DailyComparison int `yaml:"daily_comparison" mapstructure:"daily_comparison"`
	TitleBatchSize  int `yaml:"title_batch_size" mapstructure:"title_batch_size"`
}

// ImagesConfig configures hero image curation.
type ImagesConfig struct {
	UnsplashKey       string `yaml:"unsplash_key" mapstructure:"unsplash_key"`
	OpenAIKey         string `yaml:"openai_key" mapstructure:"openai_key"`
	MaxDailyGenerated int    `yaml:"max_daily_generated" mapstructure:"max_daily_generated"`
	Disabled          bool   `yaml:"disabled" mapstructure:"disabled"`
}

// NotionConfig holds Notion API credentials for editorial escalation.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// MonitoringConfig configures the health checker and alerting.
type MonitoringConfig struct {
	WebhookURL        string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackHours     int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	IntervalMins      int     `yaml:"interval_mins" mapstructure:"interval_mins"`
	FailureRateAlert  float64 `yaml:"failure_rate_alert" mapstructure:"failure_rate_alert"`
	DailySpendAlert   float64 `yaml:"daily_spend_alert" mapstructure:"daily_spend_alert"`
}

// ResilienceConfig tunes retry and circuit breaking for outbound model
// calls. The defaults assume long single requests per stage rather than
// chatty small calls: few attempts, seconds-scale backoff.
type ResilienceConfig struct {
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterFraction    float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	BreakerFailures   int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ServerConfig configures the status HTTP server.
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
	v.SetEnvPrefix("CONTENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "content.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.opus_model", "claude-opus-4-6")
	v.SetDefault("anthropic.max_batch_size", 100)
	v.SetDefault("anthropic.small_batch_threshold", 3)
	v.SetDefault("anthropic.requests_per_second", 3)
	v.SetDefault("pipeline.max_rewrite_attempts", 2)
	v.SetDefault("pipeline.passing_score", 80)
	v.SetDefault("pipeline.stage_timeout_secs", 300)
	v.SetDefault("pipeline.daily_budget_usd", 25.0)
	v.SetDefault("pipeline.publish_on_review_fail", false)
	v.SetDefault("safety.content_check_chars", 8000)
	v.SetDefault("planner.daily_how_to", 8)
	v.SetDefault("planner.daily_pillar", 1)
	v.SetDefault("planner.daily_comparison", 1)
	v.SetDefault("planner.title_batch_size", 25)
	v.SetDefault("images.max_daily_generated", 10)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.interval_mins", 30)
	v.SetDefault("monitoring.failure_rate_alert", 0.5)
	v.SetDefault("monitoring.daily_spend_alert", 20.0)
	v.SetDefault("resilience.max_attempts", 4)
	v.SetDefault("resilience.initial_backoff_ms", 2000)
	v.SetDefault("resilience.max_backoff_ms", 20000)
	v.SetDefault("resilience.backoff_multiplier", 2.0)
	v.SetDefault("resilience.jitter_fraction", 0.2)
	v.SetDefault("resilience.breaker_failures", 4)
	v.SetDefault("resilience.breaker_reset_secs", 45)
	v.SetDefault("pricing.unsplash.per_download", 0)
	v.SetDefault("pricing.dalle.per_image", 0.04)

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
