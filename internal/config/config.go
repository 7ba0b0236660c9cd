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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Provider  ProviderConfig  `yaml:"provider" mapstructure:"provider"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Ranker    RankerConfig    `yaml:"ranker" mapstructure:"ranker"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the evaluation store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// AnthropicConfig holds Anthropic API settings. An empty key disables the
// LLM ranking pass entirely.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ProviderConfig configures the site attribute provider.
type ProviderConfig struct {
	// Mode selects the mock provider behavior: "seeded" derives
	// deterministic pseudo-random attributes per parcel, "fixed" returns
	// the configured constants for every parcel.
	Mode string `yaml:"mode" mapstructure:"mode"`
	Seed int64  `yaml:"seed" mapstructure:"seed"`

	// Fixed-mode attribute values.
	ElevationM float64 `yaml:"elevation_m" mapstructure:"elevation_m"`
	FloodRisk  float64 `yaml:"flood_risk" mapstructure:"flood_risk"`
	PowerKM    float64 `yaml:"power_km" mapstructure:"power_km"`
	LatencyMS  float64 `yaml:"latency_ms" mapstructure:"latency_ms"`   // 0 = derive from centroid
	CostPerMW  float64 `yaml:"cost_per_mw" mapstructure:"cost_per_mw"` // 0 = unknown
}

// ScoringConfig holds component weights and band parameters for the
// scoring engine. Weights should sum to 100.
type ScoringConfig struct {
	ElevationWeight float64 `yaml:"elevation_weight" mapstructure:"elevation_weight"`
	FloodWeight     float64 `yaml:"flood_weight" mapstructure:"flood_weight"`
	PowerWeight     float64 `yaml:"power_weight" mapstructure:"power_weight"`
	LatencyWeight   float64 `yaml:"latency_weight" mapstructure:"latency_weight"`
	CostWeight      float64 `yaml:"cost_weight" mapstructure:"cost_weight"`

	// Elevation band: full credit between LowM and HighM, ramping to zero
	// at MinM and MaxM.
	ElevationMinM  float64 `yaml:"elevation_min_m" mapstructure:"elevation_min_m"`
	ElevationLowM  float64 `yaml:"elevation_low_m" mapstructure:"elevation_low_m"`
	ElevationHighM float64 `yaml:"elevation_high_m" mapstructure:"elevation_high_m"`
	ElevationMaxM  float64 `yaml:"elevation_max_m" mapstructure:"elevation_max_m"`

	// Power proximity: full credit at or under NearKM, zero at FarKM.
	PowerNearKM float64 `yaml:"power_near_km" mapstructure:"power_near_km"`
	PowerFarKM  float64 `yaml:"power_far_km" mapstructure:"power_far_km"`

	// Latency: full credit at or under GoodMS, zero at BadMS.
	LatencyGoodMS float64 `yaml:"latency_good_ms" mapstructure:"latency_good_ms"`
	LatencyBadMS  float64 `yaml:"latency_bad_ms" mapstructure:"latency_bad_ms"`

	// Cost ($k per MW-year): full credit at or under LowUSD, zero at HighUSD.
	CostLowUSD  float64 `yaml:"cost_low_usd" mapstructure:"cost_low_usd"`
	CostHighUSD float64 `yaml:"cost_high_usd" mapstructure:"cost_high_usd"`

	// FloodCapRisk: a parcel with flood risk at or above this value is
	// capped below the orange threshold, forcing a red tier.
	FloodCapRisk float64 `yaml:"flood_cap_risk" mapstructure:"flood_cap_risk"`
}

// RankerConfig configures the optional LLM justification pass.
type RankerConfig struct {
	MaxSites          int     `yaml:"max_sites" mapstructure:"max_sites"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// PipelineConfig configures evaluation behavior.
type PipelineConfig struct {
	MaxConcurrentParcels int `yaml:"max_concurrent_parcels" mapstructure:"max_concurrent_parcels"`
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
	v.SetEnvPrefix("SITESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "sitescout.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("provider.mode", "seeded")
	v.SetDefault("provider.seed", 1)
	v.SetDefault("scoring.elevation_weight", 20)
	v.SetDefault("scoring.flood_weight", 30)
	v.SetDefault("scoring.power_weight", 25)
	v.SetDefault("scoring.latency_weight", 15)
	v.SetDefault("scoring.cost_weight", 10)
	v.SetDefault("scoring.elevation_min_m", 5)
	v.SetDefault("scoring.elevation_low_m", 100)
	v.SetDefault("scoring.elevation_high_m", 1500)
	v.SetDefault("scoring.elevation_max_m", 3500)
	v.SetDefault("scoring.power_near_km", 5)
	v.SetDefault("scoring.power_far_km", 100)
	v.SetDefault("scoring.latency_good_ms", 10)
	v.SetDefault("scoring.latency_bad_ms", 80)
	v.SetDefault("scoring.cost_low_usd", 50)
	v.SetDefault("scoring.cost_high_usd", 150)
	v.SetDefault("scoring.flood_cap_risk", 0.8)
	v.SetDefault("ranker.max_sites", 5)
	v.SetDefault("ranker.requests_per_minute", 20)
	v.SetDefault("pipeline.max_concurrent_parcels", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
