// Package config loads and validates the recommendation backend's
// configuration from defaults, an optional YAML file, and environment
// variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration tree.
type Config struct {
	App       AppConfig       `koanf:"app"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	SSS       SSSConfig       `koanf:"sss"`
	Bus       BusConfig       `koanf:"bus"`
	Database  DatabaseConfig  `koanf:"database"`
	Feature   FeatureConfig   `koanf:"feature"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	Optimizer OptimizerConfig `koanf:"optimizer"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	PredictGW PredictGWConfig `koanf:"predictgw"`
	NarrateGW NarrateGWConfig `koanf:"narrategw"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Events    EventsConfig    `koanf:"events"`
}

// AppConfig holds general application identity.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// HTTPConfig configures the gateway's HTTP surface (IH + RH + lookups).
type HTTPConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORS            CORSConfig    `koanf:"cors"`
}

// CORSConfig configures cross-origin access to the HTTP surface.
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	ExposedHeaders   []string `koanf:"exposed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig configures the slog-based logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus collector registry.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures the OpenTelemetry tracer provider.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// SSSConfig configures the Shared State Store (Redis-backed).
type SSSConfig struct {
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
	PoolSize  int    `koanf:"pool_size"`

	// TTLs, in seconds, as named by the external configuration contract.
	ScoreCacheTTL          int `koanf:"score_cache_ttl"`
	PredictionCacheTTL     int `koanf:"prediction_cache_ttl"`
	SessionCacheTTL        int `koanf:"session_cache_ttl"`
	FeatureCacheTTL        int `koanf:"feature_cache_ttl"`
	RecommendationCacheTTL int `koanf:"recommendation_cache_ttl"`
}

// Address returns the SSS network address.
func (s SSSConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s SSSConfig) ScoreTTL() time.Duration          { return time.Duration(s.ScoreCacheTTL) * time.Second }
func (s SSSConfig) PredictionTTL() time.Duration     { return time.Duration(s.PredictionCacheTTL) * time.Second }
func (s SSSConfig) SessionTTL() time.Duration        { return time.Duration(s.SessionCacheTTL) * time.Second }
func (s SSSConfig) FeatureTTL() time.Duration        { return time.Duration(s.FeatureCacheTTL) * time.Second }
func (s SSSConfig) RecommendationTTL() time.Duration {
	return time.Duration(s.RecommendationCacheTTL) * time.Second
}

// BusConfig configures the Message Bus (Kafka-backed).
type BusConfig struct {
	Brokers  string `koanf:"brokers"` // comma-separated list
	ClientID string `koanf:"client_id"`
	GroupID  string `koanf:"group_id"`
	Workers  int    `koanf:"workers"` // consumer goroutines per topic
}

// BrokerList splits the comma-separated Brokers string.
func (b BusConfig) BrokerList() []string {
	raw := strings.Split(b.Brokers, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Message Bus topic names (fixed by the external contract, not env-configurable).
const (
	TopicStationTelemetry  = "station.telemetry"
	TopicStationHealth     = "station.health"
	TopicGridStatus        = "grid.status"
	TopicUserContext       = "user.context"
	TopicStationFeatures   = "station.features"
	TopicStationScores     = "station.scores"
	TopicStationPredictions = "station.predictions"
	TopicRecommendations   = "recommendations"
)

// DatabaseConfig configures the Durable Repository (Postgres).
type DatabaseConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Database        string        `koanf:"database"`
	Username        string        `koanf:"username"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	MigrationsPath  string        `koanf:"migrations_path"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the libpq connection string for the configured database.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.Username, d.Password, d.Database, d.SSLMode,
	)
}

// FeatureConfig holds the normalization references used by the
// Feature Engineer to map raw telemetry into [0,1] feature scores.
type FeatureConfig struct {
	WaitTimeCeilingMinutes float64       `koanf:"wait_time_ceiling_minutes"` // effectiveWaitTime mapping to 0
	NominalDistanceKm      float64       `koanf:"nominal_distance_km"`       // placeholder distance used before a user location is known
	CacheTTL               time.Duration `koanf:"cache_ttl"`
}

// ScoringConfig holds the component weights used by the Scorer.
type ScoringConfig struct {
	WeightWaitTime        float64 `koanf:"weight_wait_time"`
	WeightAvailability    float64 `koanf:"weight_availability"`
	WeightReliability     float64 `koanf:"weight_reliability"`
	WeightDistance        float64 `koanf:"weight_distance"`
	WeightEnergyStability float64 `koanf:"weight_energy_stability"`
}

// WeightSum returns the sum of all configured weights.
func (s ScoringConfig) WeightSum() float64 {
	return s.WeightWaitTime + s.WeightAvailability + s.WeightReliability +
		s.WeightDistance + s.WeightEnergyStability
}

// OptimizerConfig holds the Optimizer's feasibility thresholds, distance
// decay reference, and preference re-weighting boosts.
type OptimizerConfig struct {
	CandidateMultiplier   int           `koanf:"candidate_multiplier"`     // candidates fetched = multiplier * requested limit
	MinHealthScore        float64       `koanf:"min_health_score"`         // stations below this healthScore are infeasible
	MaxFaultProbability   float64       `koanf:"max_fault_probability"`    // stations above this predicted fault risk are infeasible
	MinAvailabilityRatio  float64       `koanf:"min_availability_ratio"`   // minimum chargerAvailabilityRatio to remain feasible
	DefaultMaxDistanceKm  float64       `koanf:"default_max_distance_km"`  // distance-decay reference when the request omits maxDistance
	PreferenceBoost       float64       `koanf:"preference_boost"`        // multiplicative boost applied to a matched preference
	NearbyThresholdKm     float64       `koanf:"nearby_threshold_km"`      // distance under which "nearby" preference applies
	ReliableFaultCeiling  float64       `koanf:"reliable_fault_ceiling"`   // fault probability under which "reliability" preference applies
	ColdStartScore        float64       `koanf:"cold_start_score"`         // baseScore assigned to cold-start stations with no ranking entry
	CacheTTL              time.Duration `koanf:"cache_ttl"`
}

// BreakerConfig configures the Prediction Gateway's per-model circuit breaker.
type BreakerConfig struct {
	Threshold int `koanf:"threshold"`  // the breaker trips when failures within the window exceed this
	TimeoutMs int `koanf:"timeout_ms"` // cool-down duration, milliseconds
	WindowSec int `koanf:"window_sec"` // sliding failure-count window, seconds
}

func (b BreakerConfig) CoolDown() time.Duration { return time.Duration(b.TimeoutMs) * time.Millisecond }
func (b BreakerConfig) Window() time.Duration   { return time.Duration(b.WindowSec) * time.Second }

// PredictGWConfig configures the Prediction Gateway's external model caller.
type PredictGWConfig struct {
	ModelServiceURL string        `koanf:"model_service_url"`
	CallTimeout     time.Duration `koanf:"call_timeout"`
}

// NarrateGWConfig configures the Narration Gateway's LLM caller.
type NarrateGWConfig struct {
	LLMAPIKey   string        `koanf:"llm_api_key"` // empty disables the LLM call
	LLMEndpoint string        `koanf:"llm_endpoint"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	CallTimeout time.Duration `koanf:"call_timeout"`
}

// RateLimitConfig configures the gateway's request limiter.
type RateLimitConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Requests        int           `koanf:"requests"`
	Window          time.Duration `koanf:"window"`
	Strategy        string        `koanf:"strategy"`
	Backend         string        `koanf:"backend"`
	BurstSize       int           `koanf:"burst_size"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	RedisAddr       string        `koanf:"redis_addr"`
}

// EventsConfig configures the buffered system_events recorder.
type EventsConfig struct {
	Enabled     bool          `koanf:"enabled"`
	BufferSize  int           `koanf:"buffer_size"`
	FlushPeriod time.Duration `koanf:"flush_period"`
	BatchSize   int           `koanf:"batch_size"`
}

// Validate checks structural invariants of a loaded configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Sprintf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	s := c.Scoring
	if s.WeightWaitTime < 0 || s.WeightAvailability < 0 || s.WeightReliability < 0 ||
		s.WeightDistance < 0 || s.WeightEnergyStability < 0 {
		errs = append(errs, "scoring weights must be non-negative")
	}

	if c.Breaker.Threshold <= 0 {
		errs = append(errs, "breaker.threshold must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is configured for development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is configured for production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
