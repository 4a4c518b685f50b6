package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const configEnvVar = "CONFIG_PATH"

// envKeyMap maps the bare environment variable names fixed by the
// external configuration contract (spec §6) onto dotted koanf keys.
// Unlike a generic prefix-strip transform, this system's env vars are
// not namespaced, so every supported variable is listed explicitly;
// anything absent from this map is ignored by loadEnv.
var envKeyMap = map[string]string{
	"API_PORT": "http.port",
	"LOG_LEVEL": "log.level",

	"MB_BROKERS":   "bus.brokers",
	"MB_CLIENT_ID": "bus.client_id",
	"MB_GROUP_ID":  "bus.group_id",

	"SSS_HOST":                    "sss.host",
	"SSS_PORT":                    "sss.port",
	"SSS_PASSWORD":                "sss.password",
	"SSS_DB":                      "sss.db",
	"SSS_KEY_PREFIX":              "sss.key_prefix",
	"SCORE_CACHE_TTL":             "sss.score_cache_ttl",
	"PREDICTION_CACHE_TTL":        "sss.prediction_cache_ttl",
	"SESSION_CACHE_TTL":           "sss.session_cache_ttl",
	"FEATURE_CACHE_TTL":           "sss.feature_cache_ttl",
	"RECOMMENDATION_CACHE_TTL":    "sss.recommendation_cache_ttl",

	"DR_HOST":     "database.host",
	"DR_PORT":     "database.port",
	"DR_USER":     "database.username",
	"DR_PASSWORD": "database.password",
	"DR_DATABASE": "database.database",
	"DR_SSL_MODE": "database.ssl_mode",

	"WEIGHT_WAIT_TIME":        "scoring.weight_wait_time",
	"WEIGHT_AVAILABILITY":     "scoring.weight_availability",
	"WEIGHT_RELIABILITY":      "scoring.weight_reliability",
	"WEIGHT_DISTANCE":         "scoring.weight_distance",
	"WEIGHT_ENERGY_STABILITY": "scoring.weight_energy_stability",

	"CIRCUIT_BREAKER_THRESHOLD": "breaker.threshold",
	"CIRCUIT_BREAKER_TIMEOUT":   "breaker.timeout_ms",

	"MODEL_SERVICE_URL": "predictgw.model_service_url",

	"LLM_API_KEY":  "narrategw.llm_api_key",
	"LLM_ENDPOINT": "narrategw.llm_endpoint",
}

// Loader assembles configuration from defaults, an optional file, and
// environment variables.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/evchargenet/config.yaml",
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the search paths for an optional YAML config file.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// Load loads configuration with precedence:
// 1. Defaults (lowest)
// 2. Config file (YAML, optional)
// 3. Environment variables (highest)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	decoderConfig := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig,
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults seeds default values for every configuration key.
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		"app.name":        "evchargenet-gateway",
		"app.version":     "1.0.0",
		"app.environment": "development",
		"app.debug":       false,

		"http.port":                   3000,
		"http.read_timeout":           30 * time.Second,
		"http.write_timeout":          30 * time.Second,
		"http.shutdown_timeout":       10 * time.Second,
		"http.cors.enabled":           true,
		"http.cors.allowed_origins":   []string{"*"},
		"http.cors.allowed_methods":   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"http.cors.allowed_headers":   []string{"*"},
		"http.cors.exposed_headers":   []string{"X-Request-Id"},
		"http.cors.allow_credentials": false,
		"http.cors.max_age":           86400,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "evchargenet",
		"metrics.subsystem": "",

		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "evchargenet-gateway",
		"tracing.sample_rate":  0.1,

		"sss.host":                      "localhost",
		"sss.port":                      6379,
		"sss.password":                  "",
		"sss.db":                        0,
		"sss.key_prefix":                "evc",
		"sss.pool_size":                 10,
		"sss.score_cache_ttl":           30,
		"sss.prediction_cache_ttl":      60,
		"sss.session_cache_ttl":         3600,
		"sss.feature_cache_ttl":         30,
		"sss.recommendation_cache_ttl":  300,

		"bus.brokers":   "localhost:9092",
		"bus.client_id": "evchargenet",
		"bus.group_id":  "evchargenet-pipeline",
		"bus.workers":   4,

		"database.host":               "localhost",
		"database.port":               5432,
		"database.database":           "evchargenet",
		"database.username":           "postgres",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  5 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.migrations_path":    "migrations",
		"database.auto_migrate":       true,

		"feature.wait_time_ceiling_minutes": 60.0,
		"feature.nominal_distance_km":       50.0,
		"feature.cache_ttl":                 30 * time.Second,

		"scoring.weight_wait_time":        0.25,
		"scoring.weight_availability":     0.20,
		"scoring.weight_reliability":      0.20,
		"scoring.weight_distance":         0.20,
		"scoring.weight_energy_stability": 0.15,

		"optimizer.candidate_multiplier":   3,
		"optimizer.min_health_score":       50.0,
		"optimizer.max_fault_probability":  0.3,
		"optimizer.min_availability_ratio": 0.1,
		"optimizer.default_max_distance_km": 50.0,
		"optimizer.preference_boost":       1.2,
		"optimizer.nearby_threshold_km":    5.0,
		"optimizer.reliable_fault_ceiling": 0.1,
		"optimizer.cold_start_score":       0.5,
		"optimizer.cache_ttl":              30 * time.Second,

		"breaker.threshold":  5,
		"breaker.timeout_ms": 30000,
		"breaker.window_sec": 30,

		"predictgw.model_service_url": "http://localhost:8100",
		"predictgw.call_timeout":      2 * time.Second,

		"narrategw.llm_api_key":  "",
		"narrategw.llm_endpoint": "http://localhost:8200",
		"narrategw.temperature":  0.7,
		"narrategw.max_tokens":   256,
		"narrategw.call_timeout": 3 * time.Second,

		"rate_limit.enabled":          true,
		"rate_limit.requests":         100,
		"rate_limit.window":           time.Minute,
		"rate_limit.strategy":         "sliding_window",
		"rate_limit.backend":          "memory",
		"rate_limit.burst_size":       10,
		"rate_limit.cleanup_interval": 5 * time.Minute,

		"events.enabled":      true,
		"events.buffer_size":  1000,
		"events.flush_period": 5 * time.Second,
		"events.batch_size":   50,
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile loads optional overrides from a YAML file.
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv loads overrides from the environment variables named in the
// external configuration contract, translating each through envKeyMap.
// Variables not present in envKeyMap are left unmapped and ignored.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider("", ".", func(s string) string {
		return envKeyMap[s]
	}), nil)
}

// MustLoad loads configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load loads configuration with default settings.
func Load() (*Config, error) {
	return NewLoader().Load()
}

// LoadWithServiceDefaults loads configuration, overriding the app name
// for processes that run as a distinct component (feature-engineer,
// scorer, gateway).
func LoadWithServiceDefaults(componentName string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if cfg.App.Name == "evchargenet-gateway" {
		cfg.App.Name = componentName
	}

	return cfg, nil
}
