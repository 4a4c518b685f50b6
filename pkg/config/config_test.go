package config

import (
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:     AppConfig{Name: "gateway"},
				HTTP:    HTTPConfig{Port: 3000},
				Log:     LogConfig{Level: "info"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: Config{
				HTTP:    HTTPConfig{Port: 3000},
				Log:     LogConfig{Level: "info"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid port - zero",
			cfg: Config{
				App:     AppConfig{Name: "test"},
				HTTP:    HTTPConfig{Port: 0},
				Log:     LogConfig{Level: "info"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid port - too high",
			cfg: Config{
				App:     AppConfig{Name: "test"},
				HTTP:    HTTPConfig{Port: 70000},
				Log:     LogConfig{Level: "info"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				App:     AppConfig{Name: "test"},
				HTTP:    HTTPConfig{Port: 3000},
				Log:     LogConfig{Level: "invalid"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: true,
		},
		{
			name: "valid debug level",
			cfg: Config{
				App:     AppConfig{Name: "test"},
				HTTP:    HTTPConfig{Port: 3000},
				Log:     LogConfig{Level: "debug"},
				Breaker: BreakerConfig{Threshold: 5},
			},
			wantErr: false,
		},
		{
			name: "non-positive breaker threshold",
			cfg: Config{
				App:     AppConfig{Name: "test"},
				HTTP:    HTTPConfig{Port: 3000},
				Log:     LogConfig{Level: "info"},
				Breaker: BreakerConfig{Threshold: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		cfg := &Config{App: AppConfig{Environment: tt.env}}
		if got := cfg.IsProduction(); got != tt.want {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestSSSConfig_Address(t *testing.T) {
	cfg := SSSConfig{Host: "redis.local", Port: 6379}
	if got := cfg.Address(); got != "redis.local:6379" {
		t.Errorf("expected 'redis.local:6379', got %s", got)
	}
}

func TestSSSConfig_TTLHelpers(t *testing.T) {
	cfg := SSSConfig{
		ScoreCacheTTL:          30,
		PredictionCacheTTL:     60,
		SessionCacheTTL:        3600,
		FeatureCacheTTL:        30,
		RecommendationCacheTTL: 300,
	}

	if cfg.ScoreTTL().Seconds() != 30 {
		t.Errorf("expected 30s score TTL, got %v", cfg.ScoreTTL())
	}
	if cfg.RecommendationTTL().Seconds() != 300 {
		t.Errorf("expected 300s recommendation TTL, got %v", cfg.RecommendationTTL())
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "testdb",
		Username: "user",
		Password: "pass",
		SSLMode:  "disable",
	}

	expect := "host=localhost port=5432 user=user password=pass dbname=testdb sslmode=disable"
	if got := cfg.DSN(); got != expect {
		t.Errorf("expected DSN %s, got %s", expect, got)
	}
}

func TestBusConfig_BrokerList(t *testing.T) {
	cfg := BusConfig{Brokers: "broker-a:9092, broker-b:9092,"}
	list := cfg.BrokerList()
	if len(list) != 2 {
		t.Fatalf("expected 2 brokers, got %d (%v)", len(list), list)
	}
	if list[0] != "broker-a:9092" || list[1] != "broker-b:9092" {
		t.Errorf("unexpected broker list: %v", list)
	}
}

func TestScoringConfig_WeightSum(t *testing.T) {
	cfg := ScoringConfig{
		WeightWaitTime:        0.25,
		WeightAvailability:    0.20,
		WeightReliability:     0.20,
		WeightDistance:        0.20,
		WeightEnergyStability: 0.15,
	}

	if got := cfg.WeightSum(); got < 0.999 || got > 1.001 {
		t.Errorf("expected weight sum ≈ 1.0, got %f", got)
	}
}

func TestBreakerConfig_Durations(t *testing.T) {
	cfg := BreakerConfig{Threshold: 5, TimeoutMs: 30000, WindowSec: 30}
	if cfg.CoolDown().Seconds() != 30 {
		t.Errorf("expected 30s cool-down, got %v", cfg.CoolDown())
	}
	if cfg.Window().Seconds() != 30 {
		t.Errorf("expected 30s window, got %v", cfg.Window())
	}
}

func TestCORSConfig(t *testing.T) {
	cfg := CORSConfig{
		Enabled:          true,
		AllowedOrigins:   []string{"http://localhost:3000", "https://example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}

	if !cfg.Enabled {
		t.Error("expected CORS to be enabled")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %d", len(cfg.AllowedOrigins))
	}
}
