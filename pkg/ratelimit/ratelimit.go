package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Standard errors returned by every Limiter implementation.
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrLimiterClosed     = errors.New("limiter is closed")
)

// Limiter is a request rate limiter.
type Limiter interface {
	// Allow checks whether one request is permitted.
	Allow(ctx context.Context, key string) (bool, error)

	// AllowN checks whether n requests are permitted.
	AllowN(ctx context.Context, key string, n int) (bool, error)

	// Wait blocks until a request is permitted or ctx is done.
	Wait(ctx context.Context, key string) error

	// Reset clears the limit state for a key.
	Reset(ctx context.Context, key string) error

	// GetInfo returns the current limit state for a key.
	GetInfo(ctx context.Context, key string) (*LimitInfo, error)

	// Close releases the limiter's resources.
	Close() error
}

// LimitInfo describes the current state of a rate limit.
type LimitInfo struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config configures a rate limiter.
type Config struct {
	// Requests is the number of requests permitted per window.
	Requests int `koanf:"requests"`

	// Window is the time window the limit applies to.
	Window time.Duration `koanf:"window"`

	// Strategy selects the limiting algorithm (sliding_window, token_bucket).
	// Any other value, including fixed_window, uses sliding_window.
	Strategy string `koanf:"strategy"`

	// KeyFunc names a key extraction strategy (ip, user, method); no
	// limiter in this package reads it.
	KeyFunc string `koanf:"key_func"`

	// Backend selects the storage backend (memory, redis).
	Backend string `koanf:"backend"`

	// BurstSize is the token bucket burst size.
	BurstSize int `koanf:"burst_size"`

	// CleanupInterval is the stale-entry sweep interval for the in-memory backend.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// Redis connection settings, used when Backend is "redis".
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// DefaultConfig returns the default rate limiter configuration.
func DefaultConfig() *Config {
	return &Config{
		Requests:        100,
		Window:          time.Minute,
		Strategy:        "sliding_window",
		KeyFunc:         "ip",
		Backend:         "memory",
		BurstSize:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// New creates a limiter for the backend named in cfg.
func New(cfg *Config) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "redis":
		return NewRedisLimiter(cfg)
	case "memory", "":
		return NewMemoryLimiter(cfg), nil
	default:
		return NewMemoryLimiter(cfg), nil
	}
}

// KeyExtractor derives a rate-limit key from a request.
type KeyExtractor func(ctx context.Context, method string, metadata map[string]string) string

// DefaultKeyExtractor extracts the key from the caller's IP.
func DefaultKeyExtractor(_ context.Context, _ string, metadata map[string]string) string {
	if ip, ok := metadata["x-forwarded-for"]; ok && ip != "" {
		return ip
	}
	if ip, ok := metadata["x-real-ip"]; ok && ip != "" {
		return ip
	}
	if peer, ok := metadata[":authority"]; ok {
		return peer
	}
	return "unknown"
}

// MethodKeyExtractor extracts the key from the called method name.
func MethodKeyExtractor(_ context.Context, method string, _ map[string]string) string {
	return method
}

// UserKeyExtractor extracts the key from the authenticated user, falling
// back to DefaultKeyExtractor when no user id is present.
func UserKeyExtractor(ctx context.Context, method string, metadata map[string]string) string {
	if userID, ok := metadata["x-user-id"]; ok && userID != "" {
		return userID
	}
	return DefaultKeyExtractor(ctx, method, metadata)
}

// CompositeKeyExtractor combines several extractors into one key.
func CompositeKeyExtractor(extractors ...KeyExtractor) KeyExtractor {
	return func(ctx context.Context, method string, metadata map[string]string) string {
		var key string
		for _, ext := range extractors {
			key += ext(ctx, method, metadata) + ":"
		}
		return key
	}
}

// RateLimitedMethods holds per-method rate limit overrides.
type RateLimitedMethods struct {
	mu            sync.RWMutex
	methods       map[string]*Config
	defaultConfig *Config
}

// NewRateLimitedMethods creates a per-method configuration set, falling
// back to defaultCfg (or DefaultConfig) for methods with no override.
func NewRateLimitedMethods(defaultCfg *Config) *RateLimitedMethods {
	if defaultCfg == nil {
		defaultCfg = DefaultConfig()
	}
	return &RateLimitedMethods{
		methods:       make(map[string]*Config),
		defaultConfig: defaultCfg,
	}
}

// Set overrides the limit configuration for a method.
func (r *RateLimitedMethods) Set(method string, cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[method] = cfg
}

// Get returns the configuration for a method, or the default if unset.
func (r *RateLimitedMethods) Get(method string) *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.methods[method]; ok {
		return cfg
	}
	return r.defaultConfig
}
