// Package sss wraps Redis as the pipeline's Shared State Store: the
// low-latency cache and ranking index that sits between the streaming
// stages (FE/SC/PG) and the query path (RH).
package sss

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
)

// ErrKeyNotFound is returned when a requested key does not exist.
var ErrKeyNotFound = errors.New("sss: key not found")

// RankingSet is the sorted-set key name holding the current overall
// score of every station the Scorer has scored; health-based
// selectability is checked by the Optimizer, not by this set.
const RankingSet = "ranking:stations"

// Store is the Shared State Store client: string KV with TTL, the
// global ranking sorted set, counters, and advisory locks.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New connects to Redis using the supplied configuration, verifying
// reachability with a bounded ping before returning.
func New(cfg config.SSSConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDependencyUnavailable, "sss: ping failed")
	}

	return &Store{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

func (s *Store) key(parts ...string) string {
	k := s.keyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// StationFeaturesKey returns the key a station's engineered features
// are cached under.
func (s *Store) StationFeaturesKey(stationID string) string {
	return s.key("station", "features", stationID)
}

// StationScoreKey returns the key a station's current score is cached
// under.
func (s *Store) StationScoreKey(stationID string) string {
	return s.key("station", "score", stationID)
}

// StationTelemetryKey returns the key a station's last telemetry
// sample is mirrored under.
func (s *Store) StationTelemetryKey(stationID string) string {
	return s.key("station", "telemetry", stationID)
}

// StationHealthKey returns the key a station's health snapshot is
// mirrored under.
func (s *Store) StationHealthKey(stationID string) string {
	return s.key("station", "health", stationID)
}

// PredictionLoadKey returns the key a station's cached load forecast
// is stored under.
func (s *Store) PredictionLoadKey(stationID string) string {
	return s.key("prediction", "load", stationID)
}

// PredictionFaultKey returns the key a station's cached fault
// prediction is stored under.
func (s *Store) PredictionFaultKey(stationID string) string {
	return s.key("prediction", "fault", stationID)
}

// PredictionKey returns the key a cached prediction of the given kind
// is stored under for a station, covering the auxiliary prediction
// kinds beyond load/fault (traffic, battery demand, staffing, ...).
func (s *Store) PredictionKey(kind, stationID string) string {
	return s.key("prediction", kind, stationID)
}

// UserContextKey returns the key a user's out-of-band context is
// cached under.
func (s *Store) UserContextKey(userID string) string {
	return s.key("user", "context", userID)
}

// UserSessionKey returns the key a user's session state is cached
// under.
func (s *Store) UserSessionKey(sessionID string) string {
	return s.key("user", "session", sessionID)
}

// RecommendationKey returns the key a generated recommendation is
// cached under for fast re-read of GET /recommend/{requestId}.
func (s *Store) RecommendationKey(requestID string) string {
	return s.key("recommendation", requestID)
}

// CounterKey returns the key a named metrics counter is stored under.
func (s *Store) CounterKey(name string) string {
	return s.key("metrics", "counter", name)
}

// LockKey returns the key an advisory lock on a resource is held
// under.
func (s *Store) LockKey(resource string) string {
	return s.key("lock", resource)
}

// RankingKey returns the global ranking sorted set's key, scoped by
// the configured prefix.
func (s *Store) RankingKey() string {
	return s.key(RankingSet)
}

// Get retrieves the raw value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// Set stores value under key with the given TTL. A non-positive TTL
// means the key never expires.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes key, ignoring the case where it does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Exists reports whether key is currently set.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

// HSet writes a single field into the hash stored at key.
func (s *Store) HSet(ctx context.Context, key, field string, value []byte) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

// HGet reads a single field from the hash stored at key.
func (s *Store) HGet(ctx context.Context, key, field string) ([]byte, error) {
	val, err := s.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

// HGetAll reads every field of the hash stored at key.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

// ZAdd upserts a member's score in the sorted set at key — the
// operation backing the live station ranking.
func (s *Store) ZAdd(ctx context.Context, key string, member string, score float64) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZScore returns a member's current score in the sorted set at key.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrKeyNotFound
		}
		return 0, err
	}
	return score, nil
}

// ZRem removes a member from the sorted set at key. No pipeline
// component calls it.
func (s *Store) ZRem(ctx context.Context, key, member string) error {
	return s.client.ZRem(ctx, key, member).Err()
}

// RankedMember is one entry of a ZRevRange query: a member with its
// score, ordered by descending score.
type RankedMember struct {
	Member string
	Score  float64
}

// ZRevRange returns the top `count` members of the sorted set at key,
// ordered by descending score — the candidate feed for the Optimizer.
func (s *Store) ZRevRange(ctx context.Context, key string, count int64) ([]RankedMember, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, key, 0, count-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]RankedMember, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("sss: unexpected ranking member type %T", z.Member)
		}
		out[i] = RankedMember{Member: member, Score: z.Score}
	}
	return out, nil
}

// IncrBy increments a named counter by delta and returns its new
// value.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	return s.client.IncrBy(ctx, key, delta).Result()
}

// AcquireLock attempts to take an advisory lock on a resource for the
// given duration using SET NX PX semantics. It returns false if the
// lock is already held.
func (s *Store) AcquireLock(ctx context.Context, resource, token string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.LockKey(resource), token, ttl).Result()
}

// ReleaseLock releases an advisory lock only if it is still held by
// the caller's token, preventing a slow holder from releasing a lock
// it no longer owns.
func (s *Store) ReleaseLock(ctx context.Context, resource, token string) error {
	const script = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`
	return s.client.Eval(ctx, script, []string{s.LockKey(resource)}, token).Err()
}

// Ping verifies the underlying connection is healthy.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
