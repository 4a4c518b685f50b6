package sss

import (
	"context"
	"os"
	"testing"
	"time"

	"evchargenet/pkg/config"
)

func skipIfNoRedis(t *testing.T) {
	if os.Getenv("REDIS_TEST_ADDR") == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}
}

func testConfig() config.SSSConfig {
	return config.SSSConfig{
		Host:      os.Getenv("REDIS_TEST_ADDR"),
		Port:      0,
		Password:  os.Getenv("REDIS_TEST_PASSWORD"),
		DB:        0,
		KeyPrefix: "evc-test",
		PoolSize:  5,
	}
}

func TestStore_KeyLayout(t *testing.T) {
	s := &Store{keyPrefix: "evc"}

	tests := []struct {
		got      string
		expected string
	}{
		{s.StationFeaturesKey("ST_101"), "evc:station:features:ST_101"},
		{s.StationScoreKey("ST_101"), "evc:station:score:ST_101"},
		{s.StationTelemetryKey("ST_101"), "evc:station:telemetry:ST_101"},
		{s.StationHealthKey("ST_101"), "evc:station:health:ST_101"},
		{s.PredictionLoadKey("ST_101"), "evc:prediction:load:ST_101"},
		{s.PredictionFaultKey("ST_101"), "evc:prediction:fault:ST_101"},
		{s.PredictionKey("traffic", "ST_101"), "evc:prediction:traffic:ST_101"},
		{s.UserContextKey("u1"), "evc:user:context:u1"},
		{s.UserSessionKey("sess-1"), "evc:user:session:sess-1"},
		{s.RecommendationKey("req-1"), "evc:recommendation:req-1"},
		{s.CounterKey("requests"), "evc:metrics:counter:requests"},
		{s.LockKey("ST_101"), "evc:lock:ST_101"},
		{s.RankingKey(), "evc:ranking:stations"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("key = %s, want %s", tt.got, tt.expected)
		}
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	skipIfNoRedis(t)

	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := s.StationFeaturesKey("ST_TEST")

	if err := s.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	val, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(val) != "payload" {
		t.Errorf("Get() = %s, want payload", val)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := s.Get(ctx, key); err != ErrKeyNotFound {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_Ranking(t *testing.T) {
	skipIfNoRedis(t)

	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	key := s.RankingKey()

	if err := s.ZAdd(ctx, key, "ST_101", 0.8); err != nil {
		t.Fatalf("ZAdd() error = %v", err)
	}
	if err := s.ZAdd(ctx, key, "ST_102", 0.6); err != nil {
		t.Fatalf("ZAdd() error = %v", err)
	}

	score, err := s.ZScore(ctx, key, "ST_101")
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}
	if score != 0.8 {
		t.Errorf("ZScore() = %v, want 0.8", score)
	}

	top, err := s.ZRevRange(ctx, key, 2)
	if err != nil {
		t.Fatalf("ZRevRange() error = %v", err)
	}
	if len(top) != 2 || top[0].Member != "ST_101" {
		t.Errorf("ZRevRange() = %v, want ST_101 first", top)
	}

	s.ZRem(ctx, key, "ST_101")
	s.ZRem(ctx, key, "ST_102")
}

func TestStore_Lock(t *testing.T) {
	skipIfNoRedis(t)

	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	ok, err := s.AcquireLock(ctx, "ST_101", "token-a", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	if !ok {
		t.Fatal("expected to acquire lock")
	}

	ok, err = s.AcquireLock(ctx, "ST_101", "token-b", time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}
	if ok {
		t.Error("expected second acquire to fail while lock held")
	}

	if err := s.ReleaseLock(ctx, "ST_101", "token-a"); err != nil {
		t.Fatalf("ReleaseLock() error = %v", err)
	}
}
