package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"evchargenet/pkg/config"
)

func skipIfNoKafka(t *testing.T) {
	if os.Getenv("KAFKA_TEST_BROKERS") == "" {
		t.Skip("KAFKA_TEST_BROKERS not set, skipping bus tests")
	}
}

func testBusConfig() config.BusConfig {
	return config.BusConfig{
		Brokers:  os.Getenv("KAFKA_TEST_BROKERS"),
		ClientID: "evchargenet-test",
		GroupID:  "evchargenet-test-group",
		Workers:  2,
	}
}

func TestProducer_Publish(t *testing.T) {
	skipIfNoKafka(t)

	p := NewProducer(testBusConfig())
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := p.Publish(ctx, config.TopicStationTelemetry, []byte("ST_101"), []byte(`{"stationId":"ST_101"}`))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestConsumer_RunDeliversAndCommits(t *testing.T) {
	skipIfNoKafka(t)

	cfg := testBusConfig()
	p := NewProducer(cfg)
	defer p.Close()

	pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pubCancel()
	if err := p.Publish(pubCtx, config.TopicStationHealth, []byte("ST_201"), []byte(`{"stationId":"ST_201"}`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	c := NewConsumer(cfg, config.TopicStationHealth)
	defer c.Close()

	received := make(chan []byte, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go c.Run(ctx, func(_ context.Context, _, value []byte) Outcome {
		select {
		case received <- value:
		default:
		}
		return OutcomeCommit
	})

	select {
	case v := <-received:
		if len(v) == 0 {
			t.Error("expected non-empty message value")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}
