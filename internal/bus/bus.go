// Package bus wraps Kafka as the pipeline's Message Bus: partitioned
// topics carrying telemetry, engineered features, scores, predictions
// and recommendations between the streaming components.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
)

// Outcome is a consumer handler's verdict on a message, controlling
// whether the bus advances the consumer group's offset.
type Outcome int

const (
	// OutcomeCommit advances the offset: the message was processed
	// successfully, or is a poison message that must not be retried.
	OutcomeCommit Outcome = iota
	// OutcomeRetry leaves the offset in place so the same message is
	// redelivered on the next poll, used for transient dependency
	// failures (SSS/DR/PG momentarily unavailable).
	OutcomeRetry
)

// Handler processes one message from a topic and returns the outcome
// that determines offset commit behavior.
type Handler func(ctx context.Context, key, value []byte) Outcome

// Producer publishes key-partitioned messages onto bus topics.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a producer writing to the configured brokers,
// partitioning by message key so all messages for a given station or
// user land on the same partition and preserve per-entity ordering.
func NewProducer(cfg config.BusConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.BrokerList()...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Gzip,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes a single message to topic, partitioned by key.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return apperror.Wrap(err, apperror.CodeBusUnavailable, "bus: publish failed")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer runs a pool of worker goroutines against one topic's
// partitions under a shared consumer group, delivering at-least-once.
type Consumer struct {
	reader  *kafka.Reader
	topic   string
	workers int
}

// NewConsumer creates a consumer-group reader for topic.
func NewConsumer(cfg config.BusConfig, topic string) *Consumer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Consumer{
		topic:   topic,
		workers: workers,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.BrokerList(),
			Topic:       topic,
			GroupID:     cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Run fetches messages and dispatches them to handle across a fixed
// pool of worker goroutines until ctx is cancelled. Poison messages
// (handle returns OutcomeCommit after a parse failure the handler
// itself detected) are committed and skipped rather than retried
// indefinitely; OutcomeRetry leaves the message uncommitted so the
// next FetchMessage redelivers it.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	tasks := make(chan kafka.Message, c.workers)
	errs := make(chan error, c.workers)
	done := make(chan struct{})

	for w := 0; w < c.workers; w++ {
		go func() {
			for msg := range tasks {
				outcome := handle(ctx, msg.Key, msg.Value)
				if outcome == OutcomeCommit {
					if err := c.reader.CommitMessages(ctx, msg); err != nil {
						logger.Error("bus: commit failed", "topic", c.topic, "error", err)
					}
				} else {
					logger.Warn("bus: message left uncommitted for retry", "topic", c.topic, "partition", msg.Partition, "offset", msg.Offset)
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				errs <- fmt.Errorf("bus: fetch failed on %s: %w", c.topic, err)
				return
			}

			select {
			case tasks <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		<-ctx.Done()
		close(done)
	}()

	select {
	case err := <-errs:
		return err
	case <-done:
		return nil
	}
}

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
