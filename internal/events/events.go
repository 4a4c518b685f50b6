// Package events records pipeline-wide system events (breaker trips,
// cache misses escalating to cold-start, poison messages, prediction
// fallbacks) to the Durable Repository's system_events table. Recording
// is asynchronous and batched so that a slow database never blocks the
// component raising the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"evchargenet/internal/database"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
)

// Kind identifies the category of a recorded event.
type Kind string

const (
	KindBreakerOpened     Kind = "BREAKER_OPENED"
	KindBreakerClosed     Kind = "BREAKER_CLOSED"
	KindPoisonMessage     Kind = "POISON_MESSAGE"
	KindColdStart         Kind = "COLD_START"
	KindPredictionFallback Kind = "PREDICTION_FALLBACK"
	KindNarrationFallback Kind = "NARRATION_FALLBACK"
	KindDependencyTimeout Kind = "DEPENDENCY_TIMEOUT"
	KindOverload          Kind = "OVERLOAD"
)

// Event is a single occurrence recorded for operational visibility.
type Event struct {
	Timestamp time.Time
	Kind      Kind
	Severity  apperror.Severity
	Component string
	StationID string
	Message   string
	Metadata  map[string]any
}

// Recorder buffers events and flushes them to Postgres in batches on a
// timer, so callers never block on a database round trip.
type Recorder interface {
	Record(ctx context.Context, evt Event)
	Close()
}

// dbRecorder is the buffered-channel, background-flush implementation.
type dbRecorder struct {
	db        database.DB
	cfg       config.EventsConfig
	buffer    chan Event
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a Recorder bound to db. If cfg.Enabled is false, a no-op
// recorder is returned.
func New(db database.DB, cfg config.EventsConfig) Recorder {
	if !cfg.Enabled {
		return &noopRecorder{}
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	r := &dbRecorder{
		db:     db,
		cfg:    cfg,
		buffer: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}

	r.wg.Add(1)
	go r.processLoop()

	return r
}

// Record enqueues an event for asynchronous persistence. If the buffer
// is full the event is dropped and a warning is logged rather than
// blocking the caller.
func (r *dbRecorder) Record(ctx context.Context, evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	select {
	case r.buffer <- evt:
	default:
		logger.Warn("system event dropped, buffer full", "kind", evt.Kind, "component", evt.Component)
	}
}

// Close stops the background flush loop and drains any remaining
// buffered events before returning.
func (r *dbRecorder) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *dbRecorder) processLoop() {
	defer r.wg.Done()

	flushPeriod := r.cfg.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}
	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	batch := make([]Event, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.writeBatch(context.Background(), batch); err != nil {
			logger.Warn("failed to flush system events", "error", err, "count", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-r.done:
			for {
				select {
				case evt := <-r.buffer:
					batch = append(batch, evt)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case evt := <-r.buffer:
			batch = append(batch, evt)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *dbRecorder) writeBatch(ctx context.Context, batch []Event) error {
	for _, evt := range batch {
		metadata, err := json.Marshal(evt.Metadata)
		if err != nil {
			metadata = []byte("{}")
		}

		query := `
			INSERT INTO system_events (occurred_at, kind, severity, component, station_id, message, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := r.db.Exec(ctx, query,
			evt.Timestamp, string(evt.Kind), evt.Severity.String(), evt.Component,
			nullableString(evt.StationID), evt.Message, metadata,
		); err != nil {
			return fmt.Errorf("failed to insert system event: %w", err)
		}
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// noopRecorder discards every event; used when recording is disabled.
type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, evt Event) {}
func (noopRecorder) Close()                                {}
