// Package ingest implements the Ingestion Handler (IH): validates
// inbound submissions against the domain schemas, publishes accepted
// submissions to the Message Bus with the natural partition key, and
// mirrors accepted telemetry, health and user-context submissions into
// the Shared State Store so freshly ingested data is readable before
// the streaming pipeline has caught up. Grid status submissions are
// published only.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"evchargenet/internal/bus"
	"evchargenet/internal/domain"
	"evchargenet/internal/sss"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
	"evchargenet/pkg/logger"
	"evchargenet/pkg/telemetry"
)

const mirrorTTL = 120 * time.Second

// Handler validates and routes every ingestion submission.
type Handler struct {
	producer *bus.Producer
	store    *sss.Store
}

// New creates an Ingestion Handler publishing through producer and
// mirroring through store.
func New(producer *bus.Producer, store *sss.Store) *Handler {
	return &Handler{producer: producer, store: store}
}

// IngestTelemetry validates and accepts a station telemetry
// submission.
func (h *Handler) IngestTelemetry(ctx context.Context, t domain.StationTelemetry) error {
	ctx, span := telemetry.StartSpan(ctx, "Handler.IngestTelemetry")
	defer span.End()

	if ve := t.Validate(); ve.HasErrors() {
		return apperror.New(apperror.CodeInvalidField, "invalid station telemetry").WithDetails("errors", ve.ErrorMessages())
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to encode telemetry")
	}

	if err := h.producer.Publish(ctx, config.TopicStationTelemetry, []byte(t.StationID), payload); err != nil {
		return err
	}

	h.mirror(ctx, h.store.StationTelemetryKey(t.StationID), payload)
	return nil
}

// IngestHealth validates and accepts a station health submission.
func (h *Handler) IngestHealth(ctx context.Context, hlth domain.StationHealth) error {
	ctx, span := telemetry.StartSpan(ctx, "Handler.IngestHealth")
	defer span.End()

	if ve := hlth.Validate(); ve.HasErrors() {
		return apperror.New(apperror.CodeInvalidField, "invalid station health").WithDetails("errors", ve.ErrorMessages())
	}

	payload, err := json.Marshal(hlth)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to encode health")
	}

	if err := h.producer.Publish(ctx, config.TopicStationHealth, []byte(hlth.StationID), payload); err != nil {
		return err
	}

	h.mirror(ctx, h.store.StationHealthKey(hlth.StationID), payload)
	return nil
}

// IngestGridStatus validates and accepts a grid status submission.
func (h *Handler) IngestGridStatus(ctx context.Context, g domain.GridStatus) error {
	ctx, span := telemetry.StartSpan(ctx, "Handler.IngestGridStatus")
	defer span.End()

	if ve := g.Validate(); ve.HasErrors() {
		return apperror.New(apperror.CodeInvalidField, "invalid grid status").WithDetails("errors", ve.ErrorMessages())
	}

	payload, err := json.Marshal(g)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to encode grid status")
	}

	return h.producer.Publish(ctx, config.TopicGridStatus, []byte(g.GridID), payload)
}

// IngestUserContext validates and accepts a user context submission.
func (h *Handler) IngestUserContext(ctx context.Context, u domain.UserContext) error {
	ctx, span := telemetry.StartSpan(ctx, "Handler.IngestUserContext")
	defer span.End()

	if ve := u.Validate(); ve.HasErrors() {
		return apperror.New(apperror.CodeInvalidField, "invalid user context").WithDetails("errors", ve.ErrorMessages())
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "failed to encode user context")
	}

	if err := h.producer.Publish(ctx, config.TopicUserContext, []byte(u.UserID), payload); err != nil {
		return err
	}

	h.mirror(ctx, h.store.UserContextKey(u.UserID), payload)
	return nil
}

// mirror writes a short-TTL SSS copy of an accepted submission,
// tolerating cache failures since the bus publish already succeeded.
func (h *Handler) mirror(ctx context.Context, key string, payload []byte) {
	if err := h.store.Set(ctx, key, payload, mirrorTTL); err != nil {
		logger.Warn("failed to mirror ingested submission", "key", key, "error", err)
	}
}
