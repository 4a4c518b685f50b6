package ingest

import (
	"context"
	"testing"

	"evchargenet/internal/domain"
	"evchargenet/pkg/apperror"
)

func TestHandler_IngestTelemetry_InvalidRejectedBeforeTouchingBus(t *testing.T) {
	h := New(nil, nil)

	err := h.IngestTelemetry(context.Background(), domain.StationTelemetry{})
	if !apperror.Is(err, apperror.CodeInvalidField) {
		t.Errorf("expected CodeInvalidField, got %v", err)
	}
}

func TestHandler_IngestHealth_InvalidRejectedBeforeTouchingBus(t *testing.T) {
	h := New(nil, nil)

	err := h.IngestHealth(context.Background(), domain.StationHealth{})
	if !apperror.Is(err, apperror.CodeInvalidField) {
		t.Errorf("expected CodeInvalidField, got %v", err)
	}
}

func TestHandler_IngestGridStatus_InvalidRejectedBeforeTouchingBus(t *testing.T) {
	h := New(nil, nil)

	err := h.IngestGridStatus(context.Background(), domain.GridStatus{LoadIndex: 5})
	if !apperror.Is(err, apperror.CodeInvalidField) {
		t.Errorf("expected CodeInvalidField, got %v", err)
	}
}

func TestHandler_IngestUserContext_InvalidRejectedBeforeTouchingBus(t *testing.T) {
	h := New(nil, nil)

	err := h.IngestUserContext(context.Background(), domain.UserContext{})
	if !apperror.Is(err, apperror.CodeInvalidField) {
		t.Errorf("expected CodeInvalidField, got %v", err)
	}
}
