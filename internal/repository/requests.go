package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"evchargenet/internal/database"
	"evchargenet/internal/domain"
	"evchargenet/pkg/apperror"
	"evchargenet/pkg/telemetry"
)

// RequestStatus is the lifecycle state of a recommendation request as
// tracked in the Durable Repository.
type RequestStatus string

const (
	RequestStatusPending RequestStatus = "PENDING"
	RequestStatusDone     RequestStatus = "DONE"
	RequestStatusFailed   RequestStatus = "FAILED"
)

// RequestRepository persists the full lifecycle of a recommendation
// request: the inbound request, the eventual response, processing
// time, and terminal status.
type RequestRepository struct {
	db database.DB
}

// NewRequestRepository creates a request repository over db.
func NewRequestRepository(db database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create writes a new request row under the caller-supplied requestID
// in PENDING status, ahead of candidate optimization.
func (r *RequestRepository) Create(ctx context.Context, requestID string, req domain.RecommendationRequest) error {
	ctx, span := telemetry.StartSpan(ctx, "RequestRepository.Create")
	defer span.End()

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	query := `
		INSERT INTO user_requests (request_id, user_id, request, status)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, requestID, req.UserID, payload, string(RequestStatusPending)); err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// Complete records the final response and processing time for a
// request and marks it DONE.
func (r *RequestRepository) Complete(ctx context.Context, requestID string, resp domain.RecommendationResponse, processingTimeMs int64) error {
	ctx, span := telemetry.StartSpan(ctx, "RequestRepository.Complete")
	defer span.End()

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response payload: %w", err)
	}

	query := `
		UPDATE user_requests
		SET response = $2, processing_time_ms = $3, status = $4
		WHERE request_id = $1
	`
	result, err := r.db.Exec(ctx, query, requestID, payload, processingTimeMs, string(RequestStatusDone))
	if err != nil {
		return fmt.Errorf("failed to complete request: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.New(apperror.CodeNotFound, "request not found")
	}
	return nil
}

// Fail marks a request FAILED, recording the processing time spent
// before the failure was detected.
func (r *RequestRepository) Fail(ctx context.Context, requestID string, processingTimeMs int64) error {
	ctx, span := telemetry.StartSpan(ctx, "RequestRepository.Fail")
	defer span.End()

	query := `
		UPDATE user_requests
		SET processing_time_ms = $2, status = $3
		WHERE request_id = $1
	`
	_, err := r.db.Exec(ctx, query, requestID, processingTimeMs, string(RequestStatusFailed))
	if err != nil {
		return fmt.Errorf("failed to mark request failed: %w", err)
	}
	return nil
}

// GetByID fetches a request row by id, including its response if one
// has been recorded.
func (r *RequestRepository) GetByID(ctx context.Context, requestID string) (domain.RecommendationRequest, domain.RecommendationResponse, RequestStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "RequestRepository.GetByID")
	defer span.End()

	query := `
		SELECT request, response, status
		FROM user_requests
		WHERE request_id = $1
	`

	var reqPayload []byte
	var respPayload []byte
	var status string
	err := r.db.QueryRow(ctx, query, requestID).Scan(&reqPayload, &respPayload, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RecommendationRequest{}, domain.RecommendationResponse{}, "", apperror.New(apperror.CodeNotFound, "request not found")
		}
		return domain.RecommendationRequest{}, domain.RecommendationResponse{}, "", fmt.Errorf("failed to get request: %w", err)
	}

	var req domain.RecommendationRequest
	if err := json.Unmarshal(reqPayload, &req); err != nil {
		return domain.RecommendationRequest{}, domain.RecommendationResponse{}, "", fmt.Errorf("failed to decode request payload: %w", err)
	}

	var resp domain.RecommendationResponse
	if len(respPayload) > 0 {
		if err := json.Unmarshal(respPayload, &resp); err != nil {
			return domain.RecommendationRequest{}, domain.RecommendationResponse{}, "", fmt.Errorf("failed to decode response payload: %w", err)
		}
	}

	return req, resp, RequestStatus(status), nil
}
