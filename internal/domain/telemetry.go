// Package domain defines the core entities of the recommendation
// pipeline (telemetry, engineered features, scores, predictions,
// stations, requests and recommendations) and the validation rules
// that guard the system's external boundaries.
package domain

import (
	"evchargenet/pkg/apperror"
)

// StationTelemetry is a raw periodic observation of a station,
// submitted by an operator and consumed by the Feature Engineer.
type StationTelemetry struct {
	StationID         string  `json:"stationId"`
	QueueLength       int     `json:"queueLength"`
	AvgServiceTime    float64 `json:"avgServiceTime"` // minutes
	AvailableChargers int     `json:"availableChargers"`
	TotalChargers     int     `json:"totalChargers"`
	FaultRate         float64 `json:"faultRate"` // [0,1]
	AvailablePower    float64 `json:"availablePower"`
	MaxCapacity       float64 `json:"maxCapacity"`
	Timestamp         int64   `json:"timestamp"` // unix seconds
}

// Validate checks the invariants required before FE may process this
// telemetry record.
func (t StationTelemetry) Validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()

	if t.StationID == "" {
		ve.AddErrorWithField(apperror.CodeMissingField, "stationId is required", "stationId")
	}
	if t.QueueLength < 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "queueLength must be >= 0", "queueLength")
	}
	if t.AvgServiceTime < 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "avgServiceTime must be >= 0", "avgServiceTime")
	}
	if t.AvailableChargers < 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "availableChargers must be >= 0", "availableChargers")
	}
	if t.TotalChargers < 1 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "totalChargers must be >= 1", "totalChargers")
	}
	if t.AvailableChargers > t.TotalChargers {
		ve.AddErrorWithField(apperror.CodeInvalidField, "availableChargers cannot exceed totalChargers", "availableChargers")
	}
	if t.FaultRate < 0 || t.FaultRate > 1 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "faultRate must be in [0,1]", "faultRate")
	}
	if t.AvailablePower < 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "availablePower must be >= 0", "availablePower")
	}
	if t.MaxCapacity < 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "maxCapacity must be >= 0", "maxCapacity")
	}
	if t.AvailablePower > t.MaxCapacity && t.MaxCapacity > 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "availablePower cannot exceed maxCapacity", "availablePower")
	}
	if t.Timestamp == 0 {
		ve.AddErrorWithField(apperror.CodeMissingField, "timestamp is required", "timestamp")
	}

	return ve
}

// HealthStatus is the state machine tracked for a station.
// Only Operational and Degraded stations are selectable by the Optimizer.
type HealthStatus string

const (
	HealthOperational HealthStatus = "operational"
	HealthDegraded    HealthStatus = "degraded"
	HealthOffline     HealthStatus = "offline"
	HealthMaintenance HealthStatus = "maintenance"
)

// Selectable reports whether a station in this health state may appear
// in recommendation results.
func (h HealthStatus) Selectable() bool {
	return h == HealthOperational || h == HealthDegraded
}

// StationHealth is the operational health snapshot for a station,
// distinct from raw telemetry: it is either reported directly or
// derived by an external monitor.
type StationHealth struct {
	StationID   string       `json:"stationId"`
	Status      HealthStatus `json:"status"`
	HealthScore float64      `json:"healthScore"` // 0-100
	Timestamp   int64        `json:"timestamp"`
}

// Validate checks the invariants required before IH may accept a
// health submission.
func (h StationHealth) Validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()

	if h.StationID == "" {
		ve.AddErrorWithField(apperror.CodeMissingField, "stationId is required", "stationId")
	}
	switch h.Status {
	case HealthOperational, HealthDegraded, HealthOffline, HealthMaintenance:
	default:
		ve.AddErrorWithField(apperror.CodeInvalidField, "status must be operational, degraded, offline, or maintenance", "status")
	}
	if h.HealthScore < 0 || h.HealthScore > 100 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "healthScore must be in [0,100]", "healthScore")
	}
	if h.Timestamp == 0 {
		ve.AddErrorWithField(apperror.CodeMissingField, "timestamp is required", "timestamp")
	}

	return ve
}

// GridStatus is a grid-level signal (load shedding risk, outage
// windows) consumed alongside station telemetry.
type GridStatus struct {
	GridID    string  `json:"gridId"`
	LoadIndex float64 `json:"loadIndex"` // [0,1]
	Outage    bool    `json:"outage"`
	Timestamp int64   `json:"timestamp"`
}

// Validate checks the invariants required before IH may accept a grid
// status submission.
func (g GridStatus) Validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()

	if g.GridID == "" {
		ve.AddErrorWithField(apperror.CodeMissingField, "gridId is required", "gridId")
	}
	if g.LoadIndex < 0 || g.LoadIndex > 1 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "loadIndex must be in [0,1]", "loadIndex")
	}
	if g.Timestamp == 0 {
		ve.AddErrorWithField(apperror.CodeMissingField, "timestamp is required", "timestamp")
	}

	return ve
}

// UserContext is ambient information about a user submitted out of
// band from a recommendation request (e.g. trip plan, vehicle type).
type UserContext struct {
	UserID           string `json:"userId"`
	VehicleType      string `json:"vehicleType,omitempty"`
	PreferredCharger string `json:"preferredChargerType,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}

// Validate checks the invariants required before IH may accept a user
// context submission.
func (u UserContext) Validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()

	if u.UserID == "" {
		ve.AddErrorWithField(apperror.CodeMissingField, "userId is required", "userId")
	}
	if u.Timestamp == 0 {
		ve.AddErrorWithField(apperror.CodeMissingField, "timestamp is required", "timestamp")
	}

	return ve
}
