package domain

import "testing"

func TestStationTelemetry_Validate(t *testing.T) {
	valid := StationTelemetry{
		StationID:         "st-1",
		QueueLength:       2,
		AvailableChargers: 1,
		TotalChargers:     2,
		FaultRate:         0.1,
		AvailablePower:    10,
		MaxCapacity:       20,
		Timestamp:         1700000000,
	}
	if ve := valid.Validate(); ve.HasErrors() {
		t.Errorf("expected valid telemetry, got errors: %v", ve.ErrorMessages())
	}

	invalid := StationTelemetry{
		AvailableChargers: 5,
		TotalChargers:     2,
		FaultRate:         2,
	}
	ve := invalid.Validate()
	if !ve.HasErrors() {
		t.Error("expected errors for invalid telemetry")
	}
}

func TestStationHealth_Validate(t *testing.T) {
	valid := StationHealth{StationID: "st-1", Status: HealthOperational, HealthScore: 90, Timestamp: 1700000000}
	if ve := valid.Validate(); ve.HasErrors() {
		t.Errorf("expected valid health, got errors: %v", ve.ErrorMessages())
	}

	invalid := StationHealth{Status: "broken", HealthScore: 150}
	ve := invalid.Validate()
	if len(ve.Errors) != 4 {
		t.Errorf("expected 4 errors (missing id, bad status, bad score, missing timestamp), got %d: %v", len(ve.Errors), ve.ErrorMessages())
	}
}

func TestGridStatus_Validate(t *testing.T) {
	valid := GridStatus{GridID: "grid-1", LoadIndex: 0.5, Timestamp: 1700000000}
	if ve := valid.Validate(); ve.HasErrors() {
		t.Errorf("expected valid grid status, got errors: %v", ve.ErrorMessages())
	}

	invalid := GridStatus{LoadIndex: 2}
	if ve := invalid.Validate(); !ve.HasErrors() {
		t.Error("expected errors for invalid grid status")
	}
}

func TestUserContext_Validate(t *testing.T) {
	valid := UserContext{UserID: "user-1", Timestamp: 1700000000}
	if ve := valid.Validate(); ve.HasErrors() {
		t.Errorf("expected valid user context, got errors: %v", ve.ErrorMessages())
	}

	invalid := UserContext{}
	if ve := invalid.Validate(); !ve.HasErrors() {
		t.Error("expected errors for invalid user context")
	}
}

func TestHealthStatus_Selectable(t *testing.T) {
	if !HealthOperational.Selectable() {
		t.Error("expected operational to be selectable")
	}
	if !HealthDegraded.Selectable() {
		t.Error("expected degraded to be selectable")
	}
	if HealthOffline.Selectable() {
		t.Error("expected offline to not be selectable")
	}
	if HealthMaintenance.Selectable() {
		t.Error("expected maintenance to not be selectable")
	}
}
