package domain

import "evchargenet/pkg/apperror"

const (
	defaultLimit = 5
	maxLimit     = 20
	minLimit     = 1
)

// RankingPreference tilts the Optimizer's post-sort re-weighting pass
// toward a particular dimension, independent of the hard feasibility
// filters (health, fault, availability, maxDistance/maxWaitTime).
type RankingPreference string

const (
	PreferenceNone      RankingPreference = ""
	PreferenceNearby    RankingPreference = "nearby"
	PreferenceReliable  RankingPreference = "reliable"
)

// RecommendationRequest is the Recommendation Handler's external
// input: a user, a location, and an optional set of preferences
// narrowing the candidate set and its ranking.
type RecommendationRequest struct {
	UserID               string            `json:"userId"`
	Location             Coordinate        `json:"location"`
	VehicleType          string            `json:"vehicleType,omitempty"`
	BatteryLevel         *float64          `json:"batteryLevel,omitempty"` // [0,100]
	PreferredChargerType ChargerPreference `json:"preferredChargerType,omitempty"`
	Preference           RankingPreference `json:"preference,omitempty"`
	MaxWaitTime          *float64          `json:"maxWaitTime,omitempty"`
	MaxDistance          *float64          `json:"maxDistance,omitempty"` // km
	Limit                int               `json:"limit,omitempty"`
}

// Validate enforces the request-level invariants from the external
// interface: coordinate bounds, battery percentage range, preference
// enum membership, and result-count bounds.
func (r *RecommendationRequest) Validate() *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()

	if r.UserID == "" {
		ve.AddErrorWithField(apperror.CodeMissingField, "userId is required", "userId")
	}
	if err := r.Location.Validate(); err != nil {
		ve.Add(err)
	}
	if r.BatteryLevel != nil && (*r.BatteryLevel < 0 || *r.BatteryLevel > 100) {
		ve.AddErrorWithField(apperror.CodeInvalidField, "batteryLevel must be in [0,100]", "batteryLevel")
	}
	switch r.PreferredChargerType {
	case "", ChargerFast, ChargerStandard, ChargerAny:
	default:
		ve.AddErrorWithField(apperror.CodeInvalidField, "preferredChargerType must be fast, standard, or any", "preferredChargerType")
	}
	if r.MaxDistance != nil && *r.MaxDistance <= 0 {
		ve.AddErrorWithField(apperror.CodeInvalidField, "maxDistance must be > 0", "maxDistance")
	}
	switch r.Preference {
	case PreferenceNone, PreferenceNearby, PreferenceReliable:
	default:
		ve.AddErrorWithField(apperror.CodeInvalidField, "preference must be nearby or reliable", "preference")
	}
	if r.Limit != 0 && (r.Limit < minLimit || r.Limit > maxLimit) {
		ve.AddErrorWithField(apperror.CodeInvalidPagination, "limit must be in [1,20]", "limit")
	}

	return ve
}

// EffectiveLimit returns the requested result count, applying the
// default when the caller left it unset.
func (r *RecommendationRequest) EffectiveLimit() int {
	if r.Limit == 0 {
		return defaultLimit
	}
	return r.Limit
}

// RankedStation is a candidate produced by the Optimizer: a station
// together with its distance-adjusted, preference-reweighted score.
type RankedStation struct {
	Station       Station `json:"station"`
	BaseScore     float64 `json:"baseScore"`
	DistanceKm    float64 `json:"distanceKm"`
	AdjustedScore float64 `json:"adjustedScore"`
	Rank          int     `json:"rank"`
}

// Recommendation is the assembled external response for a single
// ranked station, enriched with a narration explanation.
type Recommendation struct {
	StationID   string  `json:"stationId"`
	Name        string  `json:"name"`
	Location    Coordinate `json:"location"`
	Score       float64 `json:"score"`
	DistanceKm  float64 `json:"distanceKm"`
	Explanation string  `json:"explanation"`
}

// RecommendationResponse is the full external payload for a
// recommendation request.
type RecommendationResponse struct {
	RequestID       string           `json:"requestId"`
	UserID          string           `json:"userId"`
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     int64            `json:"generatedAt"`
}
