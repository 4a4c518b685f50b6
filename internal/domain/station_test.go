package domain

import (
	"math"
	"testing"
)

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"valid", Coordinate{Lat: 37.7, Lng: -122.4}, false},
		{"lat too high", Coordinate{Lat: 91, Lng: 0}, true},
		{"lat too low", Coordinate{Lat: -91, Lng: 0}, true},
		{"lng too high", Coordinate{Lat: 0, Lng: 181}, true},
		{"lng too low", Coordinate{Lat: 0, Lng: -181}, true},
		{"boundary valid", Coordinate{Lat: 90, Lng: 180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHaversineKm(t *testing.T) {
	sf := Coordinate{Lat: 37.7749, Lng: -122.4194}
	la := Coordinate{Lat: 34.0522, Lng: -118.2437}

	got := HaversineKm(sf, la)
	// known approximate distance ~559km
	if math.Abs(got-559) > 10 {
		t.Errorf("HaversineKm(SF, LA) = %v, want ≈ 559", got)
	}

	if got := HaversineKm(sf, sf); got != 0 {
		t.Errorf("HaversineKm(same point) = %v, want 0", got)
	}
}

func TestStation_MatchesPreference(t *testing.T) {
	tests := []struct {
		name     string
		charger  ChargerPreference
		pref     ChargerPreference
		expected bool
	}{
		{"any preference matches fast", ChargerFast, ChargerAny, true},
		{"empty preference matches", ChargerFast, "", true},
		{"matching preference", ChargerFast, ChargerFast, true},
		{"mismatched preference", ChargerStandard, ChargerFast, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Station{ChargerType: tt.charger}
			if got := s.MatchesPreference(tt.pref); got != tt.expected {
				t.Errorf("MatchesPreference(%v) = %v, want %v", tt.pref, got, tt.expected)
			}
		})
	}
}

func TestStation_Validate(t *testing.T) {
	valid := Station{
		StationID:     "st-1",
		Location:      Coordinate{Lat: 1, Lng: 1},
		TotalChargers: 4,
	}
	if ve := valid.Validate(); ve.HasErrors() {
		t.Errorf("expected valid station, got errors: %v", ve.ErrorMessages())
	}

	invalid := Station{
		Location:      Coordinate{Lat: 200, Lng: 1},
		TotalChargers: 0,
	}
	ve := invalid.Validate()
	if !ve.HasErrors() {
		t.Error("expected errors for invalid station")
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 errors (missing id, bad lat, totalChargers), got %d", len(ve.Errors))
	}
}
