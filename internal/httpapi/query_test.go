package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"evchargenet/pkg/apperror"
)

func TestParseRecommendQuery_RequiredFieldsMissing(t *testing.T) {
	r := &http.Request{URL: &url.URL{RawQuery: "lat=37.7&lon=-122.4"}}
	_, err := parseRecommendQuery(r)
	if !apperror.Is(err, apperror.CodeMissingField) {
		t.Errorf("expected CodeMissingField for missing userId, got %v", err)
	}
}

func TestParseRecommendQuery_Full(t *testing.T) {
	r := &http.Request{URL: &url.URL{RawQuery: "userId=u1&lat=37.77&lon=-122.41&batteryLevel=42&limit=3&preference=nearby"}}

	req, err := parseRecommendQuery(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.UserID != "u1" || req.Location.Lat != 37.77 || req.Location.Lng != -122.41 {
		t.Errorf("unexpected base fields: %+v", req)
	}
	if req.BatteryLevel == nil || *req.BatteryLevel != 42 {
		t.Errorf("expected batteryLevel=42, got %v", req.BatteryLevel)
	}
	if req.Limit != 3 {
		t.Errorf("expected limit=3, got %d", req.Limit)
	}
	if req.Preference != "nearby" {
		t.Errorf("expected preference=nearby, got %q", req.Preference)
	}
}

func TestParseRecommendQuery_InvalidNumeric(t *testing.T) {
	r := &http.Request{URL: &url.URL{RawQuery: "userId=u1&lat=abc&lon=-122.4"}}
	_, err := parseRecommendQuery(r)
	if !apperror.Is(err, apperror.CodeInvalidField) {
		t.Errorf("expected CodeInvalidField for non-numeric lat, got %v", err)
	}
}
