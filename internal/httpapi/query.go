package httpapi

import (
	"net/http"
	"strconv"

	"evchargenet/internal/domain"
	"evchargenet/pkg/apperror"
)

// parseRecommendQuery builds a RecommendationRequest from GET
// /recommend's query parameters: userId/lat/lon required, the rest
// optional. Validate() runs downstream in the Recommendation Handler,
// so this only needs to parse numeric fields without rejecting them.
func parseRecommendQuery(r *http.Request) (domain.RecommendationRequest, error) {
	q := r.URL.Query()

	userID := q.Get("userId")
	if userID == "" {
		return domain.RecommendationRequest{}, apperror.NewWithField(apperror.CodeMissingField, "userId is required", "userId")
	}

	lat, err := parseFloatParam(q, "lat")
	if err != nil {
		return domain.RecommendationRequest{}, err
	}
	lon, err := parseFloatParam(q, "lon")
	if err != nil {
		return domain.RecommendationRequest{}, err
	}

	req := domain.RecommendationRequest{
		UserID:               userID,
		Location:             domain.Coordinate{Lat: lat, Lng: lon},
		VehicleType:          q.Get("vehicleType"),
		PreferredChargerType: domain.ChargerPreference(q.Get("chargerType")),
		Preference:           domain.RankingPreference(q.Get("preference")),
	}

	if v := q.Get("batteryLevel"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.RecommendationRequest{}, apperror.NewWithField(apperror.CodeInvalidField, "batteryLevel must be numeric", "batteryLevel")
		}
		req.BatteryLevel = &f
	}
	if v := q.Get("maxWaitTime"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.RecommendationRequest{}, apperror.NewWithField(apperror.CodeInvalidField, "maxWaitTime must be numeric", "maxWaitTime")
		}
		req.MaxWaitTime = &f
	}
	if v := q.Get("maxDistance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return domain.RecommendationRequest{}, apperror.NewWithField(apperror.CodeInvalidField, "maxDistance must be numeric", "maxDistance")
		}
		req.MaxDistance = &f
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.RecommendationRequest{}, apperror.NewWithField(apperror.CodeInvalidPagination, "limit must be an integer", "limit")
		}
		req.Limit = n
	}

	return req, nil
}

func parseFloatParam(q map[string][]string, name string) (float64, error) {
	values, ok := q[name]
	if !ok || len(values) == 0 || values[0] == "" {
		return 0, apperror.NewWithField(apperror.CodeMissingField, name+" is required", name)
	}
	f, err := strconv.ParseFloat(values[0], 64)
	if err != nil {
		return 0, apperror.NewWithField(apperror.CodeInvalidField, name+" must be numeric", name)
	}
	return f, nil
}
