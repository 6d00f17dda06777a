package handler

import (
	"net/http"

	"github.com/markcoleman/Aggregator-the-agitator/internal/consent/models"
)

// parseRecordFilter builds a record filter from the request's query string.
// Absent parameters mean no filtering.
func parseRecordFilter(r *http.Request) (*models.RecordFilter, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}

	status, err := models.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return &models.RecordFilter{Status: &status}, nil
}
