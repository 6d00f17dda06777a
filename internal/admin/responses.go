package admin

import "github.com/markcoleman/Aggregator-the-agitator/internal/audit"

// EventsResponse wraps the audit event list for HTTP response.
type EventsResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}
