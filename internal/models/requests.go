package models

import "encoding/json"

// ListIncidentsRequest carries the dashboard list filters.
type ListIncidentsRequest struct {
	Limit    int
	Status   Status
	Severity Severity
}

// ListIncidentsResponse is the list endpoint envelope.
type ListIncidentsResponse struct {
	Incidents []IncidentView `json:"incidents"`
	Count     int            `json:"count"`
}

// ProcessResult reports the outcome of one incident-processing invocation.
// A suppressed low-severity event is a normal outcome, not an error.
type ProcessResult struct {
	Created    bool     `json:"-"`
	IncidentID string   `json:"incidentId,omitempty"`
	Severity   Severity `json:"severity,omitempty"`
	Message    string   `json:"message"`
}

// IncidentView is the read-side shape of an incident: the stored details
// and analysis blobs are decoded back into structures for JSON consumers.
type IncidentView struct {
	IncidentID string   `json:"incident_id"`
	Timestamp  int64    `json:"timestamp"`
	Source     string   `json:"source"`
	EventType  string   `json:"event_type"`
	Severity   Severity `json:"severity"`
	Status     Status   `json:"status"`
	Details    any      `json:"details"`
	Analysis   any      `json:"analysis"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	ResolvedAt string   `json:"resolved_at,omitempty"`
}

// NewIncidentView decodes the stored blobs of an incident. A blob that fails
// to parse is surfaced as the raw string unchanged, never as an error.
func NewIncidentView(inc Incident) IncidentView {
	return IncidentView{
		IncidentID: inc.IncidentID,
		Timestamp:  inc.Timestamp,
		Source:     inc.Source,
		EventType:  inc.EventType,
		Severity:   inc.Severity,
		Status:     inc.Status,
		Details:    DecodeBlob(inc.Details),
		Analysis:   DecodeBlob(inc.Analysis),
		CreatedAt:  inc.CreatedAt,
		UpdatedAt:  inc.UpdatedAt,
		ResolvedAt: inc.ResolvedAt,
	}
}

// DecodeBlob parses a stored JSON blob. Corrupt blobs fall back to the raw
// string so a bad record can never poison a read path.
func DecodeBlob(blob string) any {
	if blob == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(blob), &v); err != nil {
		return blob
	}
	return v
}
