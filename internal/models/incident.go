package models

// Severity ranks an incident by urgency.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the position of the severity in the urgency order. Unknown
// values rank below LOW.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is as urgent as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// Status captures the incident lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Detail is the free-form payload attached to an upstream event. Field
// semantics vary by source domain; absent fields are treated as missing,
// never as errors.
type Detail map[string]any

// String returns the string value under key, or "" when the key is absent
// or holds a non-string value.
func (d Detail) String(key string) string {
	if d == nil {
		return ""
	}
	v, ok := d[key].(string)
	if !ok {
		return ""
	}
	return v
}

// NestedString returns the string value under key.sub for payloads that nest
// objects, such as CloudWatch alarm state.
func (d Detail) NestedString(key, sub string) string {
	if d == nil {
		return ""
	}
	nested, ok := d[key].(map[string]any)
	if !ok {
		return ""
	}
	v, ok := nested[sub].(string)
	if !ok {
		return ""
	}
	return v
}

// IncidentEvent is a structured infrastructure event supplied by the
// upstream event source.
type IncidentEvent struct {
	Source    string `json:"source"`
	EventType string `json:"eventType"`
	Detail    Detail `json:"detail"`
}

// Analysis is the structured root-cause assessment attached to an incident.
type Analysis struct {
	Summary           string   `json:"summary"`
	SeverityReasoning string   `json:"severity_reasoning"`
	RootCauses        []string `json:"root_causes"`
	Recommendations   []string `json:"recommendations"`
	ImpactAssessment  []string `json:"impact_assessment"`
	NextSteps         []string `json:"next_steps"`
	ConfidenceScore   float64  `json:"confidence_score"`
}

// Incident is the persisted record. Details and Analysis are stored as
// opaque serialized blobs and parsed back only at the read boundary.
type Incident struct {
	IncidentID string   `json:"incident_id"`
	Timestamp  int64    `json:"timestamp"`
	Source     string   `json:"source"`
	EventType  string   `json:"event_type"`
	Severity   Severity `json:"severity"`
	Status     Status   `json:"status"`
	Details    string   `json:"details"`
	Analysis   string   `json:"analysis"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	ResolvedAt string   `json:"resolved_at,omitempty"`
}
