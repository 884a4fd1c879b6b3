package models

// HealthState is the derived operational state of the whole system.
type HealthState string

const (
	HealthHealthy  HealthState = "HEALTHY"
	HealthWarning  HealthState = "WARNING"
	HealthDegraded HealthState = "DEGRADED"
	HealthCritical HealthState = "CRITICAL"
)

// MetricsReport is the windowed rollup served to the dashboard. It is
// recomputed per request from a storage snapshot and never persisted.
type MetricsReport struct {
	TotalIncidents    int            `json:"total_incidents"`
	OpenIncidents     int            `json:"open_incidents"`
	ResolvedIncidents int            `json:"resolved_incidents"`
	CriticalIncidents int            `json:"critical_incidents"`
	HighIncidents     int            `json:"high_incidents"`
	MediumIncidents   int            `json:"medium_incidents"`
	LowIncidents      int            `json:"low_incidents"`
	AvgResolutionTime int            `json:"avg_resolution_time"`
	IncidentsBySource map[string]int `json:"incidents_by_source"`
	IncidentsByHour   map[string]int `json:"incidents_by_hour"`
	SystemHealth      HealthState    `json:"system_health"`
}
