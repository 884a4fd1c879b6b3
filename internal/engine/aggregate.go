package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
	"github.com/cloudopsstack/cloudops-engine/internal/utils"
)

// Aggregate computes the dashboard rollup over a window of incidents. The
// caller supplies records already filtered to the reporting window; now
// anchors the 24 hourly histogram buckets.
func Aggregate(incidents []models.Incident, now time.Time) models.MetricsReport {
	report := models.MetricsReport{
		TotalIncidents:    len(incidents),
		IncidentsBySource: make(map[string]int),
		IncidentsByHour:   hourBuckets(now),
	}

	var (
		totalMinutes  float64
		resolvedCount int
		openCritical  int
		openHigh      int
	)

	for _, inc := range incidents {
		switch inc.Status {
		case models.StatusOpen:
			report.OpenIncidents++
			switch inc.Severity {
			case models.SeverityCritical:
				openCritical++
			case models.SeverityHigh:
				openHigh++
			}
		case models.StatusResolved:
			report.ResolvedIncidents++
		}

		switch inc.Severity {
		case models.SeverityCritical:
			report.CriticalIncidents++
		case models.SeverityHigh:
			report.HighIncidents++
		case models.SeverityMedium:
			report.MediumIncidents++
		case models.SeverityLow:
			report.LowIncidents++
		}

		source := inc.Source
		if source == "" {
			source = "unknown"
		}
		report.IncidentsBySource[source]++

		// Records with an unparsable created_at fall out of the histogram
		// and the resolution average rather than skewing them.
		created, createdErr := utils.ParseRFC3339(inc.CreatedAt)
		if createdErr == nil {
			key := hourKey(created)
			if _, ok := report.IncidentsByHour[key]; ok {
				report.IncidentsByHour[key]++
			}
		}

		if inc.Status == models.StatusResolved && inc.ResolvedAt != "" && createdErr == nil {
			if resolved, err := utils.ParseRFC3339(inc.ResolvedAt); err == nil {
				totalMinutes += utils.DurationMinutes(created, resolved)
				resolvedCount++
			}
		}
	}

	if resolvedCount > 0 {
		report.AvgResolutionTime = int(math.Round(totalMinutes / float64(resolvedCount)))
	}

	report.SystemHealth = systemHealth(openCritical, openHigh)
	return report
}

// systemHealth derives the overall state from open incidents only. The
// checks are ordered from worst to best and the first hit wins.
func systemHealth(openCritical, openHigh int) models.HealthState {
	switch {
	case openCritical > 0:
		return models.HealthCritical
	case openHigh > 2:
		return models.HealthDegraded
	case openHigh > 0:
		return models.HealthWarning
	default:
		return models.HealthHealthy
	}
}

// hourBuckets pre-initialises the 24 hourly buckets ending at now so the
// dashboard always renders a full day, including empty hours.
func hourBuckets(now time.Time) map[string]int {
	buckets := make(map[string]int, 24)
	for i := 23; i >= 0; i-- {
		buckets[hourKey(now.Add(-time.Duration(i)*time.Hour))] = 0
	}
	return buckets
}

func hourKey(t time.Time) string {
	return fmt.Sprintf("%02d:00", t.UTC().Hour())
}
