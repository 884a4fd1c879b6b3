package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudopsstack/cloudops-engine/internal/metrics"
	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// Publisher is the outbound notification channel: one best-effort publish,
// no response consumed beyond success or failure.
type Publisher interface {
	Publish(ctx context.Context, subject, body string) error
}

// NoopPublisher discards notifications. Used when no channel is configured.
type NoopPublisher struct{}

// Publish drops the message and reports success.
func (NoopPublisher) Publish(context.Context, string, string) error { return nil }

// Gate decides whether an incident warrants a notification and dispatches
// it. Dispatch failure is logged and counted, never propagated: the
// triggering incident is still considered successfully processed.
type Gate struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewGate constructs a Gate. Nil arguments fall back to a no-op publisher
// and the default logger.
func NewGate(publisher Publisher, logger *slog.Logger) *Gate {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{publisher: publisher, logger: logger}
}

// MaybeNotify publishes an alert for HIGH and CRITICAL incidents and is a
// no-op for everything below.
func (g *Gate) MaybeNotify(ctx context.Context, inc models.Incident) {
	if !inc.Severity.AtLeast(models.SeverityHigh) {
		return
	}

	subject := fmt.Sprintf("CloudOps Alert: %s - %s", inc.Severity, inc.Source)
	body := FormatMessage(inc)

	if err := g.publisher.Publish(ctx, subject, body); err != nil {
		metrics.ObserveNotification(metrics.OutcomeError)
		g.logger.Error("notification dispatch failed",
			slog.String("incident_id", inc.IncidentID), slog.Any("error", err))
		return
	}
	metrics.ObserveNotification(metrics.OutcomeSuccess)
	g.logger.Info("notification sent", slog.String("incident_id", inc.IncidentID))
}

// FormatMessage renders the fixed-layout human-readable alert body.
func FormatMessage(inc models.Incident) string {
	var analysis models.Analysis
	// The blob was written by this engine; a decode failure just drops the
	// analysis section rather than the whole alert.
	_ = json.Unmarshal([]byte(inc.Analysis), &analysis)

	var b strings.Builder
	b.WriteString("CloudOps Autopilot - Incident Alert\n\n")
	fmt.Fprintf(&b, "Incident ID: %s\n", inc.IncidentID)
	fmt.Fprintf(&b, "Severity: %s\n", inc.Severity)
	fmt.Fprintf(&b, "Source: %s\n", inc.Source)
	fmt.Fprintf(&b, "Event Type: %s\n", inc.EventType)
	fmt.Fprintf(&b, "Time: %s\n", inc.CreatedAt)

	if analysis.Summary != "" {
		fmt.Fprintf(&b, "\nAnalysis:\n%s\n", analysis.Summary)
	}
	if len(analysis.Recommendations) > 0 {
		b.WriteString("\nRecommended Actions:\n")
		for _, rec := range analysis.Recommendations {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
	}

	b.WriteString("\nDashboard: View details in your CloudOps dashboard")
	return b.String()
}
