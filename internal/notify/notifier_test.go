package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

type fakePublisher struct {
	subjects []string
	bodies   []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	return nil
}

func sampleIncident(severity models.Severity) models.Incident {
	return models.Incident{
		IncidentID: "aws.ec2-1700000000-000042",
		Timestamp:  1700000000,
		Source:     "aws.ec2",
		EventType:  "EC2 Instance State-change Notification",
		Severity:   severity,
		Status:     models.StatusOpen,
		Details:    `{"state":"terminated"}`,
		Analysis:   `{"summary":"EC2 instance unexpectedly terminated","recommendations":["Check CloudWatch logs for error messages","Review instance health checks"]}`,
		CreatedAt:  "2024-03-01T12:00:00Z",
		UpdatedAt:  "2024-03-01T12:00:00Z",
	}
}

func TestGateSkipsBelowHigh(t *testing.T) {
	publisher := &fakePublisher{}
	gate := NewGate(publisher, nil)

	gate.MaybeNotify(context.Background(), sampleIncident(models.SeverityMedium))
	gate.MaybeNotify(context.Background(), sampleIncident(models.SeverityLow))

	if len(publisher.subjects) != 0 {
		t.Fatalf("expected no publishes for sub-HIGH severities, got %d", len(publisher.subjects))
	}
}

func TestGatePublishesHighAndCritical(t *testing.T) {
	publisher := &fakePublisher{}
	gate := NewGate(publisher, nil)

	gate.MaybeNotify(context.Background(), sampleIncident(models.SeverityHigh))
	gate.MaybeNotify(context.Background(), sampleIncident(models.SeverityCritical))

	if len(publisher.subjects) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(publisher.subjects))
	}
	if publisher.subjects[1] != "CloudOps Alert: CRITICAL - aws.ec2" {
		t.Fatalf("unexpected subject: %s", publisher.subjects[1])
	}
}

func TestGateSwallowsDispatchFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	gate := NewGate(publisher, nil)

	// Must not panic or propagate; the incident is still processed.
	gate.MaybeNotify(context.Background(), sampleIncident(models.SeverityCritical))
}

func TestFormatMessageLayout(t *testing.T) {
	body := FormatMessage(sampleIncident(models.SeverityCritical))

	for _, want := range []string{
		"CloudOps Autopilot - Incident Alert",
		"Incident ID: aws.ec2-1700000000-000042",
		"Severity: CRITICAL",
		"Source: aws.ec2",
		"Event Type: EC2 Instance State-change Notification",
		"Time: 2024-03-01T12:00:00Z",
		"EC2 instance unexpectedly terminated",
		"- Check CloudWatch logs for error messages",
		"Dashboard: View details in your CloudOps dashboard",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("message missing %q:\n%s", want, body)
		}
	}
}

func TestFormatMessageCorruptAnalysis(t *testing.T) {
	inc := sampleIncident(models.SeverityHigh)
	inc.Analysis = "not json"

	body := FormatMessage(inc)
	if !strings.Contains(body, "Incident ID:") {
		t.Fatalf("corrupt analysis must not break formatting:\n%s", body)
	}
	if strings.Contains(body, "Recommended Actions") {
		t.Fatalf("corrupt analysis should drop the recommendations section")
	}
}
