package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

func TestClassifyBuiltinRules(t *testing.T) {
	cases := []struct {
		name      string
		source    string
		eventType string
		detail    models.Detail
		want      models.Severity
	}{
		{"ec2 terminated", SourceEC2, "EC2 Instance State-change Notification", models.Detail{"state": "terminated"}, models.SeverityCritical},
		{"rds failure", SourceRDS, "RDS DB Instance Failure Event", models.Detail{}, models.SeverityCritical},
		{"rds failure case-insensitive", SourceRDS, "FAILURE detected", nil, models.SeverityCritical},
		{"lambda error type", SourceLambda, "Lambda Function Invocation Result", models.Detail{"errorType": "Runtime.ExitError"}, models.SeverityHigh},
		{"lambda empty error type", SourceLambda, "Lambda Function Invocation Result", models.Detail{"errorType": ""}, models.SeverityLow},
		{"ec2 stopped", SourceEC2, "EC2 Instance State-change Notification", models.Detail{"state": "stopped"}, models.SeverityHigh},
		{"cloudwatch alarm", SourceCloudWatch, "CloudWatch Alarm State Change", models.Detail{"state": map[string]any{"value": "ALARM"}}, models.SeverityHigh},
		{"cloudwatch ok", SourceCloudWatch, "CloudWatch Alarm State Change", models.Detail{"state": map[string]any{"value": "OK"}}, models.SeverityLow},
		{"s3 error", SourceS3, "S3 Replication Error", models.Detail{}, models.SeverityHigh},
		{"ec2 stopping", SourceEC2, "EC2 Instance State-change Notification", models.Detail{"state": "stopping"}, models.SeverityMedium},
		{"autoscaling unconditional", SourceAutoScaling, "Launch", models.Detail{}, models.SeverityMedium},
		{"state equality is case-sensitive", SourceEC2, "EC2 Instance State-change Notification", models.Detail{"state": "Terminated"}, models.SeverityLow},
		{"unknown source", "unknown.service", "anything", models.Detail{}, models.SeverityLow},
		{"nil detail", SourceEC2, "EC2 Instance State-change Notification", nil, models.SeverityLow},
		{"non-string state", SourceEC2, "EC2 Instance State-change Notification", models.Detail{"state": 42}, models.SeverityLow},
	}

	classifier := NewClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifier.Classify(tc.source, tc.eventType, tc.detail)
			if got != tc.want {
				t.Fatalf("Classify(%s, %s) = %s, want %s", tc.source, tc.eventType, got, tc.want)
			}
		})
	}
}

func TestClassifyOrderingTerminatedBeatsStopping(t *testing.T) {
	// An autoscaling-initiated termination carries both signals; the
	// CRITICAL rule must win because it is evaluated first.
	classifier := NewClassifier()
	detail := models.Detail{"state": "terminated", "cause": "autoscaling"}
	if got := classifier.Classify(SourceEC2, "termination notice", detail); got != models.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %s", got)
	}
}

func TestLoadRulePack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(`rules:
  - id: ecs-task-stopped
    match:
      source: "aws.ecs"
      detailField: "stoppedReason"
    severity: high
  - id: bad-severity
    match:
      source: "aws.ecs"
    severity: urgent
`), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRulePack(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("load rule pack: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 usable rule, got %d", len(rules))
	}

	classifier := NewClassifier(rules...)
	got := classifier.Classify("aws.ecs", "ECS Task State Change", models.Detail{"stoppedReason": "OutOfMemory"})
	if got != models.SeverityHigh {
		t.Fatalf("expected HIGH from rule pack, got %s", got)
	}

	// Built-ins keep precedence over pack rules.
	got = classifier.Classify(SourceEC2, "state change", models.Detail{"state": "terminated"})
	if got != models.SeverityCritical {
		t.Fatalf("expected built-in CRITICAL to win, got %s", got)
	}
}

func TestLoadRulePackMissingFile(t *testing.T) {
	rules, err := LoadRulePack("does-not-exist.yaml", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rules != nil {
		t.Fatalf("expected no rules for missing file")
	}
}
