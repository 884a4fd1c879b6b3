package engine

import (
	"fmt"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// analysisTemplate holds the canned portion of an analysis for one
// (source, event-key) pair.
type analysisTemplate struct {
	summary         string
	causes          []string
	recommendations []string
}

// analysisTemplates covers the well-known source domains. Everything else
// falls back to a generic template.
var analysisTemplates = map[string]map[string]analysisTemplate{
	SourceEC2: {
		"terminated": {
			summary: "EC2 instance unexpectedly terminated",
			causes:  []string{"Instance failure", "Auto Scaling action", "Manual termination", "Spot instance interruption"},
			recommendations: []string{
				"Check CloudWatch logs for error messages",
				"Verify Auto Scaling group configuration",
				"Review instance health checks",
				"Consider using Reserved Instances for critical workloads",
			},
		},
		"stopped": {
			summary: "EC2 instance stopped",
			causes:  []string{"Manual stop", "System maintenance", "Instance failure", "Resource constraints"},
			recommendations: []string{
				"Check instance status and system logs",
				"Verify if stop was intentional",
				"Monitor for automatic restart",
				"Review instance sizing and resource usage",
			},
		},
	},
	SourceRDS: {
		"failure": {
			summary: "RDS database failure detected",
			causes:  []string{"Connection limit exceeded", "Storage full", "Parameter group issues", "Network connectivity"},
			recommendations: []string{
				"Check database connection count",
				"Monitor storage utilization",
				"Review parameter group settings",
				"Verify security group rules",
			},
		},
	},
	SourceLambda: {
		"error": {
			summary: "Lambda function execution error",
			causes:  []string{"Code errors", "Timeout", "Memory limit", "Permission issues"},
			recommendations: []string{
				"Review function logs in CloudWatch",
				"Check function timeout settings",
				"Monitor memory usage",
				"Verify IAM permissions",
			},
		},
	},
	SourceS3: {
		"error": {
			summary: "S3 service error detected",
			causes:  []string{"Permission denied", "Bucket policy issues", "Network connectivity", "Service limits"},
			recommendations: []string{
				"Check bucket policies and ACLs",
				"Verify IAM permissions",
				"Monitor request rates",
				"Review CloudTrail logs",
			},
		},
	},
}

// Synthesize produces the structured analysis for an event. It is
// deterministic and total: identical inputs yield identical output, and
// unknown sources receive a generic analysis rather than an error.
func Synthesize(source, eventType string, detail models.Detail) models.Analysis {
	template, ok := analysisTemplates[source][findEventKey(eventType, detail)]
	if !ok {
		template = genericTemplate(source, eventType)
	}

	return models.Analysis{
		Summary:           template.summary,
		SeverityReasoning: severityReasoning(source, eventType, detail),
		RootCauses:        template.causes,
		Recommendations:   template.recommendations,
		ImpactAssessment:  assessImpact(source, detail),
		NextSteps:         nextSteps(source),
		ConfidenceScore:   confidenceScore(source, detail),
	}
}

// findEventKey selects the template key for an event. Precedence matters:
// a termination outranks a stop, which outranks a generic failure.
func findEventKey(eventType string, detail models.Detail) string {
	switch {
	case containsFold(eventType, "terminated") || detail.String("state") == "terminated":
		return "terminated"
	case containsFold(eventType, "stopped") || detail.String("state") == "stopped":
		return "stopped"
	case containsFold(eventType, "failure") || containsFold(eventType, "error"):
		return "failure"
	case detail.String("errorType") != "":
		return "error"
	default:
		return "default"
	}
}

func genericTemplate(source, eventType string) analysisTemplate {
	return analysisTemplate{
		summary: fmt.Sprintf("%s service event detected: %s", source, eventType),
		causes:  []string{"Service-specific issue", "Configuration problem", "Resource constraints"},
		recommendations: []string{
			"Check service-specific logs",
			"Review recent configuration changes",
			"Monitor resource utilization",
			"Consult AWS service documentation",
		},
	}
}

// severityReasoning explains the classification in prose. It keys off the
// same predicates as the classifier's CRITICAL/HIGH rules.
func severityReasoning(source, eventType string, detail models.Detail) string {
	switch {
	case isInstanceTerminated(source, detail):
		return "Critical: Instance termination can cause service outages and data loss"
	case isDatabaseFailure(source, eventType):
		return "Critical: Database failures directly impact application availability"
	case isFunctionError(source, detail):
		return "High: Function errors can disrupt serverless application workflows"
	default:
		return "Medium: Event requires monitoring but may not immediately impact services"
	}
}

func assessImpact(source string, detail models.Detail) []string {
	var impacts []string

	switch source {
	case SourceEC2:
		impacts = append(impacts, "Potential service downtime", "Application unavailability")
		if detail.String("state") == "terminated" {
			impacts = append(impacts, "Possible data loss")
		}
	case SourceRDS:
		impacts = append(impacts, "Database connectivity issues", "Application data access problems", "Potential transaction failures")
	case SourceLambda:
		impacts = append(impacts, "Serverless function failures", "API endpoint disruptions", "Workflow interruptions")
	}

	if len(impacts) == 0 {
		impacts = []string{"Impact assessment pending"}
	}
	return impacts
}

// nextSteps lists the follow-up actions for the operator, generic ones
// first and domain-specific ones appended.
func nextSteps(source string) []string {
	steps := []string{
		"Monitor incident status",
		"Check related AWS service health",
		"Review CloudWatch metrics and alarms",
	}

	switch source {
	case SourceEC2:
		steps = append(steps, "Verify instance replacement if needed", "Check Auto Scaling group status")
	case SourceRDS:
		steps = append(steps, "Test database connectivity", "Review database performance metrics")
	}
	return steps
}

// confidenceScore starts at a 0.7 baseline, rewards well-known sources and
// richer detail payloads, and caps at 1.0.
func confidenceScore(source string, detail models.Detail) float64 {
	score := 0.7
	if isWellKnownSource(source) {
		score += 0.2
	}
	if len(detail) > 2 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
