package engine

import (
	"strings"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// Source domains recognised by the built-in rule set.
const (
	SourceEC2         = "aws.ec2"
	SourceRDS         = "aws.rds"
	SourceLambda      = "aws.lambda"
	SourceCloudWatch  = "aws.cloudwatch"
	SourceS3          = "aws.s3"
	SourceAutoScaling = "aws.autoscaling"
)

// The predicates below are the single source of truth for "what makes an
// event critical or high". Both severity classification and the synthesised
// severity reasoning key off them, so the two can never drift apart.
//
// Event-type checks are case-insensitive substring matches; detail field
// checks are case-sensitive exact matches.

func isInstanceTerminated(source string, detail models.Detail) bool {
	return source == SourceEC2 && detail.String("state") == "terminated"
}

func isDatabaseFailure(source, eventType string) bool {
	return source == SourceRDS && containsFold(eventType, "failure")
}

func isFunctionError(source string, detail models.Detail) bool {
	return source == SourceLambda && detail.String("errorType") != ""
}

func isInstanceStopped(source string, detail models.Detail) bool {
	return source == SourceEC2 && detail.String("state") == "stopped"
}

func isAlarmFiring(source string, detail models.Detail) bool {
	return source == SourceCloudWatch && detail.NestedString("state", "value") == "ALARM"
}

func isStorageError(source, eventType string) bool {
	return source == SourceS3 && containsFold(eventType, "error")
}

func isInstanceStopping(source string, detail models.Detail) bool {
	return source == SourceEC2 && detail.String("state") == "stopping"
}

func isAutoScalingActivity(source string) bool {
	return source == SourceAutoScaling
}

// isWellKnownSource reports whether the source has dedicated analysis
// templates, which raises synthesis confidence.
func isWellKnownSource(source string) bool {
	switch source {
	case SourceEC2, SourceRDS, SourceLambda:
		return true
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
