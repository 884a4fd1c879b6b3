package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

// SeverityRule pairs a match predicate with the severity it assigns.
type SeverityRule struct {
	Name     string
	Severity models.Severity
	Match    func(source, eventType string, detail models.Detail) bool
}

// Classifier maps events to a severity level. Rules are evaluated in order
// and the first match wins; the ordering is a deliberate tie-break because
// the rules are not mutually exclusive.
type Classifier struct {
	rules []SeverityRule
}

// NewClassifier returns a classifier with the built-in rule set followed by
// any extra rules, typically loaded from a rule pack. Extra rules can only
// rescue events the built-ins would classify LOW.
func NewClassifier(extra ...SeverityRule) *Classifier {
	rules := builtinRules()
	rules = append(rules, extra...)
	return &Classifier{rules: rules}
}

// Classify returns the severity for an event. It is total: events matching
// no rule classify LOW. Missing or unexpected detail fields never fail, they
// simply do not match.
func (c *Classifier) Classify(source, eventType string, detail models.Detail) models.Severity {
	for _, rule := range c.rules {
		if rule.Match(source, eventType, detail) {
			return rule.Severity
		}
	}
	return models.SeverityLow
}

func builtinRules() []SeverityRule {
	return []SeverityRule{
		{
			Name:     "instance-terminated",
			Severity: models.SeverityCritical,
			Match: func(source, _ string, detail models.Detail) bool {
				return isInstanceTerminated(source, detail)
			},
		},
		{
			Name:     "database-failure",
			Severity: models.SeverityCritical,
			Match: func(source, eventType string, _ models.Detail) bool {
				return isDatabaseFailure(source, eventType)
			},
		},
		{
			Name:     "function-error",
			Severity: models.SeverityHigh,
			Match: func(source, _ string, detail models.Detail) bool {
				return isFunctionError(source, detail)
			},
		},
		{
			Name:     "instance-stopped",
			Severity: models.SeverityHigh,
			Match: func(source, _ string, detail models.Detail) bool {
				return isInstanceStopped(source, detail)
			},
		},
		{
			Name:     "alarm-firing",
			Severity: models.SeverityHigh,
			Match: func(source, _ string, detail models.Detail) bool {
				return isAlarmFiring(source, detail)
			},
		},
		{
			Name:     "storage-error",
			Severity: models.SeverityHigh,
			Match: func(source, eventType string, _ models.Detail) bool {
				return isStorageError(source, eventType)
			},
		},
		{
			Name:     "instance-stopping",
			Severity: models.SeverityMedium,
			Match: func(source, _ string, detail models.Detail) bool {
				return isInstanceStopping(source, detail)
			},
		},
		{
			Name:     "autoscaling-activity",
			Severity: models.SeverityMedium,
			Match: func(source, _ string, _ models.Detail) bool {
				return isAutoScalingActivity(source)
			},
		},
	}
}

// packRule is one entry in a YAML severity rule pack.
type packRule struct {
	ID       string        `yaml:"id"`
	Match    packRuleMatch `yaml:"match"`
	Severity string        `yaml:"severity"`
}

// packRuleMatch defines optional attributes for rule matching. All supplied
// attributes must hold for the rule to match.
type packRuleMatch struct {
	Source            string `yaml:"source"`
	EventTypeContains string `yaml:"eventTypeContains"`
	DetailField       string `yaml:"detailField"`
	DetailEquals      string `yaml:"detailEquals"`
}

type rulePackFile struct {
	Rules []packRule `yaml:"rules"`
}

// LoadRulePack reads custom severity rules from a YAML file. An empty path
// or a missing file yields no rules.
func LoadRulePack(path string, logger *slog.Logger) ([]SeverityRule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var file rulePackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	rules := make([]SeverityRule, 0, len(file.Rules))
	for _, entry := range file.Rules {
		severity := models.Severity(strings.ToUpper(entry.Severity))
		if severity.Rank() == 0 {
			logger.Warn("skipping rule with unknown severity",
				slog.String("rule", entry.ID), slog.String("severity", entry.Severity))
			continue
		}
		rules = append(rules, SeverityRule{
			Name:     entry.ID,
			Severity: severity,
			Match:    packMatcher(entry.Match),
		})
	}
	return rules, nil
}

func packMatcher(match packRuleMatch) func(string, string, models.Detail) bool {
	return func(source, eventType string, detail models.Detail) bool {
		if match.Source != "" && source != match.Source {
			return false
		}
		if match.EventTypeContains != "" && !containsFold(eventType, strings.ToLower(match.EventTypeContains)) {
			return false
		}
		if match.DetailField != "" {
			value := detail.String(match.DetailField)
			if value == "" {
				return false
			}
			if match.DetailEquals != "" && value != match.DetailEquals {
				return false
			}
		}
		return true
	}
}
