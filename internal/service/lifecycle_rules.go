package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/snapshot-lifecycle-api/internal/dto"
	"github.com/noah-isme/snapshot-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/snapshot-lifecycle-api/pkg/errors"
)

// buildRetentionRules converts submitted rows into a level keyed map. Every problem is reported in
// a single validation error; nothing is corrected.
func buildRetentionRules(rows []dto.RetentionRuleRow) (models.RetentionRules, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one retention rule is required")
	}

	var problems []string
	rules := make(models.RetentionRules, len(rows))
	for i, row := range rows {
		level, ok := models.ParseClassificationLevel(row.Level)
		if !ok {
			problems = append(problems, fmt.Sprintf("rules[%d]: unknown classification level %q", i, row.Level))
			continue
		}
		if _, dup := rules[level]; dup {
			problems = append(problems, fmt.Sprintf("rules[%d]: duplicate classification level %q", i, level))
			continue
		}
		problems = append(problems, durationProblems(fmt.Sprintf("rules[%d] (%s)", i, level), row.Retention)...)
		rules[level] = row.Retention
	}

	if len(problems) > 0 {
		return nil, invalidRules(problems)
	}
	return rules, nil
}

// validateRetentionRules checks an already keyed rule set.
func validateRetentionRules(rules models.RetentionRules) error {
	if len(rules) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one retention rule is required")
	}
	var problems []string
	for _, level := range rules.Levels() {
		if !level.Valid() {
			problems = append(problems, fmt.Sprintf("unknown classification level %q", level))
			continue
		}
		problems = append(problems, durationProblems(string(level), rules[level])...)
	}
	if len(problems) > 0 {
		return invalidRules(problems)
	}
	return nil
}

func durationProblems(label string, d models.RetentionDuration) []string {
	var problems []string
	if d.MinDays < 0 {
		problems = append(problems, fmt.Sprintf("%s: min_days must be >= 0", label))
	}
	if d.MaxDays < 0 {
		problems = append(problems, fmt.Sprintf("%s: max_days must be >= 0", label))
	}
	if d.MaxDays > 0 && d.MaxDays < d.MinDays {
		problems = append(problems, fmt.Sprintf("%s: max_days (%d) must be >= min_days (%d) or 0 for no ceiling", label, d.MaxDays, d.MinDays))
	}
	return problems
}

func invalidRules(problems []string) error {
	return appErrors.Clone(appErrors.ErrValidation, "invalid retention rules: "+strings.Join(problems, "; "))
}

func parsePolicyStatus(raw string, fallback models.PolicyStatus) (models.PolicyStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return fallback, nil
	}
	status := models.PolicyStatus(trimmed)
	if !status.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown policy status %q", raw))
	}
	return status, nil
}

func parseEnforcementMode(raw string, fallback models.EnforcementMode) (models.EnforcementMode, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return fallback, nil
	}
	mode := models.EnforcementMode(trimmed)
	if !mode.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown enforcement mode %q", raw))
	}
	return mode, nil
}

func normalizeRepositoryIDs(ids []string) []string {
	if len(ids) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
