package cron

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	triggerSeparator    = ";"
	targetSeparator     = ":"
	targetListSeparator = ","
)

// TriggerSpec represents a parsed trigger specification with refresh targets and cron schedule.
type TriggerSpec struct {
	Targets  []string
	CronSpec string
}

// parser accepts standard 5 field cron expressions.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseTriggerSpecs parses a multi-trigger specification string into individual trigger specs.
// The format is: target1,target2:cron_expression;target3:cron_expression2
//
// Example:
//
//	"activities,profile:*/5 * * * *;user:0 * * * *"
//
// Returns an error if:
//   - Any trigger is missing targets or cron expression
//   - Any target name is not in availableTargets
//   - Any cron expression is invalid
//   - Any trigger has duplicate targets
func ParseTriggerSpecs(spec string, availableTargets map[string]bool) ([]TriggerSpec, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("cron spec cannot be empty")
	}

	triggerStrs := strings.Split(spec, triggerSeparator)
	specs := make([]TriggerSpec, 0, len(triggerStrs))

	for _, triggerStr := range triggerStrs {
		triggerStr = strings.TrimSpace(triggerStr)
		if triggerStr == "" {
			continue // trailing semicolon
		}

		triggerSpec, err := parseSingleTrigger(triggerStr, availableTargets)
		if err != nil {
			return nil, err
		}
		specs = append(specs, triggerSpec)
	}

	if len(specs) == 0 {
		return nil, errors.New("no valid triggers found in cron spec")
	}

	return specs, nil
}

func parseSingleTrigger(triggerStr string, availableTargets map[string]bool) (TriggerSpec, error) {
	targetsStr, cronSpec, ok := strings.Cut(triggerStr, targetSeparator)
	if !ok || strings.Contains(cronSpec, targetSeparator) {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: expected format 'targets:cron', got '%s'", triggerStr)
	}
	targetsStr = strings.TrimSpace(targetsStr)
	cronSpec = strings.TrimSpace(cronSpec)

	if targetsStr == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing targets in '%s'", triggerStr)
	}
	if cronSpec == "" {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: missing cron schedule in '%s'", triggerStr)
	}

	targetStrs := strings.Split(targetsStr, targetListSeparator)
	targets := make([]string, 0, len(targetStrs))
	seen := make(map[string]bool, len(targetStrs))

	for _, target := range targetStrs {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if seen[target] {
			return TriggerSpec{}, fmt.Errorf("invalid trigger spec: duplicate target '%s' in '%s'", target, triggerStr)
		}
		seen[target] = true

		if !availableTargets[target] {
			return TriggerSpec{}, fmt.Errorf("invalid trigger spec: unknown target '%s' in '%s' (available: %s)",
				target, triggerStr, formatAvailableTargets(availableTargets))
		}
		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: no valid targets in '%s'", triggerStr)
	}

	if _, err := parser.Parse(cronSpec); err != nil {
		return TriggerSpec{}, fmt.Errorf("invalid trigger spec: invalid cron expression in '%s': %w", triggerStr, err)
	}

	return TriggerSpec{
		Targets:  targets,
		CronSpec: cronSpec,
	}, nil
}

func formatAvailableTargets(availableTargets map[string]bool) string {
	targets := make([]string, 0, len(availableTargets))
	for t := range availableTargets {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return strings.Join(targets, ", ")
}
