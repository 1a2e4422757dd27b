package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAvailableTargets = map[string]bool{
	"activities":   true,
	"profile": true,
	"user":     true,
}

func TestParseTriggerSpecs_ValidSingleTrigger(t *testing.T) {
	specs, err := ParseTriggerSpecs("activities:0 2 * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"activities"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)
}

func TestParseTriggerSpecs_ValidMultipleTargets(t *testing.T) {
	specs, err := ParseTriggerSpecs("activities,profile:0 2 * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"activities", "profile"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)
}

func TestParseTriggerSpecs_ValidMultipleTriggers(t *testing.T) {
	specs, err := ParseTriggerSpecs("activities,profile:0 2 * * *;user:0 3 * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"activities", "profile"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"user"}, specs[1].Targets)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_WhitespaceHandling(t *testing.T) {
	specs, err := ParseTriggerSpecs("  activities , profile : 0 2 * * * ; user : 0 3 * * *  ", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"activities", "profile"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"user"}, specs[1].Targets)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_TrailingSemicolon(t *testing.T) {
	specs, err := ParseTriggerSpecs("activities:0 2 * * *;", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	assert.Equal(t, []string{"activities"}, specs[0].Targets)
}

func TestParseTriggerSpecs_DuplicateTargetsAcrossTriggers(t *testing.T) {
	// Duplicate targets across different triggers should be allowed
	specs, err := ParseTriggerSpecs("activities:0 2 * * *;activities:0 14 * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, []string{"activities"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"activities"}, specs[1].Targets)
	assert.Equal(t, "0 14 * * *", specs[1].CronSpec)
}

func TestParseTriggerSpecs_EmptySpec(t *testing.T) {
	_, err := ParseTriggerSpecs("", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestParseTriggerSpecs_WhitespaceOnlySpec(t *testing.T) {
	_, err := ParseTriggerSpecs("   ", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestParseTriggerSpecs_MissingColon(t *testing.T) {
	_, err := ParseTriggerSpecs("activities,profile", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected format 'targets:cron'")
}

func TestParseTriggerSpecs_MissingTargets(t *testing.T) {
	_, err := ParseTriggerSpecs(":0 2 * * *", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing targets")
}

func TestParseTriggerSpecs_MissingCronSpec(t *testing.T) {
	_, err := ParseTriggerSpecs("activities,profile:", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing cron schedule")
}

func TestParseTriggerSpecs_InvalidCronExpression(t *testing.T) {
	_, err := ParseTriggerSpecs("activities:invalid cron", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestParseTriggerSpecs_UnknownTarget(t *testing.T) {
	_, err := ParseTriggerSpecs("unknown:0 2 * * *", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target 'unknown'")
	assert.Contains(t, err.Error(), "(available: ")
}

func TestParseTriggerSpecs_DuplicateTargetInTrigger(t *testing.T) {
	_, err := ParseTriggerSpecs("activities,activities:0 2 * * *", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate target 'activities'")
}

func TestParseTriggerSpecs_OnlySemicolons(t *testing.T) {
	_, err := ParseTriggerSpecs(";;;", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid triggers")
}

func TestParseTriggerSpecs_EmptyTargetInList(t *testing.T) {
	// Should skip empty target names and succeed
	specs, err := ParseTriggerSpecs("activities,,profile:0 2 * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, []string{"activities", "profile"}, specs[0].Targets)
}

func TestParseTriggerSpecs_AllTargetsEmpty(t *testing.T) {
	_, err := ParseTriggerSpecs(",,:0 2 * * *", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid targets")
}

func TestParseTriggerSpecs_ComplexValid(t *testing.T) {
	specs, err := ParseTriggerSpecs("activities:0 2 * * *;profile:0 3 * * *;user:*/5 * * * *", testAvailableTargets)
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, []string{"activities"}, specs[0].Targets)
	assert.Equal(t, "0 2 * * *", specs[0].CronSpec)

	assert.Equal(t, []string{"profile"}, specs[1].Targets)
	assert.Equal(t, "0 3 * * *", specs[1].CronSpec)

	assert.Equal(t, []string{"user"}, specs[2].Targets)
	assert.Equal(t, "*/5 * * * *", specs[2].CronSpec)
}

func TestParseTriggerSpecs_MultipleColons(t *testing.T) {
	_, err := ParseTriggerSpecs("activities:0:2:* * *", testAvailableTargets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected format 'targets:cron'")
}
