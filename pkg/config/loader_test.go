package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adspilot/core/pkg/config"
	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadMergesDefaultsWithUserConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "platforms.yaml", `
platforms:
  google_ads:
    kind: google_ads
    enabled: true
    rate_limit_capacity: 20
    rate_limit_refill_rate: 5
`)
	writeFile(t, dir, "guardrails.yaml", `
confidence_threshold: 0.85
max_daily_adjustments: 10
max_budget_reallocation_fraction_per_day: 0.3
max_single_budget_increase_fraction: 0.25
min_campaign_runtime_hours_before_pause: 24
major_change_fraction: 0.2
automation_level: SEMI
timezone: America/New_York
`)

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.True(t, cfg.Platforms["google_ads"].Enabled)
	require.Equal(t, 0.85, cfg.Guardrails.ConfidenceThreshold)
	require.Equal(t, domain.AutomationSemi, cfg.Guardrails.AutomationLevel)
	require.Equal(t, "America/New_York", cfg.Timezone)
}

func TestLoadFallsBackToDefaultsWhenFilesAbsent(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, domain.AutomationSemi, cfg.Guardrails.AutomationLevel)
	require.Empty(t, cfg.Platforms)
}

func TestLoadRejectsInvalidAutomationLevel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guardrails.yaml", `
automation_level: YOLO
timezone: UTC
confidence_threshold: 0.5
max_daily_adjustments: 5
major_change_fraction: 0.2
`)
	_, err := config.Load(dir)
	require.Error(t, err)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_RATE_CAP", "42")
	writeFile(t, dir, "platforms.yaml", `
platforms:
  meta_ads:
    kind: meta_ads
    enabled: true
    rate_limit_capacity: ${TEST_RATE_CAP}
    rate_limit_refill_rate: 1
`)
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 42.0, cfg.Platforms["meta_ads"].RateLimitCapacity)
}
