// Package config loads and validates AdsPilot's two YAML configuration
// documents, following tarsy's pkg/config loader: a `.env` file via
// godotenv, `${VAR}` expansion via ExpandEnv, yaml.v3 parsing, built-in
// defaults merged with user overrides via mergo/hand-written map merges,
// and validation before the result is handed to the rest of the process.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/adspilot/core/pkg/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	platformsFileName  = "platforms.yaml"
	guardrailsFileName = "guardrails.yaml"
)

// Config is the fully merged, validated configuration the rest of the
// process consumes.
type Config struct {
	Platforms            map[string]*PlatformConfig
	Guardrails           domain.Guardrails
	Timezone             string
	PerCampaignOverrides map[string]domain.GuardrailOverride
}

// Stats is a ConfigStats-style startup summary, logged once and exposed
// on the health endpoint (SPEC_FULL §A.1).
type Stats struct {
	PlatformCount        int
	EnabledPlatformCount int
	OverrideCount        int
	AutomationLevel      domain.AutomationLevel
}

func (c Config) Stats() Stats {
	enabled := 0
	for _, p := range c.Platforms {
		if p.Enabled {
			enabled++
		}
	}
	return Stats{
		PlatformCount:        len(c.Platforms),
		EnabledPlatformCount: enabled,
		OverrideCount:        len(c.PerCampaignOverrides),
		AutomationLevel:      c.Guardrails.AutomationLevel,
	}
}

// Load reads platforms.yaml and guardrails.yaml from dir, expands
// environment variables, merges with built-in defaults, validates, and
// returns the result. A .env file in dir is loaded first (if present) so
// ${VAR} expansion sees it.
func Load(dir string) (Config, error) {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, NewLoadError(envPath, err)
		}
	}

	userPlatforms, err := loadPlatforms(dir)
	if err != nil {
		return Config{}, err
	}
	userGuardrails, err := loadGuardrails(dir)
	if err != nil {
		return Config{}, err
	}

	defaultPlatforms, defaultGuardrails := Defaults()

	builtinOverrides := defaultGuardrails.PerCampaignOverrides
	if err := mergo.Merge(&defaultGuardrails, userGuardrails, mergo.WithOverride); err != nil {
		return Config{}, NewLoadError(guardrailsFileName, fmt.Errorf("merge guardrails: %w", err))
	}
	defaultGuardrails.PerCampaignOverrides = mergeCampaignOverrides(builtinOverrides, userGuardrails.PerCampaignOverrides)

	mergedPlatforms := mergePlatforms(defaultPlatforms, userPlatforms)

	if err := ValidateAll(mergedPlatforms, defaultGuardrails); err != nil {
		return Config{}, err
	}

	overrides, err := resolveOverrides(defaultGuardrails.PerCampaignOverrides)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Platforms:            mergedPlatforms,
		Guardrails:           defaultGuardrails.ToDomain(),
		Timezone:             defaultGuardrails.Timezone,
		PerCampaignOverrides: overrides,
	}

	stats := cfg.Stats()
	slog.Info("configuration loaded",
		"platforms", stats.PlatformCount, "enabled_platforms", stats.EnabledPlatformCount,
		"overrides", stats.OverrideCount, "automation_level", stats.AutomationLevel)

	return cfg, nil
}

func loadPlatforms(dir string) (map[string]PlatformConfig, error) {
	path := filepath.Join(dir, platformsFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]PlatformConfig{}, nil
	}
	if err != nil {
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var raw struct {
		Platforms map[string]PlatformConfig `yaml:"platforms"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	for id, p := range raw.Platforms {
		if p.PlatformId == "" {
			p.PlatformId = domain.PlatformId(id)
			raw.Platforms[id] = p
		}
	}
	return raw.Platforms, nil
}

func loadGuardrails(dir string) (GuardrailsConfig, error) {
	path := filepath.Join(dir, guardrailsFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return GuardrailsConfig{}, nil
	}
	if err != nil {
		return GuardrailsConfig{}, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var cfg GuardrailsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GuardrailsConfig{}, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return cfg, nil
}

// resolveOverrides parses each GuardrailOverride's ExpiresAt string into a
// time.Time, converting the config-layer type into the domain-layer one
// the guardrail package's OverrideStore consumes.
func resolveOverrides(raw map[string]GuardrailOverride) (map[string]domain.GuardrailOverride, error) {
	out := make(map[string]domain.GuardrailOverride, len(raw))
	for scope, o := range raw {
		expiresAt, err := time.Parse(time.RFC3339, o.ExpiresAt)
		if err != nil {
			return nil, NewValidationError("guardrails", scope, "expires_at", fmt.Errorf("%w: %v", ErrInvalidValue, err))
		}
		out[scope] = domain.GuardrailOverride{
			Scope:     scope,
			Field:     o.Field,
			Value:     o.Value,
			ExpiresAt: expiresAt,
		}
	}
	return out, nil
}
