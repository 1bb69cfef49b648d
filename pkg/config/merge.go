package config

// mergePlatforms merges built-in and user-defined platform configurations.
// User-defined platforms override built-in platforms with the same PlatformId.
func mergePlatforms(builtin map[string]PlatformConfig, user map[string]PlatformConfig) map[string]*PlatformConfig {
	result := make(map[string]*PlatformConfig, len(builtin)+len(user))

	for id, cfg := range builtin {
		cfgCopy := cfg
		result[id] = &cfgCopy
	}

	for id, cfg := range user {
		cfgCopy := cfg
		result[id] = &cfgCopy
	}

	return result
}

// mergeCampaignOverrides merges built-in and user-defined per-campaign
// guardrail overrides. User-defined overrides win on conflicting keys.
func mergeCampaignOverrides(builtin map[string]GuardrailOverride, user map[string]GuardrailOverride) map[string]GuardrailOverride {
	result := make(map[string]GuardrailOverride, len(builtin)+len(user))

	for ref, o := range builtin {
		result[ref] = o
	}
	for ref, o := range user {
		result[ref] = o
	}

	return result
}
