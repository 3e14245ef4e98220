package providers

import (
	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
	"github.com/nclamvn/prismy-ultimate/internal/translation"
)

// BuildRegistry wires the configured backends in fallback order. OpenAI leads
// the standard and premium tiers when a key is configured, the free Google
// endpoint serves basic and acts as the universal fallback. With offline set
// the static backend serves every tier.
func BuildRegistry(openAI OpenAIConfig, offline bool) *translation.Registry {
	registry := translation.NewRegistry()
	if offline {
		registry.Register(NewStatic(), api.TierBasic, api.TierStandard, api.TierPremium)
		return registry
	}
	if openAI.APIKey != "" {
		registry.Register(NewOpenAI(openAI), api.TierStandard, api.TierPremium)
	}
	registry.Register(NewGoogleLite(), api.TierBasic, api.TierStandard, api.TierPremium)
	return registry
}
