// Package translation routes chunk translation through a set of polymorphic
// providers with tier-dependent fallback. Provider failures never fail a job:
// the worst outcome for a chunk is its original text marked as a soft failure.
package translation

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

// Request is one translation call. Context carries advisory surrounding text
// that providers may fold into their prompt; non-prompting providers ignore
// it.
type Request struct {
	Text       string
	SourceLang string
	TargetLang string
	Context    string
}

type Provider interface {
	Name() string
	// Languages lists the supported target language tags. An empty list means
	// the provider accepts any target language.
	Languages() []string
	Translate(ctx context.Context, req Request) (string, error)
}

// ProviderError is a failure of one provider call. It is recovered through
// the fallback chain and never halts a job.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, statusCode int, retryable bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Retryable: retryable, Err: err}
}

type registryEntry struct {
	provider Provider
	tiers    map[api.Tier]bool
}

// Registry holds the configured providers in registration order. Registration
// order is the fallback order.
type Registry struct {
	entries []registryEntry
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(provider Provider, tiers ...api.Tier) {
	entry := registryEntry{provider: provider, tiers: make(map[api.Tier]bool, len(tiers))}
	for _, tier := range tiers {
		entry.tiers[tier] = true
	}
	r.entries = append(r.entries, entry)
}

// ForTier returns the providers serving the tier that cover the target
// language, in fallback order.
func (r *Registry) ForTier(tier api.Tier, targetLang string) []Provider {
	var providers []Provider
	for _, entry := range r.entries {
		if !entry.tiers[tier] {
			continue
		}
		if !supportsLanguage(entry.provider, targetLang) {
			continue
		}
		providers = append(providers, entry.provider)
	}
	return providers
}

// supportsLanguage matches on the base language, so "pt-BR" is served by a
// provider that lists "pt".
func supportsLanguage(provider Provider, targetLang string) bool {
	supported := provider.Languages()
	if len(supported) == 0 {
		return true
	}
	target, err := language.Parse(targetLang)
	if err != nil {
		return false
	}
	targetBase, _ := target.Base()
	for _, lang := range supported {
		tag, err := language.Parse(lang)
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		if base == targetBase {
			return true
		}
	}
	return false
}
