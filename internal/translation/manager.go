package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	api "github.com/nclamvn/prismy-ultimate/api/v1alpha1"
)

const (
	DefaultConcurrency = 5
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second

	// refineContextSize is the number of runes of neighbouring pass-one output
	// used as consistency context during the premium refinement pass.
	refineContextSize = 200
)

type Config struct {
	// Concurrency bounds the number of in-flight provider calls per job.
	Concurrency int
	// MaxAttempts is the attempt budget for the primary provider on the
	// standard and premium tiers. Fallback providers get one attempt each.
	MaxAttempts int
	// RetryDelay is the base delay between attempts, doubled per retry.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Manager translates chunk batches through the provider registry. Provider
// failures degrade per chunk, never per job: a chunk whose whole fallback
// chain failed keeps its original text with Succeeded=false and provider
// "none".
type Manager struct {
	registry *Registry
	cfg      Config
	log      *zap.SugaredLogger
}

func NewManager(registry *Registry, cfg Config) *Manager {
	return &Manager{
		registry: registry,
		cfg:      cfg.withDefaults(),
		log:      zap.S().Named("translation"),
	}
}

// TranslateChunks translates all chunks with bounded concurrency and returns
// results in input order. onChunk, if set, is invoked once per finished chunk
// and may be called from multiple goroutines. The returned error is non-nil
// only on context cancellation.
func (m *Manager) TranslateChunks(ctx context.Context, chunks []api.Chunk, sourceLang, targetLang string, tier api.Tier, onChunk func(api.TranslatedChunk)) ([]api.TranslatedChunk, error) {
	results := make([]api.TranslatedChunk, len(chunks))

	run := func(ctx context.Context, work func(ctx context.Context, i int)) error {
		g, ctx := errgroup.WithContext(ctx)
		sem := semaphore.NewWeighted(int64(m.cfg.Concurrency))
		for i := range chunks {
			i := i
			g.Go(func() error {
				if err := sem.Acquire(ctx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
				work(ctx, i)
				return ctx.Err()
			})
		}
		return g.Wait()
	}

	err := run(ctx, func(ctx context.Context, i int) {
		results[i] = m.translateChunk(ctx, chunks[i], sourceLang, targetLang, tier)
		if onChunk != nil {
			onChunk(results[i])
		}
	})
	if err != nil {
		return nil, err
	}

	// Premium adds a refinement pass once every chunk has its first-pass
	// output, so each refinement sees its neighbours already translated.
	// Refinements read a snapshot of the first pass; they must not observe
	// each other's output.
	if tier == api.TierPremium {
		firstPass := make([]api.TranslatedChunk, len(results))
		copy(firstPass, results)
		err = run(ctx, func(ctx context.Context, i int) {
			m.refine(ctx, firstPass, results, i, sourceLang, targetLang)
		})
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (m *Manager) translateChunk(ctx context.Context, chunk api.Chunk, sourceLang, targetLang string, tier api.Tier) api.TranslatedChunk {
	start := time.Now()
	result := api.TranslatedChunk{Chunk: chunk}

	switch {
	case chunk.Kind == api.ChunkKindFormula:
		// Formulas pass through untouched.
		result.TranslatedText = chunk.Text
		result.Provider = "none"
		result.Succeeded = true
	case chunk.Kind == api.ChunkKindTable:
		result = m.translateTable(ctx, chunk, sourceLang, targetLang, tier)
	case strings.TrimSpace(chunk.Text) == "":
		result.TranslatedText = chunk.Text
		result.Provider = "none"
		result.Succeeded = true
	default:
		contextHint := contextPrompt(chunk)
		text, provider, ok := m.translateText(ctx, chunk.Text, contextHint, sourceLang, targetLang, tier)
		if ok {
			result.TranslatedText = text
			result.Provider = provider
			result.Succeeded = true
		} else {
			result.TranslatedText = chunk.Text
			result.Provider = "none"
			result.Succeeded = false
		}
	}

	result.Duration = time.Since(start)
	return result
}

// translateText walks the tier's fallback chain. The basic tier gets a single
// attempt on a single provider; standard and premium retry the primary with
// exponential backoff before falling back.
func (m *Manager) translateText(ctx context.Context, text, contextHint, sourceLang, targetLang string, tier api.Tier) (string, string, bool) {
	providers := m.registry.ForTier(tier, targetLang)
	if len(providers) == 0 {
		m.log.Warnw("no provider covers target language", "tier", tier, "targetLanguage", targetLang)
		return "", "", false
	}
	if tier == api.TierBasic {
		providers = providers[:1]
	}

	req := Request{Text: text, SourceLang: sourceLang, TargetLang: targetLang, Context: contextHint}
	for i, provider := range providers {
		attempts := 1
		if tier != api.TierBasic && i == 0 {
			attempts = m.cfg.MaxAttempts
		}
		translated, err := m.attempt(ctx, provider, req, attempts)
		if err == nil {
			return translated, provider.Name(), true
		}
		if ctx.Err() != nil {
			return "", "", false
		}
		m.log.Warnw("provider failed, trying next", "provider", provider.Name(), "error", err)
	}
	return "", "", false
}

func (m *Manager) attempt(ctx context.Context, provider Provider, req Request, attempts int) (string, error) {
	delay := m.cfg.RetryDelay
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		translated, err := provider.Translate(ctx, req)
		if err == nil {
			return translated, nil
		}
		lastErr = err

		var perr *ProviderError
		retryable := true
		if errors.As(err, &perr) {
			retryable = perr.Retryable
		}
		if !retryable || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}

// translateTable translates a table cell by cell and reassembles the
// structure. A table whose JSON cannot be parsed passes through verbatim as a
// soft failure.
func (m *Manager) translateTable(ctx context.Context, chunk api.Chunk, sourceLang, targetLang string, tier api.Tier) api.TranslatedChunk {
	result := api.TranslatedChunk{Chunk: chunk}

	var table api.Table
	if err := json.Unmarshal([]byte(chunk.Text), &table); err != nil {
		m.log.Warnw("table chunk is not valid json, passing through", "chunkID", chunk.ChunkID, "error", err)
		result.TranslatedText = chunk.Text
		result.Provider = "none"
		return result
	}

	provider := "none"
	failed := 0
	translateCell := func(cell string) string {
		if strings.TrimSpace(cell) == "" {
			return cell
		}
		translated, name, ok := m.translateText(ctx, cell, "", sourceLang, targetLang, tier)
		if !ok {
			failed++
			return cell
		}
		provider = name
		return translated
	}

	for i, header := range table.Headers {
		table.Headers[i] = translateCell(header)
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			row[i] = translateCell(cell)
		}
	}

	content, err := json.Marshal(table)
	if err != nil {
		result.TranslatedText = chunk.Text
		result.Provider = "none"
		return result
	}
	result.TranslatedText = string(content)
	result.Provider = provider
	result.Succeeded = failed == 0
	return result
}

// refine re-translates one first-pass result with a consistency context built
// from the neighbouring first-pass output. A failed refinement keeps the
// first-pass text.
func (m *Manager) refine(ctx context.Context, firstPass, results []api.TranslatedChunk, i int, sourceLang, targetLang string) {
	result := &results[i]
	if !result.Succeeded || result.Kind != api.ChunkKindText {
		return
	}

	providers := m.registry.ForTier(api.TierPremium, targetLang)
	if len(providers) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %d/%d\n", result.ChunkID+1, result.TotalChunks)
	if i > 0 {
		fmt.Fprintf(&b, "Preceding translation: %s\n", tail(firstPass[i-1].TranslatedText, refineContextSize))
	}
	if i < len(firstPass)-1 {
		fmt.Fprintf(&b, "Following translation: %s\n", head(firstPass[i+1].TranslatedText, refineContextSize))
	}
	b.WriteString("Refine the translation below for consistency with the surrounding passages. Keep the meaning and formatting intact.")

	refined, err := providers[0].Translate(ctx, Request{
		Text:       result.Chunk.Text,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Context:    b.String(),
	})
	if err != nil {
		m.log.Debugw("refinement pass failed, keeping first pass", "chunkID", result.ChunkID, "error", err)
		return
	}
	if strings.TrimSpace(refined) != "" {
		result.TranslatedText = refined
		result.Provider = providers[0].Name()
	}
}

func contextPrompt(chunk api.Chunk) string {
	if chunk.ContextBefore == "" && chunk.ContextAfter == "" {
		return ""
	}
	var b strings.Builder
	if chunk.ContextBefore != "" {
		fmt.Fprintf(&b, "Previous context: %s\n", chunk.ContextBefore)
	}
	if chunk.ContextAfter != "" {
		fmt.Fprintf(&b, "Next context: %s\n", chunk.ContextAfter)
	}
	return b.String()
}

func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[len(runes)-n:]
	}
	return string(runes)
}

func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}
