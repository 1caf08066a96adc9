// Package orchestrator runs a prompt through the configured providers in
// preference order and returns the first usable completion.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"evalcoach/internal/llm"
	"evalcoach/internal/logging"
	"evalcoach/internal/quality"
)

const defaultCacheSize = 128

// Result is a winning completion together with the provider that produced it.
type Result struct {
	Provider string
	Text     string
}

// Config tunes the orchestrator.
type Config struct {
	// CacheSize is the number of completions kept in the LRU cache.
	// Zero uses the default, negative disables caching.
	CacheSize int
}

// Orchestrator walks the provider chain for each request. Providers that
// return ("", nil) are treated as not configured and skipped; hard failures
// are remembered and surfaced only when no later provider succeeds.
type Orchestrator struct {
	providers []llm.Generator
	cache     *lru.Cache[string, Result]
	metrics   *Metrics
	logger    logging.Logger
}

// New builds an orchestrator over providers, tried in the given default order.
func New(providers []llm.Generator, config Config, metrics *Metrics, logger logging.Logger) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("orchestrator: no providers")
	}

	o := &Orchestrator{
		providers: providers,
		metrics:   metrics,
		logger:    logging.OrNop(logger),
	}

	size := config.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	if size > 0 {
		cache, err := lru.New[string, Result](size)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: build cache: %w", err)
		}
		o.cache = cache
	}
	return o, nil
}

// Run generates a completion for prompt. When preferred names a provider, it
// is tried first and the rest follow in default order. A nil result with a
// nil error means no provider is configured.
func (o *Orchestrator) Run(ctx context.Context, prompt string, opts llm.Options, preferred string) (*Result, error) {
	key := cacheKey(prompt, opts)
	if o.cache != nil {
		if cached, ok := o.cache.Get(key); ok {
			o.metrics.RecordCacheHit()
			o.logger.Debug("orchestrator: cache hit for provider %s", cached.Provider)
			return &cached, nil
		}
	}

	ordered := o.orderedProviders(preferred)

	var lastErr error
	for i, provider := range ordered {
		text, err := provider.Generate(ctx, prompt, opts)
		if err != nil {
			lastErr = err
			o.metrics.RecordAttempt(provider.Name(), "error")
			o.logger.Warn("orchestrator: provider %s failed: %v", provider.Name(), err)
			continue
		}
		if text == "" {
			o.metrics.RecordAttempt(provider.Name(), "skipped")
			o.logger.Debug("orchestrator: provider %s produced nothing, trying next", provider.Name())
			continue
		}

		o.metrics.RecordAttempt(provider.Name(), "success")
		if i > 0 {
			o.metrics.RecordFallback()
		}
		result := Result{Provider: provider.Name(), Text: quality.Cleanup(text)}
		if o.cache != nil {
			o.cache.Add(key, result)
		}
		return &result, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

// ProviderNames reports the configured default order, for logging and health.
func (o *Orchestrator) ProviderNames() []string {
	names := make([]string, len(o.providers))
	for i, provider := range o.providers {
		names[i] = provider.Name()
	}
	return names
}

func (o *Orchestrator) orderedProviders(preferred string) []llm.Generator {
	if preferred == "" {
		return o.providers
	}
	ordered := make([]llm.Generator, 0, len(o.providers))
	for _, provider := range o.providers {
		if provider.Name() == preferred {
			ordered = append(ordered, provider)
		}
	}
	if len(ordered) == 0 {
		return o.providers
	}
	for _, provider := range o.providers {
		if provider.Name() != preferred {
			ordered = append(ordered, provider)
		}
	}
	return ordered
}

func cacheKey(prompt string, opts llm.Options) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%g|%t|%t|%d",
		prompt, opts.MaxTokens, opts.Temperature, opts.JSONResponse, opts.Continue, opts.MinChars)))
	return hex.EncodeToString(sum[:])
}
