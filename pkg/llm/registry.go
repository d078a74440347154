package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kgee-io/kgee/pkg/config"
)

// ModelSource resolves the current model for a use case. The default source
// reads the static configuration map; an admin config service can supply a
// dynamic one.
type ModelSource interface {
	ModelForUseCase(ctx context.Context, useCase config.LLMUseCase) (string, error)
}

// StaticModelSource serves models from a fixed map.
type StaticModelSource struct {
	Models   map[config.LLMUseCase]string
	Fallback string
}

// ModelForUseCase implements ModelSource.
func (s *StaticModelSource) ModelForUseCase(_ context.Context, useCase config.LLMUseCase) (string, error) {
	if model, ok := s.Models[useCase]; ok && model != "" {
		return model, nil
	}
	return s.Fallback, nil
}

type cachedModel struct {
	model     string
	expiresAt time.Time
}

// ModelRegistry caches use-case → model resolutions with a TTL. Read-mostly;
// Invalidate drops the cache after an admin reconfiguration.
type ModelRegistry struct {
	source ModelSource
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[config.LLMUseCase]cachedModel
}

// NewModelRegistry creates a registry over the source with the given TTL.
func NewModelRegistry(source ModelSource, ttl time.Duration) *ModelRegistry {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ModelRegistry{
		source: source,
		ttl:    ttl,
		cache:  make(map[config.LLMUseCase]cachedModel),
	}
}

// ResolveModel returns the model for a use case, refreshing the cached entry
// when its TTL expired. Source failures fall back to the stale cached value
// when one exists.
func (r *ModelRegistry) ResolveModel(ctx context.Context, useCase config.LLMUseCase) string {
	r.mu.RLock()
	cached, ok := r.cache[useCase]
	r.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.model
	}

	model, err := r.source.ModelForUseCase(ctx, useCase)
	if err != nil || model == "" {
		if ok {
			slog.Warn("model_registry_refresh_failed_using_stale",
				"use_case", string(useCase), "error", err)
			return cached.model
		}
		slog.Error("model_registry_resolution_failed",
			"use_case", string(useCase), "error", err)
		return ""
	}

	r.mu.Lock()
	r.cache[useCase] = cachedModel{model: model, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()

	return model
}

// Invalidate drops all cached resolutions. Called after admin
// reconfiguration so the next resolution hits the source.
func (r *ModelRegistry) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[config.LLMUseCase]cachedModel)
	r.mu.Unlock()
}
