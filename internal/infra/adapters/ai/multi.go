package ai

import (
	"context"
	"fmt"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.EnhancementEngine = (*MultiEngine)(nil)

// MultiEngine routes each request to the engine serving its provider and
// falls back to the first available engine when the preferred one is
// down. The fallback rewrites req.Provider so the result names the
// backend that actually produced it.
type MultiEngine struct {
	engines []adapter.EnhancementEngine
}

func NewMultiEngine(engines ...adapter.EnhancementEngine) *MultiEngine {
	return &MultiEngine{engines: engines}
}

func (m *MultiEngine) forProvider(p model.EnhancementProvider) adapter.EnhancementEngine {
	for _, e := range m.engines {
		for _, sp := range e.Providers() {
			if sp == p {
				return e
			}
		}
	}
	return nil
}

func (m *MultiEngine) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	if e := m.forProvider(req.Provider); e != nil && e.Available(req.Provider) {
		return e.Enhance(ctx, req, progress)
	}
	for _, e := range m.engines {
		for _, p := range e.Providers() {
			if e.Available(p) {
				fallback := req
				fallback.Provider = p
				return e.Enhance(ctx, fallback, progress)
			}
		}
	}
	return nil, fmt.Errorf("no engine available for provider %s: %w", req.Provider, domain.ErrServiceDown)
}

func (m *MultiEngine) Providers() []model.EnhancementProvider {
	seen := map[model.EnhancementProvider]struct{}{}
	var out []model.EnhancementProvider
	for _, e := range m.engines {
		for _, p := range e.Providers() {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
	}
	return out
}

func (m *MultiEngine) Available(provider model.EnhancementProvider) bool {
	e := m.forProvider(provider)
	return e != nil && e.Available(provider)
}
