package ai

import (
	"context"

	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.EnhancementEngine = (*limitedEngine)(nil)

// limitedEngine caps the in-flight calls against one backend, independent
// of the service-level concurrency gate. Remote providers throttle per
// key, so the cap stops a burst of admitted jobs from tripping 429s.
type limitedEngine struct {
	inner adapter.EnhancementEngine
	sem   chan struct{}
}

func NewLimited(inner adapter.EnhancementEngine, maxConcurrent int) adapter.EnhancementEngine {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedEngine{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedEngine) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Enhance(ctx, req, progress)
}

func (l *limitedEngine) Providers() []model.EnhancementProvider {
	return l.inner.Providers()
}

func (l *limitedEngine) Available(provider model.EnhancementProvider) bool {
	return l.inner.Available(provider)
}
