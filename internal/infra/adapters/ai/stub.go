package ai

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.EnhancementEngine = (*StubEngine)(nil)

// StubEngine fakes an enhancement backend for local development and the
// demo binary. It applies a trivial per-mode transformation after a
// configurable delay, reporting progress along the way.
type StubEngine struct {
	Delay time.Duration
	// Err, when set, is returned instead of a result. Tests use it to
	// exercise failure classification and retries.
	Err error
}

func NewStubEngine(delay time.Duration) *StubEngine {
	return &StubEngine{Delay: delay}
}

func (s *StubEngine) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	started := time.Now()
	steps := 4
	for i := 1; i <= steps; i++ {
		select {
		case <-time.After(s.Delay / time.Duration(steps)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if progress != nil {
			progress(i * 100 / steps)
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	enhanced := req.Text
	switch req.Settings.Mode {
	case model.ModeSummarization:
		words := strings.Fields(req.Text)
		if len(words) > 10 {
			enhanced = strings.Join(words[:10], " ") + "…"
		}
	case model.ModeFormalization:
		enhanced = "Dear reader, " + req.Text
	default:
		enhanced = strings.TrimSpace(req.Text)
	}

	return &model.EnhancedText{
		ID:               uuid.NewString(),
		Original:         req.Text,
		Enhanced:         enhanced,
		Mode:             req.Settings.Mode,
		Provider:         req.Provider,
		ProcessingTime:   time.Since(started),
		ImprovementScore: improvementScore(req.Text, enhanced),
		Metadata:         map[string]string{"model": "stub"},
	}, nil
}

func (s *StubEngine) Providers() []model.EnhancementProvider {
	return []model.EnhancementProvider{model.GeminiPro, model.GeminiFlash, model.LocalLLM}
}

func (s *StubEngine) Available(model.EnhancementProvider) bool { return true }
