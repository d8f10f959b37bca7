package ai

import (
	"context"
	"errors"
	"testing"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

type fakeEngine struct {
	providers []model.EnhancementProvider
	available bool
	calls     []model.EnhancementRequest
}

func (f *fakeEngine) Enhance(_ context.Context, req model.EnhancementRequest, _ adapter.ProgressFunc) (*model.EnhancedText, error) {
	f.calls = append(f.calls, req)
	return &model.EnhancedText{Original: req.Text, Enhanced: "ok", Provider: req.Provider}, nil
}

func (f *fakeEngine) Providers() []model.EnhancementProvider { return f.providers }
func (f *fakeEngine) Available(model.EnhancementProvider) bool {
	return f.available
}

func TestMultiEngineRoutesByProvider(t *testing.T) {
	gemini := &fakeEngine{providers: []model.EnhancementProvider{model.GeminiPro, model.GeminiFlash}, available: true}
	local := &fakeEngine{providers: []model.EnhancementProvider{model.LocalLLM}, available: true}
	m := NewMultiEngine(gemini, local)

	req := model.EnhancementRequest{Text: "hi", Provider: model.LocalLLM}
	res, err := m.Enhance(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(local.calls) != 1 || len(gemini.calls) != 0 {
		t.Fatalf("routed to wrong engine: local %d, gemini %d", len(local.calls), len(gemini.calls))
	}
	if res.Provider != model.LocalLLM {
		t.Fatalf("result provider = %s", res.Provider)
	}
}

func TestMultiEngineFallbackRewritesProvider(t *testing.T) {
	gemini := &fakeEngine{providers: []model.EnhancementProvider{model.GeminiFlash}, available: false}
	local := &fakeEngine{providers: []model.EnhancementProvider{model.LocalLLM}, available: true}
	m := NewMultiEngine(gemini, local)

	req := model.EnhancementRequest{Text: "hi", Provider: model.GeminiFlash}
	res, err := m.Enhance(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Enhance: %v", err)
	}
	if len(local.calls) != 1 {
		t.Fatalf("fallback engine calls = %d", len(local.calls))
	}
	if local.calls[0].Provider != model.LocalLLM || res.Provider != model.LocalLLM {
		t.Fatalf("fallback did not rewrite provider: req %s, res %s", local.calls[0].Provider, res.Provider)
	}
}

func TestMultiEngineNoEngineAvailable(t *testing.T) {
	down := &fakeEngine{providers: []model.EnhancementProvider{model.GeminiPro}, available: false}
	m := NewMultiEngine(down)

	_, err := m.Enhance(context.Background(), model.EnhancementRequest{Text: "hi", Provider: model.GeminiPro}, nil)
	if !errors.Is(err, domain.ErrServiceDown) {
		t.Fatalf("err = %v, want ErrServiceDown", err)
	}
}

func TestMultiEngineProvidersDeduplicated(t *testing.T) {
	a := &fakeEngine{providers: []model.EnhancementProvider{model.GeminiPro, model.GeminiFlash}}
	b := &fakeEngine{providers: []model.EnhancementProvider{model.GeminiFlash, model.LocalLLM}}
	m := NewMultiEngine(a, b)

	got := m.Providers()
	if len(got) != 3 {
		t.Fatalf("providers = %v, want 3 unique", got)
	}

	if m.Available(model.GeminiPro) {
		t.Fatal("Available must follow the owning engine")
	}
	a.available = true
	if !m.Available(model.GeminiPro) {
		t.Fatal("Available should be true once the owning engine is up")
	}
}
