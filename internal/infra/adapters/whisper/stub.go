package whisper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
)

var _ adapter.TranscriptionEngine = (*StubEngine)(nil)

// StubEngine fakes the speech-to-text backend for the demo binary and
// local development without model files.
type StubEngine struct {
	Delay time.Duration
	Text  string
	Err   error

	mu     sync.Mutex
	loaded map[model.TranscriptionProvider]bool
}

func NewStubEngine(delay time.Duration) *StubEngine {
	return &StubEngine{
		Delay:  delay,
		Text:   "this is a stub transcription",
		loaded: make(map[model.TranscriptionProvider]bool),
	}
}

func (s *StubEngine) Transcribe(ctx context.Context, req model.TranscriptionRequest, progress adapter.ProgressFunc) (*model.Transcription, error) {
	if !s.IsModelLoaded(req.Provider) {
		return nil, fmt.Errorf("stub: provider %s: %w", req.Provider, domain.ErrModelNotLoaded)
	}
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
	return &model.Transcription{
		ID:             uuid.NewString(),
		Text:           s.Text,
		Confidence:     0.99,
		Language:       req.Language,
		Provider:       req.Provider,
		ProcessingTime: time.Since(started),
		Metadata:       map[string]string{"model": "stub"},
	}, nil
}

func (s *StubEngine) LoadModel(_ context.Context, provider model.TranscriptionProvider) error {
	s.mu.Lock()
	s.loaded[provider] = true
	s.mu.Unlock()
	return nil
}

func (s *StubEngine) UnloadModel(provider model.TranscriptionProvider) error {
	s.mu.Lock()
	delete(s.loaded, provider)
	s.mu.Unlock()
	return nil
}

func (s *StubEngine) IsModelLoaded(provider model.TranscriptionProvider) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[provider]
}

func (s *StubEngine) ModelPath(provider model.TranscriptionProvider) string {
	return "stub://" + string(provider)
}

func (s *StubEngine) Providers() []model.TranscriptionProvider {
	return []model.TranscriptionProvider{model.WhisperTiny, model.WhisperBase}
}

func (s *StubEngine) SupportedFormats() []string { return []string{"wav"} }
