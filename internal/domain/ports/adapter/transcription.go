package adapter

import (
	"context"

	"quillscribe/internal/domain/model"
)

// TranscriptionEngine is the port for local offline speech-to-text.
//
// Model residency is an explicit lifecycle concern: LoadModel must have
// succeeded for a provider before Transcribe is called with it, and
// Transcribe fails with domain.ErrModelNotLoaded otherwise. Loading is
// never performed on the per-request path.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, req model.TranscriptionRequest, progress ProgressFunc) (*model.Transcription, error)

	LoadModel(ctx context.Context, provider model.TranscriptionProvider) error
	UnloadModel(provider model.TranscriptionProvider) error
	IsModelLoaded(provider model.TranscriptionProvider) bool

	// ModelPath returns the on-disk location for a provider's model file,
	// whether or not it is currently loaded.
	ModelPath(provider model.TranscriptionProvider) string

	Providers() []model.TranscriptionProvider
	SupportedFormats() []string
}
