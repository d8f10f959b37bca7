package repository

import (
	"context"

	"quillscribe/internal/domain/model"
)

// ResultStore receives denormalized copies of completed results, keyed by
// the caller-supplied correlation id. Writes are best-effort: a failing
// store must never block or fail the in-memory job lifecycle, so callers
// invoke it off the bookkeeping path and only log errors.
type ResultStore interface {
	SaveTranscription(ctx context.Context, correlationID string, t *model.Transcription) error
	SaveEnhancement(ctx context.Context, correlationID string, e *model.EnhancedText) error
}
