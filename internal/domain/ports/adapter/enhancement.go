package adapter

import (
	"context"

	"quillscribe/internal/domain/model"
)

// ProgressFunc receives coarse progress updates (0-100) while an engine
// call is in flight. Engines that cannot stream partial results may call
// it only at the boundaries, or not at all.
type ProgressFunc func(percent int)

// EnhancementEngine is the port for remote LLM text enhancement.
// Enhance blocks for the duration of the call; cancellation and deadlines
// arrive through ctx.
type EnhancementEngine interface {
	// Enhance rewrites req.Text per req.Settings and returns the result.
	// Errors must wrap the domain sentinels so the caller can classify them.
	Enhance(ctx context.Context, req model.EnhancementRequest, progress ProgressFunc) (*model.EnhancedText, error)

	// Providers lists the provider identifiers this engine can serve.
	Providers() []model.EnhancementProvider

	// Available reports whether the given provider is usable right now
	// (credential present, endpoint reachable at last check).
	Available(provider model.EnhancementProvider) bool
}
