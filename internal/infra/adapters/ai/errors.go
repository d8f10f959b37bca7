package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quillscribe/internal/domain"
)

// mapProviderError wraps a raw SDK or transport error with the domain
// sentinel the lifecycle layer classifies on. Provider SDKs do not expose
// stable error types for every case, so status codes and well-known
// substrings carry the mapping.
func mapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "permission"),
		strings.Contains(msg, "api key"):
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrAuth, err)
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource exhausted"):
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrQuotaExceeded, err)
	case strings.Contains(msg, "safety"), strings.Contains(msg, "blocked"),
		strings.Contains(msg, "content policy"), strings.Contains(msg, "content_filter"):
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrContentFiltered, err)
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "504"),
		strings.Contains(msg, "unavailable"), strings.Contains(msg, "overloaded"):
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrServiceDown, err)
	case strings.Contains(msg, "connection"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "tls"),
		strings.Contains(msg, "eof"):
		return fmt.Errorf("%s: %w: %v", provider, domain.ErrNetwork, err)
	default:
		return fmt.Errorf("%s: %w", provider, err)
	}
}
