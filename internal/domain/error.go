package domain

import (
	"context"
	"errors"
)

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrTextTooLong      = errors.New("text exceeds length limit")
	ErrInvalidAudioFile = errors.New("invalid audio file")
	ErrModelNotLoaded   = errors.New("model not loaded")
	ErrEngineBusy       = errors.New("engine busy")
	ErrNetwork          = errors.New("network failure")
	ErrTimeout          = errors.New("operation timed out")
	ErrServiceDown      = errors.New("service temporarily unavailable")
	ErrAuth             = errors.New("authentication failed")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrContentFiltered  = errors.New("content filtered by provider policy")
	ErrNotCompleted     = errors.New("job has not completed")
	ErrQueueSaturated   = errors.New("worker queue saturated")
)

// ErrorKind buckets runtime failures for retry and reporting decisions.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidInput        ErrorKind = "invalid_input"
	KindTooLong             ErrorKind = "too_long"
	KindResourceUnavailable ErrorKind = "resource_unavailable"
	KindTransient           ErrorKind = "transient"
	KindAuth                ErrorKind = "auth"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindContentPolicy       ErrorKind = "content_policy"
	KindUnknown             ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind are eligible for
// automatic retry. Everything except transient failures needs caller
// remediation, so the conservative default is false.
func (k ErrorKind) Retryable() bool { return k == KindTransient }

// Classify maps an error returned by an engine adapter onto an ErrorKind.
// Unrecognized errors are treated as non-retryable.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrInvalidSettings),
		errors.Is(err, ErrInvalidAudioFile):
		return KindInvalidInput
	case errors.Is(err, ErrTextTooLong):
		return KindTooLong
	case errors.Is(err, ErrModelNotLoaded),
		errors.Is(err, ErrEngineBusy),
		errors.Is(err, ErrQueueSaturated):
		return KindResourceUnavailable
	case errors.Is(err, ErrNetwork),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrServiceDown),
		errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, ErrContentFiltered):
		return KindContentPolicy
	default:
		return KindUnknown
	}
}
