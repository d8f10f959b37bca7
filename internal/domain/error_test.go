package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"empty input", ErrEmptyInput, KindInvalidInput},
		{"invalid settings", ErrInvalidSettings, KindInvalidInput},
		{"invalid audio", ErrInvalidAudioFile, KindInvalidInput},
		{"too long", ErrTextTooLong, KindTooLong},
		{"model not loaded", ErrModelNotLoaded, KindResourceUnavailable},
		{"engine busy", ErrEngineBusy, KindResourceUnavailable},
		{"queue saturated", ErrQueueSaturated, KindResourceUnavailable},
		{"network", ErrNetwork, KindTransient},
		{"timeout", ErrTimeout, KindTransient},
		{"service down", ErrServiceDown, KindTransient},
		{"ctx deadline", context.DeadlineExceeded, KindTransient},
		{"auth", ErrAuth, KindAuth},
		{"quota", ErrQuotaExceeded, KindQuotaExceeded},
		{"content filtered", ErrContentFiltered, KindContentPolicy},
		{"unrecognized", errors.New("something odd"), KindUnknown},
		{"wrapped sentinel", fmt.Errorf("gemini: %w: boom", ErrNetwork), KindTransient},
		{"deeply wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrAuth)), KindAuth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryableOnlyTransient(t *testing.T) {
	kinds := []ErrorKind{
		KindNone, KindInvalidInput, KindTooLong, KindResourceUnavailable,
		KindTransient, KindAuth, KindQuotaExceeded, KindContentPolicy, KindUnknown,
	}
	for _, k := range kinds {
		want := k == KindTransient
		if got := k.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v, want %v", k, got, want)
		}
	}
}
