package service

import (
	"testing"
	"time"
)

func TestPolicyDefaultsPerService(t *testing.T) {
	cases := []struct {
		service    string
		concurrent int
		timeout    time.Duration
		retries    int
	}{
		{"transcription", 2, 30 * time.Second, 3},
		{"enhancement", 3, 10 * time.Second, 2},
	}
	for _, tc := range cases {
		t.Run(tc.service, func(t *testing.T) {
			p := Policy{}.withDefaults(tc.service)
			if p.MaxConcurrent != tc.concurrent {
				t.Errorf("MaxConcurrent = %d, want %d", p.MaxConcurrent, tc.concurrent)
			}
			if p.DefaultTimeout != tc.timeout {
				t.Errorf("DefaultTimeout = %s, want %s", p.DefaultTimeout, tc.timeout)
			}
			if p.MaxRetries != tc.retries {
				t.Errorf("MaxRetries = %d, want %d", p.MaxRetries, tc.retries)
			}
			if p.RetryBaseDelay != 5*time.Second {
				t.Errorf("RetryBaseDelay = %s", p.RetryBaseDelay)
			}
			if p.MaxTextLength != 10000 || p.MaxWordCount != 2000 {
				t.Errorf("text limits = (%d, %d)", p.MaxTextLength, p.MaxWordCount)
			}
		})
	}
}

func TestPolicyExplicitValuesKept(t *testing.T) {
	p := Policy{MaxConcurrent: 7, MaxRetries: 1, DefaultTimeout: time.Minute}.withDefaults("enhancement")
	if p.MaxConcurrent != 7 || p.MaxRetries != 1 || p.DefaultTimeout != time.Minute {
		t.Fatalf("explicit values overridden: %+v", p)
	}

	// Negative disables retries entirely.
	if p := (Policy{MaxRetries: -1}).withDefaults("transcription"); p.MaxRetries != 0 {
		t.Fatalf("MaxRetries = %d, want 0 for a negative input", p.MaxRetries)
	}
}
