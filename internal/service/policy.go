package service

import "time"

// Policy bundles the runtime-tunable knobs of a processing service. It is
// captured at construction and swappable via Reconfigure; a snapshot is
// taken at submission time, so new values only affect jobs submitted
// afterwards.
type Policy struct {
	MaxConcurrent  int
	DefaultTimeout time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	CachingEnabled bool
	MaxTextLength  int // enhancement payload limit, characters
	MaxWordCount   int // enhancement payload limit, words
}

func (p Policy) withDefaults(service string) Policy {
	if p.MaxConcurrent <= 0 {
		if service == "transcription" {
			p.MaxConcurrent = 2
		} else {
			p.MaxConcurrent = 3
		}
	}
	if p.DefaultTimeout <= 0 {
		if service == "transcription" {
			p.DefaultTimeout = 30 * time.Second
		} else {
			p.DefaultTimeout = 10 * time.Second
		}
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	} else if p.MaxRetries == 0 {
		// Zero means unset; pass a negative value to disable retries.
		if service == "transcription" {
			p.MaxRetries = 3
		} else {
			p.MaxRetries = 2
		}
	}
	if p.RetryBaseDelay <= 0 {
		p.RetryBaseDelay = 5 * time.Second
	}
	if p.MaxTextLength <= 0 {
		p.MaxTextLength = 10000
	}
	if p.MaxWordCount <= 0 {
		p.MaxWordCount = 2000
	}
	return p
}
