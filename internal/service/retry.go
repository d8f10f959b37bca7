package service

import (
	"sync"
	"time"

	"quillscribe/internal/domain"
)

// RetryScheduler decides whether a failed job may be resubmitted and
// performs the delayed resubmission. Only transient failures qualify, and
// only while connectivity is believed available.
type RetryScheduler struct {
	mu        sync.Mutex
	baseDelay time.Duration
	maxDelay  time.Duration
	online    bool
	timers    map[string]*time.Timer
}

func NewRetryScheduler(baseDelay time.Duration) *RetryScheduler {
	if baseDelay <= 0 {
		baseDelay = 5 * time.Second
	}
	return &RetryScheduler{
		baseDelay: baseDelay,
		maxDelay:  2 * time.Minute,
		online:    true,
		timers:    make(map[string]*time.Timer),
	}
}

// ShouldRetry applies the retry policy: budget left, transient error kind,
// connectivity up.
func (r *RetryScheduler) ShouldRetry(kind domain.ErrorKind, retries, maxRetries int) bool {
	r.mu.Lock()
	online := r.online
	r.mu.Unlock()
	return online && kind.Retryable() && retries < maxRetries
}

// SetBaseDelay replaces the starting backoff for subsequent schedules.
func (r *RetryScheduler) SetBaseDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.baseDelay = d
	r.mu.Unlock()
}

// Delay returns the backoff before the given attempt (0-based), doubling
// from the base and capped.
func (r *RetryScheduler) Delay(attempt int) time.Duration {
	r.mu.Lock()
	d := r.baseDelay
	r.mu.Unlock()
	for i := 0; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

// Schedule arms a one-shot timer that invokes resubmit after the backoff
// for the given attempt. A second Schedule for the same job replaces the
// pending timer.
func (r *RetryScheduler) Schedule(jobID string, attempt int, resubmit func(jobID string)) {
	delay := r.Delay(attempt)
	r.mu.Lock()
	if t, ok := r.timers[jobID]; ok {
		t.Stop()
	}
	r.timers[jobID] = time.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, jobID)
		r.mu.Unlock()
		resubmit(jobID)
	})
	r.mu.Unlock()
}

// Cancel stops a pending resubmission, if any.
func (r *RetryScheduler) Cancel(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[jobID]
	if !ok {
		return false
	}
	t.Stop()
	delete(r.timers, jobID)
	return true
}

// Shutdown stops every pending timer.
func (r *RetryScheduler) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}

// SetOnline flips the connectivity flag consulted by ShouldRetry.
func (r *RetryScheduler) SetOnline(online bool) {
	r.mu.Lock()
	r.online = online
	r.mu.Unlock()
}

// Online reports the current connectivity belief.
func (r *RetryScheduler) Online() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online
}
