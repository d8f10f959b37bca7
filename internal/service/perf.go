package service

import (
	"sync"
	"time"
)

const perfWindow = 50

// perfTracker keeps a sliding window of call durations and outcomes per
// provider, backing the average-time and reliability introspection
// surfaces.
type perfTracker struct {
	mu        sync.Mutex
	durations map[string][]time.Duration
	outcomes  map[string][]bool
}

func newPerfTracker() *perfTracker {
	return &perfTracker{
		durations: make(map[string][]time.Duration),
		outcomes:  make(map[string][]bool),
	}
}

func (p *perfTracker) record(provider string, d time.Duration, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ds := append(p.durations[provider], d)
	if len(ds) > perfWindow {
		ds = ds[len(ds)-perfWindow:]
	}
	p.durations[provider] = ds

	os := append(p.outcomes[provider], success)
	if len(os) > perfWindow {
		os = os[len(os)-perfWindow:]
	}
	p.outcomes[provider] = os
}

// averageTime returns the mean duration over the window, zero when no
// calls were recorded.
func (p *perfTracker) averageTime(provider string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	ds := p.durations[provider]
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

// reliability returns the success ratio over the window; 1.0 when no
// calls were recorded, matching an optimistic prior.
func (p *perfTracker) reliability(provider string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	os := p.outcomes[provider]
	if len(os) == 0 {
		return 1.0
	}
	ok := 0
	for _, s := range os {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(os))
}
