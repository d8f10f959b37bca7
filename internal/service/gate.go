package service

import "sync"

// Gate bounds the number of simultaneously processing jobs and keeps a
// strict FIFO queue of jobs waiting for a slot. Admission and release
// share one mutex so concurrent completions cannot over-admit.
type Gate struct {
	mu      sync.Mutex
	limit   int
	active  map[string]struct{}
	pending []string
}

func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{limit: limit, active: make(map[string]struct{})}
}

// TryAdmit grants a slot to jobID when one is free and no job is already
// waiting, otherwise appends it to the pending queue and returns false.
// The queue check keeps admission strictly FIFO: a fresh submission never
// jumps ahead of jobs queued before a limit change.
func (g *Gate) TryAdmit(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.pending) == 0 && len(g.active) < g.limit {
		g.active[jobID] = struct{}{}
		return true
	}
	g.pending = append(g.pending, jobID)
	return false
}

// promoteLocked moves queue heads into active slots while capacity allows.
func (g *Gate) promoteLocked() []string {
	var promoted []string
	for len(g.pending) > 0 && len(g.active) < g.limit {
		next := g.pending[0]
		g.pending = g.pending[1:]
		g.active[next] = struct{}{}
		promoted = append(promoted, next)
	}
	return promoted
}

// Release frees jobID's slot and promotes queue heads into whatever
// capacity is now open. The promoted ids are returned in FIFO order so
// the caller can start their processors. Releasing a job that holds no
// slot is a no-op, which makes the completion and watchdog paths safe to
// race.
func (g *Gate) Release(jobID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.active[jobID]; !held {
		return nil
	}
	delete(g.active, jobID)
	return g.promoteLocked()
}

// Cancel removes jobID from the pending queue. It reports whether the job
// was queued; a job already holding a slot is untouched.
func (g *Gate) Cancel(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, id := range g.pending {
		if id == jobID {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return true
		}
	}
	return false
}

// QueueLength returns the number of jobs waiting for a slot.
func (g *Gate) QueueLength() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Active returns the number of jobs currently holding slots.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}

// SetLimit changes the concurrency bound. A raise promotes queued jobs
// into the freed capacity and returns their ids in FIFO order. A lower
// limit never evicts running jobs; it simply stops promotions until
// slots drain.
func (g *Gate) SetLimit(limit int) []string {
	if limit <= 0 {
		limit = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limit = limit
	return g.promoteLocked()
}
