package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
)

// validTransitions encodes the job state machine. Failed->Pending is the
// retry edge; everything else out of a terminal state is rejected.
var validTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending:    {model.JobStatusProcessing, model.JobStatusCancelled},
	model.JobStatusProcessing: {model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled},
	model.JobStatusFailed:     {model.JobStatusPending},
}

func transitionAllowed(from, to model.JobStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Ledger owns the authoritative state of every in-flight and recently
// terminal job. All transitions go through it, under one lock; callers
// outside the lock only ever see copies. It also owns the per-attempt
// cancellation handle so no worker reference can dangle past a terminal
// transition.
type Ledger struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	cancels   map[string]context.CancelFunc
	retention time.Duration

	now func() time.Time
}

func NewLedger(retention time.Duration) *Ledger {
	if retention <= 0 {
		retention = 5 * time.Minute
	}
	return &Ledger{
		jobs:      make(map[string]*model.Job),
		cancels:   make(map[string]context.CancelFunc),
		retention: retention,
		now:       time.Now,
	}
}

// Add registers a freshly submitted job in Pending state.
func (l *Ledger) Add(job *model.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	job.Status = model.JobStatusPending
	job.SubmittedAt = now
	job.LastTransitionAt = now
	l.jobs[job.ID] = job
}

// Get returns a copy of the job record.
func (l *Ledger) Get(id string) (model.Job, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return *j, true
}

// BeginProcessing transitions Pending->Processing and returns the context
// the engine call must run under. The matching cancel func stays with the
// ledger and fires on cancellation or any terminal transition.
func (l *Ledger) BeginProcessing(id string) (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !transitionAllowed(j.Status, model.JobStatusProcessing) {
		return nil, fmt.Errorf("job %s: cannot start processing from %s", id, j.Status)
	}
	l.transition(j, model.JobStatusProcessing)
	ctx, cancel := context.WithCancel(context.Background())
	l.cancels[id] = cancel
	return ctx, nil
}

// Complete transitions Processing->Completed and attaches the result.
func (l *Ledger) Complete(id string, res model.Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !transitionAllowed(j.Status, model.JobStatusCompleted) {
		return fmt.Errorf("job %s: cannot complete from %s", id, j.Status)
	}
	l.transition(j, model.JobStatusCompleted)
	j.Result = res
	j.ErrKind = domain.KindNone
	j.ErrMsg = ""
	l.releaseCancel(id)
	return nil
}

// MarkFailed transitions Processing->Failed and records the classified error.
func (l *Ledger) MarkFailed(id string, kind domain.ErrorKind, msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !transitionAllowed(j.Status, model.JobStatusFailed) {
		return fmt.Errorf("job %s: cannot fail from %s", id, j.Status)
	}
	l.transition(j, model.JobStatusFailed)
	j.ErrKind = kind
	j.ErrMsg = msg
	l.releaseCancel(id)
	return nil
}

// MarkCancelled transitions a Pending or Processing job to Cancelled.
// For a processing job the stored cancel func fires so a cooperative
// engine call can abort; wasProcessing tells the caller whether a worker
// still holds the concurrency slot.
func (l *Ledger) MarkCancelled(id string) (wasProcessing bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !transitionAllowed(j.Status, model.JobStatusCancelled) {
		return false, fmt.Errorf("job %s: cannot cancel from %s", id, j.Status)
	}
	wasProcessing = j.Status == model.JobStatusProcessing
	l.transition(j, model.JobStatusCancelled)
	j.Result = nil
	l.releaseCancel(id)
	return wasProcessing, nil
}

// Resurrect performs the retry edge Failed->Pending and increments the
// retry count.
func (l *Ledger) Resurrect(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	j, ok := l.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !transitionAllowed(j.Status, model.JobStatusPending) {
		return fmt.Errorf("job %s: cannot retry from %s", id, j.Status)
	}
	l.transition(j, model.JobStatusPending)
	j.Retries++
	j.ErrKind = domain.KindNone
	j.ErrMsg = ""
	return nil
}

// List returns copies of all jobs matching the filter.
func (l *Ledger) List(filter func(model.Job) bool) []model.Job {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Job
	for _, j := range l.jobs {
		if filter == nil || filter(*j) {
			out = append(out, *j)
		}
	}
	return out
}

// Sweep drops terminal records older than the retention window and
// returns how many were removed.
func (l *Ledger) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.retention)
	removed := 0
	for id, j := range l.jobs {
		if j.Status.Terminal() && j.LastTransitionAt.Before(cutoff) {
			delete(l.jobs, id)
			l.releaseCancel(id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked records, terminal included.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.jobs)
}

func (l *Ledger) transition(j *model.Job, to model.JobStatus) {
	j.Status = to
	j.LastTransitionAt = l.now()
}

func (l *Ledger) releaseCancel(id string) {
	if cancel, ok := l.cancels[id]; ok {
		cancel()
		delete(l.cancels, id)
	}
}
