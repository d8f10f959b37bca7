package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/infra/metrics"
	"quillscribe/internal/infra/worker"
)

// runFunc is one attempt of a job's unit of work. It blocks for the
// duration of the engine call; ctx aborts it cooperatively.
type runFunc func(ctx context.Context, progress func(int)) (model.Result, error)

// core is the request-lifecycle machinery shared by the transcription and
// enhancement services: ledger, concurrency gate, retry scheduler, event
// fan-out and watchdog timers. The facades own validation and the typed
// engine calls; everything between submission and the terminal event runs
// through here.
type core struct {
	name string
	log  *zerolog.Logger

	ledger *Ledger
	gate   *Gate
	retry  *RetryScheduler
	events *events
	pool   *worker.Pool
	perf   *perfTracker

	// onCompleted runs after a successful terminal transition, off the
	// ledger lock. The facades hook cache writes and the best-effort
	// store push here.
	onCompleted func(job model.Job, res model.Result)

	mu          sync.Mutex
	policy      Policy
	runs        map[string]runFunc
	watchdogs   map[string]*time.Timer
	lastErrKind domain.ErrorKind
	lastErrMsg  string
}

func newCore(name string, p Policy, pool *worker.Pool, log *zerolog.Logger) *core {
	p = p.withDefaults(name)
	return &core{
		name:      name,
		log:       log,
		ledger:    NewLedger(5 * time.Minute),
		gate:      NewGate(p.MaxConcurrent),
		retry:     NewRetryScheduler(p.RetryBaseDelay),
		events:    newEvents(),
		pool:      pool,
		perf:      newPerfTracker(),
		policy:    p,
		runs:      make(map[string]runFunc),
		watchdogs: make(map[string]*time.Timer),
	}
}

func (c *core) policySnapshot() Policy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy
}

func (c *core) reconfigure(p Policy) {
	p = p.withDefaults(c.name)
	c.mu.Lock()
	c.policy = p
	c.mu.Unlock()
	for _, id := range c.gate.SetLimit(p.MaxConcurrent) {
		c.start(id)
	}
	c.retry.SetBaseDelay(p.RetryBaseDelay)
	c.updateGauges()
}

// submit registers the job and either starts it immediately or leaves it
// queued. It never blocks on the work itself.
func (c *core) submit(job *model.Job, run runFunc) {
	c.mu.Lock()
	c.runs[job.ID] = run
	c.mu.Unlock()

	c.ledger.Add(job)
	metrics.IncJobSubmitted(c.name)
	c.log.Debug().Str("job_id", job.ID).Str("provider", job.Provider).Msg("job submitted")

	if c.gate.TryAdmit(job.ID) {
		c.start(job.ID)
	}
	c.updateGauges()
}

// start moves an admitted job into Processing and hands its attempt to
// the worker pool.
func (c *core) start(id string) {
	ctx, err := c.ledger.BeginProcessing(id)
	if err != nil {
		// Lost a race with cancellation after admission; free the slot.
		c.releaseAndNext(id)
		return
	}
	job, _ := c.ledger.Get(id)
	attempt := job.Retries

	run := c.runFor(id)
	if run == nil {
		c.failAttempt(id, domain.KindUnknown, "job runner missing")
		c.releaseAndNext(id)
		return
	}

	c.armWatchdog(id, job.Timeout)
	c.events.started(id, job.Provider)
	c.updateGauges()

	task := func(context.Context) error {
		started := time.Now()
		res, runErr := run(ctx, func(pct int) { c.events.progress(id, pct) })
		c.finish(id, attempt, res, runErr, time.Since(started))
		return nil
	}
	if err := c.pool.Submit(task); err != nil {
		c.disarmWatchdog(id)
		c.failAttempt(id, domain.KindResourceUnavailable, err.Error())
		c.releaseAndNext(id)
	}
}

// finish handles the worker's report for one attempt. Deliveries from
// superseded attempts (the watchdog failed them already and a retry is
// pending or running) are discarded without touching the gate.
func (c *core) finish(id string, attempt int, res model.Result, runErr error, elapsed time.Duration) {
	c.disarmWatchdog(id)

	job, ok := c.ledger.Get(id)
	if !ok {
		c.releaseAndNext(id)
		return
	}
	if job.Retries != attempt {
		return
	}

	switch job.Status {
	case model.JobStatusProcessing:
		// normal delivery, handled below
	case model.JobStatusCancelled:
		// Result discarded, no notification; the worker still owns the slot.
		c.log.Debug().Str("job_id", id).Msg("discarding result of cancelled job")
		c.releaseAndNext(id)
		return
	default:
		// The watchdog failed this attempt and already released the slot.
		return
	}

	if runErr == nil {
		if err := c.ledger.Complete(id, res); err != nil {
			// Raced into Cancelled between the status read and here.
			if j, ok := c.ledger.Get(id); ok && j.Status == model.JobStatusCancelled {
				c.releaseAndNext(id)
			}
			return
		}
		c.perfRecord(job.Provider, elapsed, true)
		metrics.ObserveEngineCall(c.name, job.Provider, int(elapsed/time.Millisecond), true)
		metrics.IncJobFinished(c.name, "completed")
		c.log.Info().Str("job_id", id).Str("provider", job.Provider).
			Dur("duration", elapsed).Msg("job completed")
		if c.onCompleted != nil {
			c.onCompleted(job, res)
		}
		c.events.completed(id, res)
		c.cleanupRun(id)
		c.releaseAndNext(id)
		return
	}

	kind := domain.Classify(runErr)
	c.perfRecord(job.Provider, elapsed, false)
	metrics.ObserveEngineCall(c.name, job.Provider, int(elapsed/time.Millisecond), false)
	c.log.Warn().Str("job_id", id).Str("kind", string(kind)).
		Err(runErr).Msg("job attempt failed")
	c.failAttempt(id, kind, runErr.Error())
	c.releaseAndNext(id)
}

// failAttempt records the failure and decides between retry and terminal
// failure. Held back retryable failures (offline) stay Failed until
// RetryFailed resubmits them.
func (c *core) failAttempt(id string, kind domain.ErrorKind, msg string) {
	c.setLastError(kind, msg)
	if err := c.ledger.MarkFailed(id, kind, msg); err != nil {
		return
	}
	job, ok := c.ledger.Get(id)
	if !ok {
		return
	}

	if kind.Retryable() && job.Retries < job.MaxRetries {
		if c.retry.Online() {
			metrics.IncJobRetry(c.name)
			c.log.Info().Str("job_id", id).Int("retry", job.Retries+1).
				Int("max_retries", job.MaxRetries).Msg("scheduling retry")
			c.retry.Schedule(id, job.Retries, c.resubmit)
		}
		// Offline: job stays Failed with budget left; no terminal event yet.
		return
	}

	metrics.IncJobFinished(c.name, "failed")
	c.events.failed(id, kind, msg)
	c.cleanupRun(id)
}

// resubmit is the retry edge: Failed -> Pending -> gate.
func (c *core) resubmit(id string) {
	if err := c.ledger.Resurrect(id); err != nil {
		return
	}
	if c.gate.TryAdmit(id) {
		c.start(id)
	}
	c.updateGauges()
}

// cancelJob implements cooperative cancellation per job state.
func (c *core) cancelJob(id string) error {
	job, ok := c.ledger.Get(id)
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status == model.JobStatusFailed {
		// Stop a pending resubmission so the job stays terminal.
		c.retry.Cancel(id)
		c.cleanupRun(id)
		return nil
	}
	if job.Status.Terminal() {
		return nil
	}

	wasProcessing, err := c.ledger.MarkCancelled(id)
	if err != nil {
		// Raced into a terminal state; nothing to undo.
		return nil
	}
	if !wasProcessing {
		c.gate.Cancel(id)
	}
	// For a processing job the ledger fired the attempt context; the
	// engine call may still run to completion, but finish discards its
	// result and frees the slot.
	c.retry.Cancel(id)
	metrics.IncJobFinished(c.name, "cancelled")
	c.log.Info().Str("job_id", id).Bool("was_processing", wasProcessing).Msg("job cancelled")
	c.events.cancelled(id)
	c.cleanupRun(id)
	c.updateGauges()
	return nil
}

// onTimeout is the watchdog: a job that has not reached a terminal state
// within its window is failed with a transient classification, whether or
// not the engine call finished.
func (c *core) onTimeout(id string) {
	job, ok := c.ledger.Get(id)
	if !ok || job.Status != model.JobStatusProcessing {
		return
	}
	metrics.IncEngineTimeout(c.name, job.Provider)
	c.log.Warn().Str("job_id", id).Dur("timeout", job.Timeout).Msg("watchdog timeout")
	c.failAttempt(id, domain.KindTransient, "timed out after "+job.Timeout.String())
	c.releaseAndNext(id)
}

// retryFailed resubmits failed jobs that still have retry budget and a
// transient classification, typically after connectivity returns.
func (c *core) retryFailed() int {
	jobs := c.ledger.List(func(j model.Job) bool {
		return j.Status == model.JobStatusFailed &&
			j.ErrKind.Retryable() &&
			j.Retries < j.MaxRetries
	})
	n := 0
	for _, j := range jobs {
		if c.runFor(j.ID) == nil {
			continue
		}
		c.resubmit(j.ID)
		n++
	}
	return n
}

func (c *core) releaseAndNext(id string) {
	for _, next := range c.gate.Release(id) {
		c.start(next)
	}
	c.updateGauges()
}

func (c *core) armWatchdog(id string, timeout time.Duration) {
	if timeout <= 0 {
		timeout = c.policySnapshot().DefaultTimeout
	}
	c.mu.Lock()
	if t, ok := c.watchdogs[id]; ok {
		t.Stop()
	}
	c.watchdogs[id] = time.AfterFunc(timeout, func() { c.onTimeout(id) })
	c.mu.Unlock()
}

func (c *core) disarmWatchdog(id string) {
	c.mu.Lock()
	if t, ok := c.watchdogs[id]; ok {
		t.Stop()
		delete(c.watchdogs, id)
	}
	c.mu.Unlock()
}

func (c *core) runFor(id string) runFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runs[id]
}

func (c *core) cleanupRun(id string) {
	c.mu.Lock()
	delete(c.runs, id)
	c.mu.Unlock()
}

func (c *core) setLastError(kind domain.ErrorKind, msg string) {
	c.mu.Lock()
	c.lastErrKind = kind
	c.lastErrMsg = msg
	c.mu.Unlock()
}

func (c *core) lastError() (domain.ErrorKind, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErrKind, c.lastErrMsg
}

func (c *core) clearLastError() {
	c.setLastError(domain.KindNone, "")
}

func (c *core) updateGauges() {
	metrics.SetQueueDepth(c.name, c.gate.QueueLength())
	metrics.SetProcessing(c.name, c.gate.Active())
}

func (c *core) shutdown() {
	c.retry.Shutdown()
	c.mu.Lock()
	for id, t := range c.watchdogs {
		t.Stop()
		delete(c.watchdogs, id)
	}
	c.mu.Unlock()
}

func (c *core) perfRecord(provider string, d time.Duration, success bool) {
	if c.perf != nil {
		c.perf.record(provider, d, success)
	}
}
