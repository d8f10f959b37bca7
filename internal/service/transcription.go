package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
	"quillscribe/internal/domain/ports/repository"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/infra/worker"
)

// TranscriptionService manages the lifecycle of local speech-to-text
// jobs: validation, queueing, watchdog timeouts, retries, caching and
// event fan-out. Engine calls run on the shared worker pool; Submit never
// blocks on them.
type TranscriptionService struct {
	core   *core
	engine adapter.TranscriptionEngine
	cache  *cache.ResultCache
	store  repository.ResultStore
	log    *zerolog.Logger

	defaultProvider model.TranscriptionProvider
	defaultLanguage string
}

func NewTranscriptionService(
	engine adapter.TranscriptionEngine,
	store repository.ResultStore,
	rc *cache.ResultCache,
	pool *worker.Pool,
	policy Policy,
	defaultProvider model.TranscriptionProvider,
	defaultLanguage string,
	log *zerolog.Logger,
) *TranscriptionService {
	if defaultProvider == "" {
		defaultProvider = model.WhisperBase
	}
	if defaultLanguage == "" {
		defaultLanguage = "auto"
	}
	s := &TranscriptionService{
		core:            newCore("transcription", policy, pool, log),
		engine:          engine,
		cache:           rc,
		store:           store,
		log:             log,
		defaultProvider: defaultProvider,
		defaultLanguage: defaultLanguage,
	}
	s.core.onCompleted = s.persist
	return s
}

// Submit validates the request and registers a transcription job,
// returning its id. The returned status is always Pending or Processing;
// even a cache hit resolves asynchronously so callers observe one
// consistent lifecycle.
func (s *TranscriptionService) Submit(req model.TranscriptionRequest) (string, error) {
	if req.AudioFilePath == "" {
		s.core.setLastError(domain.KindInvalidInput, "audio file path is empty")
		return "", fmt.Errorf("submit transcription: %w", domain.ErrInvalidAudioFile)
	}
	info, err := os.Stat(req.AudioFilePath)
	if err != nil || info.IsDir() {
		s.core.setLastError(domain.KindInvalidInput, "audio file not readable: "+req.AudioFilePath)
		return "", fmt.Errorf("submit transcription %q: %w", req.AudioFilePath, domain.ErrInvalidAudioFile)
	}
	if req.Provider == "" {
		req.Provider = s.defaultProvider
	}
	if req.Language == "" {
		req.Language = s.defaultLanguage
	}
	if !s.engine.IsModelLoaded(req.Provider) {
		s.core.setLastError(domain.KindResourceUnavailable, "model not loaded: "+string(req.Provider))
		return "", fmt.Errorf("submit transcription: provider %s: %w", req.Provider, domain.ErrModelNotLoaded)
	}

	p := s.core.policySnapshot()
	if req.Timeout <= 0 {
		req.Timeout = p.DefaultTimeout
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = p.MaxRetries
	}

	// The file identity, not just its path, keys the cache: a re-recorded
	// file at the same path must miss.
	fp := cache.Fingerprint(
		"transcription",
		req.AudioFilePath,
		strconv.FormatInt(info.Size(), 10),
		strconv.FormatInt(info.ModTime().UnixNano(), 10),
		req.Language,
		string(req.Provider),
	)

	job := &model.Job{
		ID:            ulid.Make().String(),
		CorrelationID: req.CorrelationID,
		Provider:      string(req.Provider),
		Fingerprint:   fp,
		MaxRetries:    req.MaxRetries,
		Timeout:       req.Timeout,
	}

	run := func(ctx context.Context, progress func(int)) (model.Result, error) {
		if s.cache != nil && p.CachingEnabled {
			if res, ok := s.cache.Get(fp); ok {
				if t, ok := res.(*model.Transcription); ok {
					progress(100)
					return t, nil
				}
			}
		}
		return s.engine.Transcribe(ctx, req, adapter.ProgressFunc(progress))
	}

	s.core.submit(job, run)
	return job.ID, nil
}

// SubmitBatch submits every request, skipping invalid ones. The returned
// slices are index-aligned with reqs; a failed submission leaves an empty
// id and the error in errs.
func (s *TranscriptionService) SubmitBatch(reqs []model.TranscriptionRequest) (ids []string, errs []error) {
	ids = make([]string, len(reqs))
	errs = make([]error, len(reqs))
	for i, req := range reqs {
		ids[i], errs[i] = s.Submit(req)
	}
	return ids, errs
}

// Cancel stops a job per its current state: a pending job leaves the
// queue, a processing job has its context cancelled and its eventual
// result discarded, terminal jobs are untouched.
func (s *TranscriptionService) Cancel(jobID string) error {
	return s.core.cancelJob(jobID)
}

// Status returns a copy of the job record.
func (s *TranscriptionService) Status(jobID string) (model.Job, error) {
	job, ok := s.core.ledger.Get(jobID)
	if !ok {
		return model.Job{}, domain.ErrNotFound
	}
	return job, nil
}

// Result returns the transcription of a completed job.
func (s *TranscriptionService) Result(jobID string) (*model.Transcription, error) {
	job, ok := s.core.ledger.Get(jobID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, domain.ErrNotCompleted)
	}
	t, ok := job.Result.(*model.Transcription)
	if !ok {
		return nil, fmt.Errorf("job %s carries no transcription: %w", jobID, domain.ErrNotCompleted)
	}
	return t, nil
}

// Jobs returns copies of all tracked jobs, terminal included until the
// retention sweep drops them.
func (s *TranscriptionService) Jobs() []model.Job {
	return s.core.ledger.List(nil)
}

// Subscribe registers a lifecycle listener and returns its unsubscribe func.
func (s *TranscriptionService) Subscribe(l Listener) func() {
	return s.core.events.subscribe(l)
}

// QueueLength returns the number of jobs waiting for a slot.
func (s *TranscriptionService) QueueLength() int { return s.core.gate.QueueLength() }

// ActiveCount returns the number of jobs currently processing.
func (s *TranscriptionService) ActiveCount() int { return s.core.gate.Active() }

// Reconfigure swaps the service policy. Jobs already submitted keep the
// timeout and retry budget captured at submission.
func (s *TranscriptionService) Reconfigure(p Policy) { s.core.reconfigure(p) }

// Policy returns the current policy snapshot.
func (s *TranscriptionService) Policy() Policy { return s.core.policySnapshot() }

// GetLastError returns the most recent failure classification and message.
func (s *TranscriptionService) GetLastError() (domain.ErrorKind, string) {
	return s.core.lastError()
}

// ClearErrorState resets the last-error surface.
func (s *TranscriptionService) ClearErrorState() { s.core.clearLastError() }

// SetOnline flips the connectivity belief consulted before scheduling
// retries. Transcription is local, so this mostly matters when the result
// store is remote.
func (s *TranscriptionService) SetOnline(online bool) { s.core.retry.SetOnline(online) }

// RetryFailed resubmits failed jobs that still have retry budget,
// returning how many were resubmitted.
func (s *TranscriptionService) RetryFailed() int { return s.core.retryFailed() }

// Sweep drops terminal job records older than the retention window.
func (s *TranscriptionService) Sweep() int { return s.core.ledger.Sweep() }

// AverageProcessingTime reports the mean engine-call duration for the
// provider over the recent window.
func (s *TranscriptionService) AverageProcessingTime(provider model.TranscriptionProvider) time.Duration {
	return s.core.perf.averageTime(string(provider))
}

// Reliability reports the recent success ratio for the provider.
func (s *TranscriptionService) Reliability(provider model.TranscriptionProvider) float64 {
	return s.core.perf.reliability(string(provider))
}

// Providers lists the model variants the engine can serve.
func (s *TranscriptionService) Providers() []model.TranscriptionProvider {
	return s.engine.Providers()
}

// SupportedFormats lists accepted audio container formats.
func (s *TranscriptionService) SupportedFormats() []string {
	return s.engine.SupportedFormats()
}

// LoadModel makes a provider's model resident ahead of submissions.
func (s *TranscriptionService) LoadModel(ctx context.Context, provider model.TranscriptionProvider) error {
	return s.engine.LoadModel(ctx, provider)
}

// UnloadModel releases a provider's model memory.
func (s *TranscriptionService) UnloadModel(provider model.TranscriptionProvider) error {
	return s.engine.UnloadModel(provider)
}

// IsModelLoaded reports model residency for a provider.
func (s *TranscriptionService) IsModelLoaded(provider model.TranscriptionProvider) bool {
	return s.engine.IsModelLoaded(provider)
}

// Shutdown stops retry and watchdog timers. In-flight engine calls are
// abandoned to the worker pool's own shutdown.
func (s *TranscriptionService) Shutdown() { s.core.shutdown() }

// persist runs after a successful completion, off the ledger lock.
func (s *TranscriptionService) persist(job model.Job, res model.Result) {
	t, ok := res.(*model.Transcription)
	if !ok {
		return
	}
	if s.cache != nil && s.core.policySnapshot().CachingEnabled {
		s.cache.Put(job.Fingerprint, t)
	}
	if s.store == nil || job.CorrelationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.SaveTranscription(ctx, job.CorrelationID, t); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).
				Str("correlation_id", job.CorrelationID).Msg("result store push failed")
		}
	}()
}
