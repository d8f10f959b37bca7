package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
	"quillscribe/internal/domain/ports/repository"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/infra/worker"
)

// EnhancementService manages the lifecycle of remote LLM text-enhancement
// jobs. It shares its machinery with the transcription side but owns the
// text validation rules and the token-estimate surface.
type EnhancementService struct {
	core   *core
	engine adapter.EnhancementEngine
	cache  *cache.ResultCache
	store  repository.ResultStore
	log    *zerolog.Logger

	defaultProvider model.EnhancementProvider
	enc             *tiktoken.Tiktoken
}

func NewEnhancementService(
	engine adapter.EnhancementEngine,
	store repository.ResultStore,
	rc *cache.ResultCache,
	pool *worker.Pool,
	policy Policy,
	defaultProvider model.EnhancementProvider,
	log *zerolog.Logger,
) *EnhancementService {
	if defaultProvider == "" {
		defaultProvider = model.GeminiFlash
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Warn().Err(err).Msg("tokenizer unavailable, falling back to word counts")
	}
	s := &EnhancementService{
		core:            newCore("enhancement", policy, pool, log),
		engine:          engine,
		cache:           rc,
		store:           store,
		log:             log,
		defaultProvider: defaultProvider,
		enc:             enc,
	}
	s.core.onCompleted = s.persist
	return s
}

// Submit validates the request and registers an enhancement job. Invalid
// input is rejected synchronously; everything after admission is
// asynchronous, including cache hits.
func (s *EnhancementService) Submit(req model.EnhancementRequest) (string, error) {
	if err := s.validate(&req); err != nil {
		s.core.setLastError(domain.Classify(err), err.Error())
		return "", err
	}

	p := s.core.policySnapshot()
	if req.Timeout <= 0 {
		req.Timeout = p.DefaultTimeout
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = p.MaxRetries
	}

	fp := fingerprintEnhancement(req)
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
				if e, ok := res.(*model.EnhancedText); ok {
					progress(100)
					return e, nil
				}
			}
		}
		return s.engine.Enhance(ctx, req, adapter.ProgressFunc(progress))
	}

	s.core.submit(job, run)
	return job.ID, nil
}

func (s *EnhancementService) validate(req *model.EnhancementRequest) error {
	p := s.core.policySnapshot()
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("enhance: %w", domain.ErrEmptyInput)
	}
	if len(req.Text) > p.MaxTextLength {
		return fmt.Errorf("enhance: %d chars over limit %d: %w",
			len(req.Text), p.MaxTextLength, domain.ErrTextTooLong)
	}
	if n := model.WordCount(req.Text); n > p.MaxWordCount {
		return fmt.Errorf("enhance: %d words over limit %d: %w",
			n, p.MaxWordCount, domain.ErrTextTooLong)
	}
	if req.Settings.Mode == "" {
		req.Settings = model.DefaultSettings(model.ModeGrammarOnly)
	}
	if req.Settings.Mode == model.ModeCustom && strings.TrimSpace(req.Settings.CustomPrompt) == "" {
		return fmt.Errorf("enhance: custom mode without prompt: %w", domain.ErrInvalidSettings)
	}
	if req.Settings.Creativity < 0 || req.Settings.Creativity > 1 {
		return fmt.Errorf("enhance: creativity %v out of range: %w",
			req.Settings.Creativity, domain.ErrInvalidSettings)
	}
	if req.Provider == "" {
		req.Provider = s.defaultProvider
	}
	return nil
}

// fingerprintEnhancement folds every result-affecting field into the
// cache key. Correlation id and timeout deliberately stay out.
func fingerprintEnhancement(req model.EnhancementRequest) string {
	st := req.Settings
	return cache.Fingerprint(
		"enhancement",
		req.Text,
		string(st.Mode),
		st.CustomPrompt,
		strconv.FormatBool(st.PreserveFormatting),
		strconv.Itoa(st.MaxOutputLength),
		strconv.FormatFloat(st.Creativity, 'f', -1, 64),
		st.TargetAudience,
		st.Tone,
		strings.Join(st.PreserveTerms, "\x00"),
		string(req.Provider),
		req.Language,
	)
}

// EstimateTokens approximates the LLM token count of text, used by
// callers to predict cost and clipping before submitting. Falls back to a
// words-derived estimate when the tokenizer is unavailable.
func (s *EnhancementService) EstimateTokens(text string) int {
	if s.enc != nil {
		return len(s.enc.Encode(text, nil, nil))
	}
	return model.WordCount(text) * 4 / 3
}

// WordCount counts whitespace-separated tokens in text.
func (s *EnhancementService) WordCount(text string) int {
	return model.WordCount(text)
}

// IsTextTooLong applies the current policy limits to text without
// submitting it.
func (s *EnhancementService) IsTextTooLong(text string) bool {
	p := s.core.policySnapshot()
	return len(text) > p.MaxTextLength || model.WordCount(text) > p.MaxWordCount
}

// EstimateProcessingTime predicts wall time for text from the tracked
// per-provider average, scaled by token volume. With no history it
// assumes one second per 250 tokens.
func (s *EnhancementService) EstimateProcessingTime(text string, provider model.EnhancementProvider) time.Duration {
	if provider == "" {
		provider = s.defaultProvider
	}
	tokens := s.EstimateTokens(text)
	if avg := s.core.perf.averageTime(string(provider)); avg > 0 {
		// The tracked average reflects typical payloads around 500 tokens.
		return time.Duration(float64(avg) * (float64(tokens)/500 + 0.5))
	}
	return time.Duration(tokens) * 4 * time.Millisecond
}

// SubmitBatch submits every request; slices are index-aligned with reqs.
func (s *EnhancementService) SubmitBatch(reqs []model.EnhancementRequest) (ids []string, errs []error) {
	ids = make([]string, len(reqs))
	errs = make([]error, len(reqs))
	for i, req := range reqs {
		ids[i], errs[i] = s.Submit(req)
	}
	return ids, errs
}

// Cancel stops a job per its current state.
func (s *EnhancementService) Cancel(jobID string) error { return s.core.cancelJob(jobID) }

// Status returns a copy of the job record.
func (s *EnhancementService) Status(jobID string) (model.Job, error) {
	job, ok := s.core.ledger.Get(jobID)
	if !ok {
		return model.Job{}, domain.ErrNotFound
	}
	return job, nil
}

// Result returns the enhanced text of a completed job.
func (s *EnhancementService) Result(jobID string) (*model.EnhancedText, error) {
	job, ok := s.core.ledger.Get(jobID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, domain.ErrNotCompleted)
	}
	e, ok := job.Result.(*model.EnhancedText)
	if !ok {
		return nil, fmt.Errorf("job %s carries no enhancement: %w", jobID, domain.ErrNotCompleted)
	}
	return e, nil
}

// Jobs returns copies of all tracked jobs.
func (s *EnhancementService) Jobs() []model.Job { return s.core.ledger.List(nil) }

// Subscribe registers a lifecycle listener and returns its unsubscribe func.
func (s *EnhancementService) Subscribe(l Listener) func() { return s.core.events.subscribe(l) }

// QueueLength returns the number of jobs waiting for a slot.
func (s *EnhancementService) QueueLength() int { return s.core.gate.QueueLength() }

// ActiveCount returns the number of jobs currently processing.
func (s *EnhancementService) ActiveCount() int { return s.core.gate.Active() }

// Reconfigure swaps the service policy for subsequent submissions.
func (s *EnhancementService) Reconfigure(p Policy) { s.core.reconfigure(p) }

// Policy returns the current policy snapshot.
func (s *EnhancementService) Policy() Policy { return s.core.policySnapshot() }

// GetLastError returns the most recent failure classification and message.
func (s *EnhancementService) GetLastError() (domain.ErrorKind, string) {
	return s.core.lastError()
}

// ClearErrorState resets the last-error surface.
func (s *EnhancementService) ClearErrorState() { s.core.clearLastError() }

// SetOnline flips the connectivity belief. While offline, retryable
// failures park in Failed instead of scheduling backoff timers.
func (s *EnhancementService) SetOnline(online bool) { s.core.retry.SetOnline(online) }

// RetryFailed resubmits parked retryable failures, typically right after
// SetOnline(true). Returns how many jobs were resubmitted.
func (s *EnhancementService) RetryFailed() int { return s.core.retryFailed() }

// Sweep drops terminal job records older than the retention window.
func (s *EnhancementService) Sweep() int { return s.core.ledger.Sweep() }

// AverageProcessingTime reports the mean engine-call duration for the
// provider over the recent window.
func (s *EnhancementService) AverageProcessingTime(provider model.EnhancementProvider) time.Duration {
	return s.core.perf.averageTime(string(provider))
}

// Reliability reports the recent success ratio for the provider.
func (s *EnhancementService) Reliability(provider model.EnhancementProvider) float64 {
	return s.core.perf.reliability(string(provider))
}

// Providers lists the backends the engine can serve.
func (s *EnhancementService) Providers() []model.EnhancementProvider {
	return s.engine.Providers()
}

// Available reports whether a provider is usable right now.
func (s *EnhancementService) Available(provider model.EnhancementProvider) bool {
	return s.engine.Available(provider)
}

// Modes lists the supported enhancement modes with their descriptions.
func (s *EnhancementService) Modes() map[model.EnhancementMode]string {
	modes := []model.EnhancementMode{
		model.ModeGrammarOnly,
		model.ModeStyle,
		model.ModeSummarization,
		model.ModeFormalization,
		model.ModeCustom,
	}
	out := make(map[model.EnhancementMode]string, len(modes))
	for _, m := range modes {
		out[m] = model.ModeDescription(m)
	}
	return out
}

// Shutdown stops retry and watchdog timers.
func (s *EnhancementService) Shutdown() { s.core.shutdown() }

func (s *EnhancementService) persist(job model.Job, res model.Result) {
	e, ok := res.(*model.EnhancedText)
	if !ok {
		return
	}
	if s.cache != nil && s.core.policySnapshot().CachingEnabled {
		s.cache.Put(job.Fingerprint, e)
	}
	if s.store == nil || job.CorrelationID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.SaveEnhancement(ctx, job.CorrelationID, e); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).
				Str("correlation_id", job.CorrelationID).Msg("result store push failed")
		}
	}()
}
