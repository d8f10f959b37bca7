package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/adapter"
	"quillscribe/internal/infra/worker"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func testPool(t interface{ Cleanup(func()) }) *worker.Pool {
	ctx, cancel := context.WithCancel(context.Background())
	p := worker.NewPool(8, testLogger())
	p.Start(ctx)
	t.Cleanup(func() {
		cancel()
		p.Stop()
	})
	return p
}

// fakeEnhancer scripts per-call behavior: errs are consumed one per call,
// then calls succeed. A nil error entry also succeeds.
type fakeEnhancer struct {
	mu    sync.Mutex
	delay time.Duration
	errs  []error
	calls int
}

func (f *fakeEnhancer) nextErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeEnhancer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEnhancer) Enhance(ctx context.Context, req model.EnhancementRequest, progress adapter.ProgressFunc) (*model.EnhancedText, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return &model.EnhancedText{
		ID:       "res-" + req.Text[:min(8, len(req.Text))],
		Original: req.Text,
		Enhanced: "enhanced: " + req.Text,
		Mode:     req.Settings.Mode,
		Provider: req.Provider,
	}, nil
}

func (f *fakeEnhancer) Providers() []model.EnhancementProvider {
	return []model.EnhancementProvider{model.GeminiFlash, model.GeminiPro}
}

func (f *fakeEnhancer) Available(model.EnhancementProvider) bool { return true }

// fakeTranscriber mirrors fakeEnhancer for the speech side.
type fakeTranscriber struct {
	mu     sync.Mutex
	delay  time.Duration
	errs   []error
	calls  int
	loaded map[model.TranscriptionProvider]bool
}

func newFakeTranscriber() *fakeTranscriber {
	return &fakeTranscriber{loaded: map[model.TranscriptionProvider]bool{
		model.WhisperBase: true,
	}}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, req model.TranscriptionRequest, progress adapter.ProgressFunc) (*model.Transcription, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls++
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if progress != nil {
		progress(100)
	}
	return &model.Transcription{
		ID:       "t-1",
		Text:     "hello world",
		Language: req.Language,
		Provider: req.Provider,
	}, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTranscriber) LoadModel(_ context.Context, p model.TranscriptionProvider) error {
	f.mu.Lock()
	f.loaded[p] = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscriber) UnloadModel(p model.TranscriptionProvider) error {
	f.mu.Lock()
	delete(f.loaded, p)
	f.mu.Unlock()
	return nil
}

func (f *fakeTranscriber) IsModelLoaded(p model.TranscriptionProvider) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded[p]
}

func (f *fakeTranscriber) ModelPath(p model.TranscriptionProvider) string { return "" }

func (f *fakeTranscriber) Providers() []model.TranscriptionProvider {
	return []model.TranscriptionProvider{model.WhisperBase}
}

func (f *fakeTranscriber) SupportedFormats() []string { return []string{"wav"} }

// recorder collects lifecycle events and signals terminal ones.
type recorder struct {
	mu        sync.Mutex
	started   []string
	completed []string
	failed    map[string]domain.ErrorKind
	cancelled []string
	terminal  chan string
}

func newRecorder() *recorder {
	return &recorder{
		failed:   make(map[string]domain.ErrorKind),
		terminal: make(chan string, 64),
	}
}

func (r *recorder) Started(jobID, provider string) {
	r.mu.Lock()
	r.started = append(r.started, jobID)
	r.mu.Unlock()
}

func (r *recorder) Progress(string, int) {}

func (r *recorder) Completed(jobID string, _ model.Result) {
	r.mu.Lock()
	r.completed = append(r.completed, jobID)
	r.mu.Unlock()
	r.terminal <- jobID
}

func (r *recorder) Failed(jobID string, kind domain.ErrorKind, _ string) {
	r.mu.Lock()
	r.failed[jobID] = kind
	r.mu.Unlock()
	r.terminal <- jobID
}

func (r *recorder) Cancelled(jobID string) {
	r.mu.Lock()
	r.cancelled = append(r.cancelled, jobID)
	r.mu.Unlock()
	r.terminal <- jobID
}

func (r *recorder) waitTerminal(t interface{ Fatalf(string, ...any) }, n int, timeout time.Duration) []string {
	var ids []string
	deadline := time.After(timeout)
	for len(ids) < n {
		select {
		case id := <-r.terminal:
			ids = append(ids, id)
		case <-deadline:
			t.Fatalf("timed out waiting for %d terminal events, got %d", n, len(ids))
			return ids
		}
	}
	return ids
}

func (r *recorder) completedOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.completed))
	copy(out, r.completed)
	return out
}
