package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/repository"
	"quillscribe/internal/infra/cache"
	"quillscribe/internal/infra/store"
)

func newTransSvc(t *testing.T, eng *fakeTranscriber, p Policy, rc *cache.ResultCache, st *store.MemoryStore) *TranscriptionService {
	t.Helper()
	var repo repository.ResultStore
	if st != nil {
		repo = st
	}
	svc := NewTranscriptionService(eng, repo, rc, testPool(t), p, model.WhisperBase, "auto", testLogger())
	t.Cleanup(svc.Shutdown)
	return svc
}

func tempWav(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, make([]byte, 2048), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranscribeSubmitValidatesFile(t *testing.T) {
	svc := newTransSvc(t, newFakeTranscriber(), Policy{}, nil, nil)

	if _, err := svc.Submit(model.TranscriptionRequest{}); !errors.Is(err, domain.ErrInvalidAudioFile) {
		t.Fatalf("empty path error = %v, want ErrInvalidAudioFile", err)
	}
	if _, err := svc.Submit(model.TranscriptionRequest{AudioFilePath: "/no/such/file.wav"}); !errors.Is(err, domain.ErrInvalidAudioFile) {
		t.Fatalf("missing file error = %v, want ErrInvalidAudioFile", err)
	}
	if kind, _ := svc.GetLastError(); kind != domain.KindInvalidInput {
		t.Fatalf("last error kind = %s, want invalid_input", kind)
	}
}

func TestTranscribeSubmitRequiresLoadedModel(t *testing.T) {
	eng := newFakeTranscriber()
	svc := newTransSvc(t, eng, Policy{}, nil, nil)

	req := model.TranscriptionRequest{
		AudioFilePath: tempWav(t),
		Provider:      model.WhisperLarge,
	}
	if _, err := svc.Submit(req); !errors.Is(err, domain.ErrModelNotLoaded) {
		t.Fatalf("Submit without model = %v, want ErrModelNotLoaded", err)
	}
}

func TestTranscribeLifecycleAndStorePush(t *testing.T) {
	eng := newFakeTranscriber()
	st := store.NewMemoryStore()
	svc := newTransSvc(t, eng, Policy{}, nil, st)
	rec := newRecorder()
	defer svc.Subscribe(rec)()

	id, err := svc.Submit(model.TranscriptionRequest{
		AudioFilePath: tempWav(t),
		CorrelationID: "rec-42",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec.waitTerminal(t, 1, 2*time.Second)

	res, err := svc.Result(id)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if res.Text != "hello world" {
		t.Fatalf("Result Text = %q", res.Text)
	}
	if res.Provider != model.WhisperBase {
		t.Fatalf("default provider not applied: %s", res.Provider)
	}

	// The store push is asynchronous and best-effort.
	deadline := time.Now().Add(time.Second)
	for {
		if got, ok := st.Transcription("rec-42"); ok {
			if got.Text != "hello world" {
				t.Fatalf("stored text = %q", got.Text)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("result never pushed to the store")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTranscribeCacheKeyedByFileIdentity(t *testing.T) {
	eng := newFakeTranscriber()
	rc := cache.New("trans-test", time.Hour, 1<<20)
	svc := newTransSvc(t, eng, Policy{CachingEnabled: true}, rc, nil)
	rec := newRecorder()
	defer svc.Subscribe(rec)()

	path := tempWav(t)
	req := model.TranscriptionRequest{AudioFilePath: path}

	if _, err := svc.Submit(req); err != nil {
		t.Fatal(err)
	}
	rec.waitTerminal(t, 1, 2*time.Second)

	if _, err := svc.Submit(req); err != nil {
		t.Fatal(err)
	}
	rec.waitTerminal(t, 1, 2*time.Second)
	if eng.callCount() != 1 {
		t.Fatalf("engine calls = %d, unchanged file must hit the cache", eng.callCount())
	}

	// Rewriting the file shifts its identity; the cache must miss.
	if err := os.WriteFile(path, make([]byte, 4096), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Submit(req); err != nil {
		t.Fatal(err)
	}
	rec.waitTerminal(t, 1, 2*time.Second)
	if eng.callCount() != 2 {
		t.Fatalf("engine calls = %d, re-recorded file must miss", eng.callCount())
	}
}

func TestTranscribeBatchAlignsErrors(t *testing.T) {
	svc := newTransSvc(t, newFakeTranscriber(), Policy{}, nil, nil)
	rec := newRecorder()
	defer svc.Subscribe(rec)()

	good := tempWav(t)
	reqs := []model.TranscriptionRequest{
		{AudioFilePath: good},
		{AudioFilePath: "/missing.wav"},
		{AudioFilePath: good},
	}
	ids, errs := svc.SubmitBatch(reqs)
	if len(ids) != 3 || len(errs) != 3 {
		t.Fatalf("batch returned %d ids, %d errs", len(ids), len(errs))
	}
	if errs[0] != nil || errs[2] != nil {
		t.Fatalf("valid requests errored: %v, %v", errs[0], errs[2])
	}
	if !errors.Is(errs[1], domain.ErrInvalidAudioFile) {
		t.Fatalf("errs[1] = %v, want ErrInvalidAudioFile", errs[1])
	}
	if ids[1] != "" {
		t.Fatal("failed submission returned a job id")
	}
	rec.waitTerminal(t, 2, 2*time.Second)
}

func TestTranscribeRetryOnTransientFailure(t *testing.T) {
	eng := newFakeTranscriber()
	eng.errs = []error{domain.ErrServiceDown}
	svc := newTransSvc(t, eng, Policy{MaxRetries: 3, RetryBaseDelay: 5 * time.Millisecond}, nil, nil)
	rec := newRecorder()
	defer svc.Subscribe(rec)()

	id, err := svc.Submit(model.TranscriptionRequest{AudioFilePath: tempWav(t)})
	if err != nil {
		t.Fatal(err)
	}
	rec.waitTerminal(t, 1, 3*time.Second)

	job, _ := svc.Status(id)
	if job.Status != model.JobStatusCompleted || job.Retries != 1 {
		t.Fatalf("job = %s retries %d, want completed with 1", job.Status, job.Retries)
	}
}

func TestTranscribePerfTracking(t *testing.T) {
	eng := newFakeTranscriber()
	eng.delay = 10 * time.Millisecond
	svc := newTransSvc(t, eng, Policy{}, nil, nil)
	rec := newRecorder()
	defer svc.Subscribe(rec)()

	if _, err := svc.Submit(model.TranscriptionRequest{AudioFilePath: tempWav(t)}); err != nil {
		t.Fatal(err)
	}
	rec.waitTerminal(t, 1, 2*time.Second)

	if avg := svc.AverageProcessingTime(model.WhisperBase); avg <= 0 {
		t.Fatalf("AverageProcessingTime = %s, want > 0", avg)
	}
	if rel := svc.Reliability(model.WhisperBase); rel != 1.0 {
		t.Fatalf("Reliability = %v, want 1.0", rel)
	}
	// Unobserved providers report the optimistic prior.
	if rel := svc.Reliability(model.WhisperLarge); rel != 1.0 {
		t.Fatalf("Reliability(unused) = %v, want 1.0", rel)
	}
}
