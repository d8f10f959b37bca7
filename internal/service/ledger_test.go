package service

import (
	"testing"
	"time"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
)

func addJob(l *Ledger, id string) *model.Job {
	j := &model.Job{ID: id, MaxRetries: 1, Timeout: time.Second}
	l.Add(j)
	return j
}

func TestLedgerLifecycle(t *testing.T) {
	l := NewLedger(0)
	addJob(l, "j1")

	got, ok := l.Get("j1")
	if !ok || got.Status != model.JobStatusPending {
		t.Fatalf("after Add: status %s, want pending", got.Status)
	}

	ctx, err := l.BeginProcessing("j1")
	if err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("attempt context cancelled prematurely")
	}

	res := &model.Transcription{ID: "r", Text: "x"}
	if err := l.Complete("j1", res); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ = l.Get("j1")
	if got.Status != model.JobStatusCompleted || got.Result == nil {
		t.Fatalf("after Complete: status %s result %v", got.Status, got.Result)
	}

	// Terminal transition releases the attempt context.
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("attempt context not released on completion")
	}
}

func TestLedgerRejectsInvalidTransitions(t *testing.T) {
	l := NewLedger(0)
	addJob(l, "j1")

	if err := l.Complete("j1", &model.Transcription{}); err == nil {
		t.Fatal("Complete from pending should fail")
	}
	if err := l.MarkFailed("j1", domain.KindTransient, "x"); err == nil {
		t.Fatal("MarkFailed from pending should fail")
	}

	if _, err := l.BeginProcessing("j1"); err != nil {
		t.Fatalf("BeginProcessing: %v", err)
	}
	if err := l.Complete("j1", &model.Transcription{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := l.MarkCancelled("j1"); err == nil {
		t.Fatal("cancel of a completed job should fail")
	}
	if err := l.Resurrect("j1"); err == nil {
		t.Fatal("resurrect of a completed job should fail")
	}
}

func TestLedgerRetryEdge(t *testing.T) {
	l := NewLedger(0)
	addJob(l, "j1")

	if _, err := l.BeginProcessing("j1"); err != nil {
		t.Fatal(err)
	}
	if err := l.MarkFailed("j1", domain.KindTransient, "network blip"); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get("j1")
	if got.ErrKind != domain.KindTransient || got.ErrMsg == "" {
		t.Fatalf("failure not recorded: %+v", got)
	}

	if err := l.Resurrect("j1"); err != nil {
		t.Fatalf("Resurrect: %v", err)
	}
	got, _ = l.Get("j1")
	if got.Status != model.JobStatusPending || got.Retries != 1 {
		t.Fatalf("after Resurrect: status %s retries %d", got.Status, got.Retries)
	}
	if got.ErrKind != domain.KindNone || got.ErrMsg != "" {
		t.Fatal("resurrect should clear the recorded error")
	}
}

func TestLedgerCancelProcessingFiresContext(t *testing.T) {
	l := NewLedger(0)
	addJob(l, "j1")

	ctx, _ := l.BeginProcessing("j1")
	wasProcessing, err := l.MarkCancelled("j1")
	if err != nil || !wasProcessing {
		t.Fatalf("MarkCancelled = (%v, %v), want (true, nil)", wasProcessing, err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not fire the attempt context")
	}

	got, _ := l.Get("j1")
	if got.Status != model.JobStatusCancelled || got.Result != nil {
		t.Fatalf("after cancel: %+v", got)
	}
}

func TestLedgerSweepDropsOldTerminal(t *testing.T) {
	l := NewLedger(5 * time.Minute)
	clock := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	addJob(l, "old")
	addJob(l, "fresh")
	addJob(l, "running")

	l.BeginProcessing("old")
	l.Complete("old", &model.Transcription{})
	l.BeginProcessing("running")

	clock = clock.Add(6 * time.Minute)
	l.BeginProcessing("fresh")
	l.Complete("fresh", &model.Transcription{})

	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("Sweep() = %d, want 1", removed)
	}
	if _, ok := l.Get("old"); ok {
		t.Fatal("old terminal job survived the sweep")
	}
	if _, ok := l.Get("fresh"); !ok {
		t.Fatal("fresh terminal job swept too early")
	}
	if _, ok := l.Get("running"); !ok {
		t.Fatal("non-terminal job must never be swept")
	}
}

func TestLedgerListFilters(t *testing.T) {
	l := NewLedger(0)
	addJob(l, "a")
	addJob(l, "b")
	l.BeginProcessing("a")

	pending := l.List(func(j model.Job) bool { return j.Status == model.JobStatusPending })
	if len(pending) != 1 || pending[0].ID != "b" {
		t.Fatalf("pending filter returned %v", pending)
	}
	if all := l.List(nil); len(all) != 2 {
		t.Fatalf("List(nil) returned %d jobs, want 2", len(all))
	}
}
