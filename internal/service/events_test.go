package service

import (
	"testing"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
)

func TestEventsFanOutAndUnsubscribe(t *testing.T) {
	e := newEvents()

	var a, b []string
	unsubA := e.subscribe(FuncListener{
		OnStarted: func(id, _ string) { a = append(a, id) },
	})
	unsubB := e.subscribe(FuncListener{
		OnStarted: func(id, _ string) { b = append(b, id) },
	})

	e.started("j1", "p")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("fan-out reached %d/%d listeners, want 1/1", len(a), len(b))
	}

	unsubA()
	e.started("j2", "p")
	if len(a) != 1 {
		t.Fatal("unsubscribed listener still notified")
	}
	if len(b) != 2 {
		t.Fatalf("remaining listener got %d events, want 2", len(b))
	}
	unsubB()
	unsubB() // double unsubscribe is harmless
	e.started("j3", "p")
}

func TestEventsProgressClamped(t *testing.T) {
	e := newEvents()
	var got []int
	defer e.subscribe(FuncListener{
		OnProgress: func(_ string, pct int) { got = append(got, pct) },
	})()

	e.progress("j", -5)
	e.progress("j", 42)
	e.progress("j", 150)

	want := []int{0, 42, 100}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("progress[%d] = %d, want %d", i, got[i], w)
		}
	}
}

func TestFuncListenerNilCallbacks(t *testing.T) {
	var l Listener = FuncListener{}
	// None of these may panic with unset callbacks.
	l.Started("j", "p")
	l.Progress("j", 10)
	l.Completed("j", &model.Transcription{})
	l.Failed("j", domain.KindTransient, "x")
	l.Cancelled("j")
}
