package service

import (
	"sync"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
)

// Listener receives lifecycle notifications for jobs. Delivery order per
// job is: Started, zero or more Progress, then exactly one terminal
// notification (Completed, Failed or Cancelled). Callbacks run on engine
// goroutines and must return quickly.
type Listener interface {
	Started(jobID, provider string)
	Progress(jobID string, percent int)
	Completed(jobID string, result model.Result)
	Failed(jobID string, kind domain.ErrorKind, message string)
	Cancelled(jobID string)
}

// FuncListener adapts optional callbacks to the Listener interface.
type FuncListener struct {
	OnStarted   func(jobID, provider string)
	OnProgress  func(jobID string, percent int)
	OnCompleted func(jobID string, result model.Result)
	OnFailed    func(jobID string, kind domain.ErrorKind, message string)
	OnCancelled func(jobID string)
}

func (f FuncListener) Started(jobID, provider string) {
	if f.OnStarted != nil {
		f.OnStarted(jobID, provider)
	}
}
func (f FuncListener) Progress(jobID string, percent int) {
	if f.OnProgress != nil {
		f.OnProgress(jobID, percent)
	}
}
func (f FuncListener) Completed(jobID string, result model.Result) {
	if f.OnCompleted != nil {
		f.OnCompleted(jobID, result)
	}
}
func (f FuncListener) Failed(jobID string, kind domain.ErrorKind, message string) {
	if f.OnFailed != nil {
		f.OnFailed(jobID, kind, message)
	}
}
func (f FuncListener) Cancelled(jobID string) {
	if f.OnCancelled != nil {
		f.OnCancelled(jobID)
	}
}

type events struct {
	mu   sync.RWMutex
	next int
	subs map[int]Listener
}

func newEvents() *events {
	return &events{subs: make(map[int]Listener)}
}

// subscribe registers l and returns an unsubscribe func.
func (e *events) subscribe(l Listener) func() {
	e.mu.Lock()
	id := e.next
	e.next++
	e.subs[id] = l
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *events) snapshot() []Listener {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Listener, 0, len(e.subs))
	for _, l := range e.subs {
		out = append(out, l)
	}
	return out
}

func (e *events) started(jobID, provider string) {
	for _, l := range e.snapshot() {
		l.Started(jobID, provider)
	}
}

func (e *events) progress(jobID string, percent int) {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	for _, l := range e.snapshot() {
		l.Progress(jobID, percent)
	}
}

func (e *events) completed(jobID string, res model.Result) {
	for _, l := range e.snapshot() {
		l.Completed(jobID, res)
	}
}

func (e *events) failed(jobID string, kind domain.ErrorKind, msg string) {
	for _, l := range e.snapshot() {
		l.Failed(jobID, kind, msg)
	}
}

func (e *events) cancelled(jobID string) {
	for _, l := range e.snapshot() {
		l.Cancelled(jobID)
	}
}
