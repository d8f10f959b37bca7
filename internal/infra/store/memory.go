// Package store provides ResultStore implementations. The in-memory
// store backs single-process deployments and tests; the port exists so a
// database-backed store can slot in without touching the services.
package store

import (
	"context"
	"sync"

	"quillscribe/internal/domain"
	"quillscribe/internal/domain/model"
	"quillscribe/internal/domain/ports/repository"
)

var _ repository.ResultStore = (*MemoryStore)(nil)

// MemoryStore keeps the latest result per correlation id.
type MemoryStore struct {
	mu             sync.RWMutex
	transcriptions map[string]*model.Transcription
	enhancements   map[string]*model.EnhancedText
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transcriptions: make(map[string]*model.Transcription),
		enhancements:   make(map[string]*model.EnhancedText),
	}
}

func (m *MemoryStore) SaveTranscription(_ context.Context, correlationID string, t *model.Transcription) error {
	if correlationID == "" || t == nil {
		return domain.ErrEmptyInput
	}
	m.mu.Lock()
	m.transcriptions[correlationID] = t
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SaveEnhancement(_ context.Context, correlationID string, e *model.EnhancedText) error {
	if correlationID == "" || e == nil {
		return domain.ErrEmptyInput
	}
	m.mu.Lock()
	m.enhancements[correlationID] = e
	m.mu.Unlock()
	return nil
}

// Transcription returns the stored transcription for a correlation id.
func (m *MemoryStore) Transcription(correlationID string) (*model.Transcription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transcriptions[correlationID]
	return t, ok
}

// Enhancement returns the stored enhancement for a correlation id.
func (m *MemoryStore) Enhancement(correlationID string) (*model.EnhancedText, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enhancements[correlationID]
	return e, ok
}
