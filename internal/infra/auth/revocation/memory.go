package revocation

import (
	"context"
	"sync"
	"time"

	"warehouse/internal/domain"
)

type memoryList struct {
	mu   sync.RWMutex
	data map[string]time.Time
}

func NewMemoryList() domain.RevocationList {
	return &memoryList{data: make(map[string]time.Time)}
}

func (m *memoryList) Revoke(_ context.Context, subjectID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.data[subjectID]; ok && prev.After(at) {
		return nil
	}
	m.data[subjectID] = at
	return nil
}

func (m *memoryList) RevokedAt(_ context.Context, subjectID string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.data[subjectID]
	return at, ok, nil
}
