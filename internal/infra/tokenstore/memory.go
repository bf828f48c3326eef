package tokenstore

import (
	"context"
	"sync"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/ports"
)

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	s  domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ ports.TokenStorage = (*MemoryStore)(nil)

func (m *MemoryStore) Load(_ context.Context) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *MemoryStore) Save(_ context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = domain.Session{}
	return nil
}
