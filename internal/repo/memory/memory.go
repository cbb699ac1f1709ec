package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hamed0406/servicemonitor/internal/repo"
)

const DefaultCapacity = 500

var _ repo.JournalStore = (*Store)(nil)

// Store keeps the most recent journal entries in a ring buffer.
type Store struct {
	mu      sync.RWMutex
	entries []repo.Entry
	next    int
	full    bool
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{entries: make([]repo.Entry, capacity)}
}

func (m *Store) Record(ctx context.Context, e *repo.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.entries[m.next] = *e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]repo.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]repo.Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}
