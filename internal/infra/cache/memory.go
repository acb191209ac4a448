package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryDedup: дедупликатор в памяти процесса, используется без Redis.
type MemoryDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

// NewMemory создаёт дедупликатор в памяти.
func NewMemory() *MemoryDedup {
	return &MemoryDedup{seen: make(map[string]time.Time), now: time.Now}
}

// Once выполняет fn, если ключ не встречался в пределах ttl.
func (m *MemoryDedup) Once(_ context.Context, key string, ttl time.Duration, fn func() error) error {
	now := m.now()
	m.mu.Lock()
	for k, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[key]; ok {
		m.mu.Unlock()
		return nil
	}
	m.seen[key] = now.Add(ttl)
	m.mu.Unlock()

	if err := fn(); err != nil {
		m.mu.Lock()
		delete(m.seen, key)
		m.mu.Unlock()
		return err
	}
	return nil
}
