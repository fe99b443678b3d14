package session

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps encoded session records in process memory. Records go
// through the same encoding and size bound as the durable stores.
type MemoryStore struct {
	mu            sync.RWMutex
	records       map[string][]byte
	maxRecordSize int
}

// NewMemoryStore creates an empty store.
// A maxRecordSize of zero selects DefaultMaxRecordSize.
func NewMemoryStore(maxRecordSize int) *MemoryStore {
	if maxRecordSize <= 0 {
		maxRecordSize = DefaultMaxRecordSize
	}
	return &MemoryStore{
		records:       make(map[string][]byte),
		maxRecordSize: maxRecordSize,
	}
}

func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session != nil {
		if err := validID(session.ID); err != nil {
			return err
		}
	}
	data, err := encodeSession(session, m.maxRecordSize)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records[session.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return decodeSession(data)
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[id]
	return ok, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}
