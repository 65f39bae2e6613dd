package conversation

import (
	"context"
	"errors"
	"sync"
)

// ErrPersistence indicates the store failed to durably write an
// extended context. The prior context remains visible to readers.
var ErrPersistence = errors.New("conversation persistence failed")

// Store maps conversation keys to ordered histories.
//
// Load returns an empty-context Conversation for an absent key, never
// an error. AppendAndSave performs a full read-modify-write: the next
// reader sees either the prior context or the fully extended one,
// never a mixture. The read-modify-write is serialized per key, so
// concurrent rounds for the same key cannot lose an append.
type Store interface {
	Load(ctx context.Context, key string) (Conversation, error)
	AppendAndSave(ctx context.Context, key string, turns []Turn) error
}

// keyLocks hands out one mutex per conversation key.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *keyLocks) lock(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string][]Turn
	locks    *keyLocks
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[string][]Turn),
		locks:    newKeyLocks(),
	}
}

func (s *MemoryStore) Load(_ context.Context, key string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.contexts[key]
	out := make([]Turn, len(existing))
	copy(out, existing)
	return Conversation{Context: out}, nil
}

func (s *MemoryStore) AppendAndSave(_ context.Context, key string, turns []Turn) error {
	unlock := s.locks.lock(key)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[key] = append(s.contexts[key], turns...)
	return nil
}
