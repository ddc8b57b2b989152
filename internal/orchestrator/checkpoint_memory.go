package orchestrator

import (
	"context"
	"sync"
	"time"
)

type checkpointEntry struct {
	state     PipelineState
	expiresAt time.Time
}

// MemoryCheckpointStore is the default checkpoint backend: a
// mutex-guarded map with lazy TTL expiry on read, the same shape as
// internal/convo's window store and the teacher's MemoryDialogStore.
type MemoryCheckpointStore struct {
	mu      sync.Mutex
	entries map[string]checkpointEntry
	now     func() time.Time
}

// NewMemoryCheckpointStore builds an empty MemoryCheckpointStore.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{
		entries: make(map[string]checkpointEntry),
		now:     time.Now,
	}
}

// WithClock overrides the store's notion of "now"; used by tests.
func (s *MemoryCheckpointStore) WithClock(now func() time.Time) *MemoryCheckpointStore {
	s.now = now
	return s
}

func (s *MemoryCheckpointStore) Save(ctx context.Context, userID string, state PipelineState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = checkpointEntry{state: state, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCheckpointStore) Load(ctx context.Context, userID string) (PipelineState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID]
	if !ok {
		return PipelineState{}, false, nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, userID)
		return PipelineState{}, false, nil
	}
	return entry.state, true, nil
}

func (s *MemoryCheckpointStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
