// Package capabilities is a per-user record of language and which
// domains a user has connected — the thin account-state slice
// PipelineState.user needs without pulling in real OAuth/entitlement
// persistence, which spec.md places out of scope. Adapted from
// internal/auth's Service/MemoryStore/FileStore shape: same
// password-service-over-pluggable-store split, applied to a different
// record.
package capabilities

import (
	"context"
	"sync"
)

// Record is what the Orchestrator copies into PipelineState.user on
// every turn.
type Record struct {
	UserID   int64
	Language string
	Calendar bool
	Email    bool
}

// Store persists Records, keyed by user.
type Store interface {
	Save(record Record) error
	Get(userID int64) (Record, bool)
}

// Service resolves a user's Record, falling back to sensible defaults
// (both domains enabled, caller-supplied language) for a user seen for
// the first time — new Telegram users start fully capable rather than
// needing an explicit opt-in step this repo doesn't implement.
type Service struct {
	mu    sync.Mutex
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, userID int64, fallbackLanguage string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.store.Get(userID)
	if !ok {
		record = Record{UserID: userID, Language: fallbackLanguage, Calendar: true, Email: true}
		_ = s.store.Save(record)
		return record
	}
	if record.Language == "" {
		record.Language = fallbackLanguage
	}
	return record
}

// Set overwrites a user's record, e.g. when a future /capabilities
// command lets a user disable a domain.
func (s *Service) Set(ctx context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Save(record)
}
