package activity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the feed in process. It is used in development and tests,
// everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]Entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Record(ctx context.Context, title, kind, userID string) (*Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Title:     title,
		Kind:      kind,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.entries[userID] = append(s.entries[userID], entry)
	s.mu.Unlock()

	return &entry, nil
}

func (s *MemoryStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[userID]
	result := make([]Entry, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, all[i])
	}

	return result, nil
}
