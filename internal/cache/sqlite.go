package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yt-insights/nicheexplorer/internal/models"
)

// EntryStore is the subset of the database the SQLite cache needs.
type EntryStore interface {
	GetCacheEntry(key string) ([]byte, time.Time, error)
	PutCacheEntry(key string, value []byte, storedAt time.Time) error
}

// SQLite keeps entries in the cache_entries table so they survive restarts
// without a Redis deployment.
type SQLite struct {
	store EntryStore
	ttl   time.Duration
	now   func() time.Time
}

// NewSQLite wraps store, usually a *models.Database.
func NewSQLite(store EntryStore, ttl time.Duration) *SQLite {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLite{store: store, ttl: ttl, now: time.Now}
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, storedAt, err := s.store.GetCacheEntry(key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.now().Sub(storedAt) >= s.ttl {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *SQLite) Set(_ context.Context, key string, value []byte) error {
	return s.store.PutCacheEntry(key, value, s.now())
}
