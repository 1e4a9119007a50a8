package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yt-insights/nicheexplorer/internal/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, Key("Pasta ", "200", "10"), Key("pasta", "200", "10"))
	assert.NotEqual(t, Key("pasta", "200", "10"), Key("pasta", "200", "11"))
	assert.NotEqual(t, Key("a|b", "c"), Key("a", "b|c|x"))
	assert.Len(t, Key("x"), len("niche:")+24)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour, 10)
	m.now = func() time.Time { return now }

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v")))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Hour)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour, 2)
	m.now = func() time.Time { return now }

	m.Set(ctx, "a", []byte("1"))
	now = now.Add(time.Second)
	m.Set(ctx, "b", []byte("2"))
	now = now.Add(time.Second)
	m.Set(ctx, "c", []byte("3"))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
	_, ok, _ = m.Get(ctx, "c")
	assert.True(t, ok)
}

type fakeStore struct {
	data     map[string][]byte
	storedAt map[string]time.Time
	fail     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, storedAt: map[string]time.Time{}}
}

func (f *fakeStore) GetCacheEntry(key string) ([]byte, time.Time, error) {
	if f.fail != nil {
		return nil, time.Time{}, f.fail
	}
	d, ok := f.data[key]
	if !ok {
		return nil, time.Time{}, models.ErrNotFound
	}
	return d, f.storedAt[key], nil
}

func (f *fakeStore) PutCacheEntry(key string, value []byte, storedAt time.Time) error {
	f.data[key] = value
	f.storedAt[key] = storedAt
	return nil
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newFakeStore()
	s := NewSQLite(store, 24*time.Hour)
	s.now = func() time.Time { return now }

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("run")))
	assert.Equal(t, now, store.storedAt["k"])

	now = now.Add(23 * time.Hour)
	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("run"), got)

	now = now.Add(2 * time.Hour)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	store.fail = errors.New("connection lost")
	_, _, err = s.Get(ctx, "k")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v")))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestRedis runs against a live server when REDIS_TEST_URL is set.
func TestRedis(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	key := Key("redis-test", time.Now().String())
	_, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, key, []byte("v")))
	got, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestNewRedisInvalidURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}
