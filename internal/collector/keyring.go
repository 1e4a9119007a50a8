package collector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/telemetry"
)

var (
	// ErrQuotaExceeded means the current key has used up its quota.
	ErrQuotaExceeded = errors.New("api quota exceeded")
	// ErrKeyRejected means the API refused the key itself.
	ErrKeyRejected = errors.New("api key rejected")
	// ErrRateLimited is a short-lived throttle. The key stays usable.
	ErrRateLimited = errors.New("api rate limited")
	// ErrKeysExhausted means no usable key is left in the ring.
	ErrKeysExhausted = errors.New("all api keys exhausted")
)

// DefaultCooldown is how long an exhausted key stays out of rotation.
// YouTube quotas reset daily.
const DefaultCooldown = 24 * time.Hour

// KeyRing hands out API keys in order and skips keys that were marked
// exhausted until their cooldown elapses. It is safe for concurrent use.
type KeyRing struct {
	mu        sync.Mutex
	keys      []string
	pos       int
	exhausted map[string]time.Time
	cooldown  time.Duration
	now       func() time.Time
}

// NewKeyRing builds a ring from keys, dropping blanks and duplicates.
func NewKeyRing(keys []string, cooldown time.Duration) *KeyRing {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	seen := make(map[string]bool, len(keys))
	var clean []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		clean = append(clean, k)
	}
	return &KeyRing{
		keys:      clean,
		exhausted: make(map[string]time.Time),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Len returns the number of configured keys.
func (r *KeyRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

// Current returns the first usable key at or after the cursor.
func (r *KeyRing) Current() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *KeyRing) currentLocked() (string, error) {
	now := r.now()
	for i := 0; i < len(r.keys); i++ {
		idx := (r.pos + i) % len(r.keys)
		key := r.keys[idx]
		if until, ok := r.exhausted[key]; ok {
			if now.Before(until) {
				continue
			}
			delete(r.exhausted, key)
		}
		r.pos = idx
		return key, nil
	}
	return "", ErrKeysExhausted
}

// Advance marks key exhausted and moves the cursor past it. Marking a key
// that is no longer current is a no-op for the cursor, so two callers
// failing on the same key advance only once.
func (r *KeyRing) Advance(key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exhausted[key] = r.now().Add(r.cooldown)
	if len(r.keys) > 0 && r.keys[r.pos] == key {
		r.pos = (r.pos + 1) % len(r.keys)
	}
	return r.currentLocked()
}

// Remaining counts keys not currently cooling down.
func (r *KeyRing) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for _, k := range r.keys {
		if until, ok := r.exhausted[k]; !ok || !now.Before(until) {
			n++
		}
	}
	return n
}

// Reset clears every exhaustion mark.
func (r *KeyRing) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted = make(map[string]time.Time)
	r.pos = 0
}

func rotatable(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrKeyRejected)
}

// WithKey runs fn with the ring's current key, rotating to the next key
// whenever fn fails with a quota or rejection error. It gives up with
// ErrKeysExhausted once every key has been tried.
func WithKey(ctx context.Context, ring *KeyRing, fn func(key string) error) error {
	log := logging.With("keyring")

	key, err := ring.Current()
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(key)
		if err == nil || !rotatable(err) {
			return err
		}

		reason := "quota"
		if errors.Is(err, ErrKeyRejected) {
			reason = "rejected"
		}
		telemetry.KeyRotations.WithLabelValues(reason).Inc()

		next, nextErr := ring.Advance(key)
		if nextErr != nil {
			log.Warn().Str("reason", reason).Msg("no api keys left")
			return errors.Join(nextErr, err)
		}
		log.Info().
			Str("reason", reason).
			Int("remaining", ring.Remaining()).
			Msg("rotating api key")
		key = next
	}
}
