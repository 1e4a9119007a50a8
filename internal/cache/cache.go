// Package cache stores serialized explore results keyed by keyword and
// parameters. Backends share one contract: Get reports a hit only for
// entries younger than the backend's TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL matches the 24h reuse window for explore runs.
const DefaultTTL = 24 * time.Hour

// Cache is a byte-value store with expiry.
type Cache interface {
	// Get returns the value and true on a fresh hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// Key builds a deterministic key from parts. Parts are trimmed and
// lower-cased so "Pasta " and "pasta" share an entry.
func Key(parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = strings.ToLower(strings.TrimSpace(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(norm, "|")))
	return fmt.Sprintf("niche:%x", sum[:12])
}

// Nop never hits. It stands in when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Name() string                                      { return "none" }
