// Package cache stores extraction results keyed by content and
// configuration so repeated pipeline runs skip re-parsing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/yhilem/distill/extract"
)

// ComputeFunc produces the result to cache on a miss.
type ComputeFunc func(ctx context.Context) (*extract.Result, error)

// Stats reports cache effectiveness counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	SizeBytes int64 `json:"size_bytes"`
}

// Cache is a result store with request coalescing: concurrent
// GetOrCompute calls for the same key run compute once and share its
// outcome. A failed compute leaves no entry behind.
//
// Coalesced waiters share the leader's outcome, including an error from
// the leader's own context being cancelled or timing out. A caller with
// an independent, still-healthy deadline that receives such an error can
// retry; the key is free again.
type Cache interface {
	GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (*extract.Result, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Key derives the cache key for a document and its configuration. The
// key covers the full content and every config field, so any change to
// either yields a distinct entry.
func Key(content []byte, cfg *extract.Config) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	if cfg != nil {
		h.Write([]byte(cfg.Fingerprint()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
