// Package reference caches reference dictionary lookups. Dictionaries change
// rarely while every import issues several lookups against them.
package reference

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/ports"
)

// CachedDictionary remembers hits of the wrapped dictionary for a fixed TTL.
// Misses and failed lookups always reach the store, so a newly added entry
// resolves on the next import.
type CachedDictionary struct {
	next  ports.ReferenceDictionary
	cache *cache.Cache
}

type cachedEntry struct {
	entry *domain.ReferenceEntry
}

// NewCachedDictionary returns next unchanged when ttl is not positive, which
// is the default.
func NewCachedDictionary(next ports.ReferenceDictionary, ttl time.Duration) ports.ReferenceDictionary {
	if ttl <= 0 {
		return next
	}
	return &CachedDictionary{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (d *CachedDictionary) Lookup(ctx context.Context, kind domain.ReferenceKind, text string) (*domain.ReferenceEntry, error) {
	key := cacheKey(kind, text)
	if cached, found := d.cache.Get(key); found {
		return copyEntry(cached.(cachedEntry).entry), nil
	}

	entry, err := d.next.Lookup(ctx, kind, text)
	if err != nil || entry == nil {
		return entry, err
	}
	d.cache.Set(key, cachedEntry{entry: copyEntry(entry)}, cache.DefaultExpiration)
	return entry, nil
}

// Flush drops every remembered lookup.
func (d *CachedDictionary) Flush() {
	d.cache.Flush()
}

func (d *CachedDictionary) Len() int {
	return d.cache.ItemCount()
}

func cacheKey(kind domain.ReferenceKind, text string) string {
	return string(kind) + "\x00" + strings.ToLower(strings.TrimSpace(text))
}

func copyEntry(entry *domain.ReferenceEntry) *domain.ReferenceEntry {
	if entry == nil {
		return nil
	}
	out := *entry
	return &out
}
