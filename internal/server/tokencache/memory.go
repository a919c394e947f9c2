package tokencache

import (
	"context"
	"sync"
	"time"

	"github.com/avern/mediavault/internal/common"
)

// MemoryCache is a mutex-guarded map implementation of Cache. The mutex
// makes insert, consume, and sweep atomic with respect to each other, so a
// token can never be validated twice and the sweep cannot race a
// validation.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	// now is a clock seam for tests.
	now func() time.Time
}

// NewMemoryCache constructs an empty in-memory token cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Put(token string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = entry
}

func (c *MemoryCache) Consume(token, userID string) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return Entry{}, common.ErrForbidden
	}
	if c.now().After(entry.ExpiresAt) {
		// Expired entries are removed on sight, not only by the sweep.
		delete(c.entries, token)
		return Entry{}, common.ErrForbidden
	}
	if entry.UserID != userID {
		return Entry{}, common.ErrForbidden
	}

	delete(c.entries, token)
	return entry, nil
}

func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for token, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, token)
			removed++
		}
	}
	return removed
}

// Run sweeps on the given interval until ctx is cancelled. It bounds
// memory growth independent of how often tokens are validated.
func (c *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len reports the number of live entries. Used in tests.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
