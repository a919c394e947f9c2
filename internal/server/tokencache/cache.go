// Package tokencache holds ephemeral download access tokens. Entries are
// process-local, single-use, and self-expiring; nothing here ever reaches
// the ledger.
package tokencache

import (
	"context"
	"time"
)

// Entry binds a minted token to the caller it was issued for, the asset it
// unlocks, and its expiry.
type Entry struct {
	UserID    string
	AssetID   string
	ExpiresAt time.Time
}

// Cache is an expiring key-value store for access tokens. It is
// interface-bound so the in-memory implementation can be swapped for a
// distributed one without touching call sites.
type Cache interface {
	// Put stores the entry under token, replacing any previous value.
	Put(token string, entry Entry)
	// Consume validates and removes the entry in one step: the token must
	// exist, belong to userID, and not be expired. It returns
	// common.ErrForbidden otherwise. A second Consume of the same token
	// always fails.
	Consume(token, userID string) (Entry, error)
	// Sweep evicts every entry past its expiry and reports how many were
	// removed.
	Sweep() int
	// Run sweeps on the given interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
}
