package assets

import (
	"context"
	"time"

	"github.com/avern/mediavault/internal/server/models"
)

// Repository is the ledger access layer for assets. Every mutating method
// takes the version the caller last observed and returns
// common.ErrVersionConflict when the guarded update touches no row.
type Repository interface {
	Create(ctx context.Context, asset *models.Asset) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	// List returns the owner's assets ordered by creation time descending.
	// A non-nil before acts as an exclusive watermark; filter, when
	// non-empty, is matched as a case-insensitive filename substring.
	List(ctx context.Context, ownerID string, before *time.Time, limit int, filter string) ([]*models.Asset, error)
	Rename(ctx context.Context, id, filename string, expectedVersion int64) error
	// BumpVersion advances the version counter without touching any other
	// column. Share and revoke run it alongside their grant writes so they
	// participate in the same compare-and-swap discipline.
	BumpVersion(ctx context.Context, id string, expectedVersion int64) error
	// SetTerminalStatus moves the asset to ready or corrupt and records the
	// digest. An empty sha256 is stored as NULL.
	SetTerminalStatus(ctx context.Context, id, status, sha256 string, expectedVersion int64) error
	Delete(ctx context.Context, id, ownerID string, expectedVersion int64) error
}
