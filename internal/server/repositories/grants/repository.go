package grants

import (
	"context"

	"github.com/avern/mediavault/internal/server/models"
)

// Repository is the ledger access layer for access grants (shares).
type Repository interface {
	// Upsert creates the grant or, when the (asset, recipient) pair already
	// exists, updates its can_download flag.
	Upsert(ctx context.Context, grant *models.AccessGrant) error
	Get(ctx context.Context, assetID, recipientID string) (*models.AccessGrant, error)
	Delete(ctx context.Context, assetID, recipientID string) error
}
