package tickets

import (
	"context"

	"github.com/avern/mediavault/internal/server/models"
)

// Repository is the ledger access layer for upload tickets.
type Repository interface {
	Create(ctx context.Context, ticket *models.UploadTicket) error
	// GetLive returns the unused ticket for the asset and owner, or
	// common.ErrNotFound when none exists.
	GetLive(ctx context.Context, assetID, ownerID string) (*models.UploadTicket, error)
	// Consume flips used from false to true. It returns
	// common.ErrInvalidTicket when the ticket was already consumed, so two
	// concurrent finalize calls resolve to exactly one winner.
	Consume(ctx context.Context, assetID string) error
}
