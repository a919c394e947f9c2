package audit

import "context"

// Repository is the append-only ledger access layer for download audit
// entries. Rows are never updated or deleted here; cleanup happens only by
// asset cascade.
type Repository interface {
	Append(ctx context.Context, assetID, userID string) error
}
