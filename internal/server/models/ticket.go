package models

import "time"

// UploadTicket authorizes exactly one finalize call for one asset.
// At most one live ticket exists per asset (asset_id is the primary key).
type UploadTicket struct {
	// AssetID links the ticket to the asset it was issued for.
	AssetID string
	// OwnerID must match the asset owner; finalize checks it.
	OwnerID string
	// Nonce is a random capability token, unique across all tickets.
	Nonce string
	// MimeType and SizeBytes echo the declared upload metadata.
	MimeType  string
	SizeBytes int64
	// StoragePath must equal the asset's storage path.
	StoragePath string
	// ExpiresAt bounds how long the ticket is honored.
	ExpiresAt time.Time
	// Used flips false to true exactly once, on consumption.
	Used bool
}
