// Package models defines server-side data models persisted in the ledger.
package models

import "time"

// Asset lifecycle statuses. Only these three values are ever persisted;
// transitional states during an upload live on the client side.
const (
	StatusDraft   = "draft"
	StatusReady   = "ready"
	StatusCorrupt = "corrupt"
)

// Asset describes one logical file tracked independently of its bytes.
// The bytes themselves live in object storage under StoragePath.
type Asset struct {
	// ID is the globally unique asset identifier (UUID).
	ID string
	// OwnerID is the user that created the asset.
	OwnerID string
	// Filename is the display name. Mutable via rename; not part of the
	// storage path.
	Filename string
	// MimeType is the declared content type, validated against the upload
	// allow-list at ticket issuance.
	MimeType string
	// SizeBytes is the declared payload size.
	SizeBytes int64
	// StoragePath is the object-storage key. Unique and immutable once set.
	StoragePath string
	// SHA256 is the verified content digest. Empty until the asset reaches
	// a terminal status; for corrupt assets it holds the server-computed
	// value, never the client claim.
	SHA256 string
	// Status is one of StatusDraft, StatusReady, StatusCorrupt.
	Status string
	// Version starts at 1 and increases by exactly 1 on every accepted
	// mutation. All writes are guarded by it.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
