package models

import "time"

// AuditEntry is an append-only record of a granted download-URL issuance.
type AuditEntry struct {
	ID        int64
	AssetID   string
	UserID    string
	CreatedAt time.Time
}
