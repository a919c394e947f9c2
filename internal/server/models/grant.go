package models

// AccessGrant gives a non-owner standing permission on an asset.
// Unique per (asset, recipient); only the asset owner manages grants.
type AccessGrant struct {
	AssetID     string
	RecipientID string
	CanDownload bool
}
