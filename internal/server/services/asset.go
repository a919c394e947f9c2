// Package services implements the core asset lifecycle: upload ticket
// issuance, finalize with server-side integrity verification, the
// version-guarded mutations, and the download access layer.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/dbx"
	"github.com/avern/mediavault/internal/logging"
	"github.com/avern/mediavault/internal/server/blob"
	sc "github.com/avern/mediavault/internal/server/config"
	"github.com/avern/mediavault/internal/server/models"
	"github.com/avern/mediavault/internal/server/repositories/repomanager"
)

// allowedMimeTypes is the upload allow-list. Anything else is rejected at
// ticket issuance with common.ErrUnsupportedType.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UploadTicketResult is what a client needs to run one upload attempt.
type UploadTicketResult struct {
	Asset       *models.Asset
	TicketNonce string
	UploadURL   string
	ExpiresAt   time.Time
}

// AssetPage is one page of an owner's asset listing.
type AssetPage struct {
	Items []*models.Asset
	// NextCursor is the creation-timestamp watermark for the next page;
	// opaque to clients.
	NextCursor  string
	HasNextPage bool
}

// AssetService owns the asset lifecycle. Every mutation goes through the
// version compare-and-swap in the assets repository; the service itself
// never retries a conflict.
type AssetService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blob   blob.Gateway
	config *sc.Config
	logger logging.Logger

	// seams for tests
	now   func() time.Time
	newID func() string
}

// NewAssetService wires the service to its ledger, blob gateway and config.
func NewAssetService(db *sql.DB, repos repomanager.RepositoryManager, gw blob.Gateway, config *sc.Config, logger logging.Logger) *AssetService {
	return &AssetService{
		db:     db,
		repos:  repos,
		blob:   gw,
		config: config,
		logger: logger.With("module", "asset_service"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// CreateUploadTicket creates the asset row (draft, version 1) and its
// single-use upload ticket in one transaction, then asks the blob gateway
// for a presigned PUT URL. A failure of either insert leaves nothing
// behind.
func (s *AssetService) CreateUploadTicket(ctx context.Context, ownerID, filename, mimeType string, sizeBytes int64) (*UploadTicketResult, error) {
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return nil, common.ErrUnsupportedType
	}
	if filename == "" || sizeBytes <= 0 {
		return nil, common.ErrBadRequest
	}

	assetID := s.newID()
	storagePath := fmt.Sprintf("%s/%s/%s", ownerID, assetID, SanitizeFilename(filename))

	nonce, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("nonce generation error: %w", err)
	}

	asset := &models.Asset{
		ID:          assetID,
		OwnerID:     ownerID,
		Filename:    filename,
		MimeType:    mimeType,
		SizeBytes:   sizeBytes,
		StoragePath: storagePath,
		Status:      models.StatusDraft,
		Version:     1,
	}
	ticket := &models.UploadTicket{
		AssetID:     assetID,
		OwnerID:     ownerID,
		Nonce:       nonce,
		MimeType:    mimeType,
		SizeBytes:   sizeBytes,
		StoragePath: storagePath,
		ExpiresAt:   s.now().Add(s.config.UploadTicketTTL),
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Assets(tx).Create(ctx, asset); err != nil {
			return err
		}
		return s.repos.Tickets(tx).Create(ctx, ticket)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating upload ticket: %w", err)
	}

	uploadURL, err := s.blob.CreateSignedUploadURL(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	return &UploadTicketResult{
		Asset:       asset,
		TicketNonce: nonce,
		UploadURL:   uploadURL,
		ExpiresAt:   ticket.ExpiresAt,
	}, nil
}

// FinalizeUpload consumes the asset's live ticket and moves the asset to a
// terminal status. The claimed digest is only a claim; the proof is the
// digest recomputed from the bytes actually at rest, so a client that
// uploads corrupted bytes but reports a plausible hash is still caught.
// Re-finalizing an asset that already reached a terminal status returns
// that state unchanged.
func (s *AssetService) FinalizeUpload(ctx context.Context, assetID, callerID, claimedSHA256 string, expectedVersion int64) (*models.Asset, error) {
	ticketRepo := s.repos.Tickets(s.db)
	assetRepo := s.repos.Assets(s.db)

	ticket, err := ticketRepo.GetLive(ctx, assetID, callerID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.finalizeReplay(ctx, assetID, callerID)
		}
		return nil, err
	}

	// The expiry check happens before consumption: an expired ticket is
	// never resurrected, and the asset stays draft for the owner to clean
	// up or reissue.
	if s.now().After(ticket.ExpiresAt) {
		return nil, common.ErrTicketExpired
	}

	// One ticket, one upload attempt: the flip to used happens regardless
	// of the verification outcome below.
	if err := ticketRepo.Consume(ctx, assetID); err != nil {
		if errors.Is(err, common.ErrInvalidTicket) {
			// A concurrent finalize got there first.
			return s.finalizeReplay(ctx, assetID, callerID)
		}
		return nil, err
	}

	status := models.StatusCorrupt
	serverDigest := ""
	data, err := s.blob.ReadObject(ctx, ticket.StoragePath)
	if err != nil {
		s.logger.Warn(ctx, "object unreadable during finalize", "asset_id", assetID, "error", err.Error())
	} else {
		sum := sha256.Sum256(data)
		serverDigest = hex.EncodeToString(sum[:])
		if serverDigest == claimedSHA256 {
			status = models.StatusReady
		}
	}

	if err := assetRepo.SetTerminalStatus(ctx, assetID, status, serverDigest, expectedVersion); err != nil {
		if errors.Is(err, common.ErrVersionConflict) {
			// A concurrent terminal write already landed; hand back
			// whatever it produced.
			return s.finalizeReplay(ctx, assetID, callerID)
		}
		return nil, err
	}

	return assetRepo.GetByID(ctx, assetID)
}

// finalizeReplay resolves a finalize call that found no live ticket. When
// the asset already reached a terminal status this is an idempotent retry
// and the current state is returned unchanged; a draft asset without a
// live ticket means the call was never valid.
func (s *AssetService) finalizeReplay(ctx context.Context, assetID, callerID string) (*models.Asset, error) {
	asset, err := s.repos.Assets(s.db).GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != callerID {
		return nil, common.ErrForbidden
	}
	if asset.Status == models.StatusDraft {
		return nil, common.ErrInvalidTicket
	}
	return asset, nil
}

// Rename changes the display filename. The storage path is immutable, so
// only the metadata row moves.
func (s *AssetService) Rename(ctx context.Context, assetID, callerID, filename string, expectedVersion int64) (*models.Asset, error) {
	if filename == "" {
		return nil, common.ErrBadRequest
	}

	assetRepo := s.repos.Assets(s.db)
	asset, err := assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != callerID {
		return nil, common.ErrForbidden
	}

	if err := assetRepo.Rename(ctx, assetID, filename, expectedVersion); err != nil {
		return nil, err
	}
	return assetRepo.GetByID(ctx, assetID)
}

// Delete removes the backing blob (best-effort, logged on failure) and
// then the ledger row; tickets, grants and audit entries cascade with it.
func (s *AssetService) Delete(ctx context.Context, assetID, callerID string, expectedVersion int64) error {
	assetRepo := s.repos.Assets(s.db)
	asset, err := assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return err
	}
	if asset.OwnerID != callerID {
		return common.ErrForbidden
	}

	if err := s.blob.Remove(ctx, asset.StoragePath); err != nil {
		s.logger.Warn(ctx, "blob removal failed", "asset_id", assetID, "storage_path", asset.StoragePath, "error", err.Error())
	}

	return assetRepo.Delete(ctx, assetID, callerID, expectedVersion)
}

// List returns one page of the caller's assets, newest first. The cursor
// is an opaque creation-timestamp watermark; the page is over-fetched by
// one row to compute HasNextPage.
func (s *AssetService) List(ctx context.Context, ownerID, cursor string, pageSize int, filter string) (*AssetPage, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	var before *time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, common.ErrBadRequest
		}
		before = &t
	}

	items, err := s.repos.Assets(s.db).List(ctx, ownerID, before, pageSize+1, filter)
	if err != nil {
		return nil, err
	}

	page := &AssetPage{}
	if len(items) > pageSize {
		page.HasNextPage = true
		items = items[:pageSize]
	}
	page.Items = items
	if page.HasNextPage && len(items) > 0 {
		page.NextCursor = items[len(items)-1].CreatedAt.Format(time.RFC3339Nano)
	}
	return page, nil
}

// Share grants (or updates) a recipient's download capability. The grant
// write and the asset version bump commit together, so sharing obeys the
// same compare-and-swap discipline as every other mutation.
func (s *AssetService) Share(ctx context.Context, assetID, callerID, recipientID string, canDownload bool, expectedVersion int64) (*models.Asset, error) {
	if recipientID == "" || recipientID == callerID {
		return nil, common.ErrBadRequest
	}

	assetRepo := s.repos.Assets(s.db)
	asset, err := assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != callerID {
		return nil, common.ErrForbidden
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Assets(tx).BumpVersion(ctx, assetID, expectedVersion); err != nil {
			return err
		}
		return s.repos.Grants(tx).Upsert(ctx, &models.AccessGrant{
			AssetID:     assetID,
			RecipientID: recipientID,
			CanDownload: canDownload,
		})
	})
	if err != nil {
		return nil, err
	}

	return assetRepo.GetByID(ctx, assetID)
}

// Revoke removes a recipient's grant under the version guard.
func (s *AssetService) Revoke(ctx context.Context, assetID, callerID, recipientID string, expectedVersion int64) (*models.Asset, error) {
	assetRepo := s.repos.Assets(s.db)
	asset, err := assetRepo.GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.OwnerID != callerID {
		return nil, common.ErrForbidden
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Assets(tx).BumpVersion(ctx, assetID, expectedVersion); err != nil {
			return err
		}
		return s.repos.Grants(tx).Delete(ctx, assetID, recipientID)
	})
	if err != nil {
		return nil, err
	}

	return assetRepo.GetByID(ctx, assetID)
}
