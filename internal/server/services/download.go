package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/logging"
	"github.com/avern/mediavault/internal/server/blob"
	sc "github.com/avern/mediavault/internal/server/config"
	"github.com/avern/mediavault/internal/server/models"
	"github.com/avern/mediavault/internal/server/repositories/repomanager"
	"github.com/avern/mediavault/internal/server/tokencache"
)

// accessTokenParam is the query parameter carrying the ephemeral token on
// the presigned URL.
const accessTokenParam = "access_token"

// DownloadGrant is a time-boxed download URL with the ephemeral access
// token already appended.
type DownloadGrant struct {
	URL       string
	ExpiresAt time.Time
}

// DownloadService brokers download access: it authorizes the caller,
// obtains a short-lived presigned URL from the blob gateway, and layers a
// single-use access token on top. The presigned URL alone authorizes *an*
// actor; the token proves the fetch was solicited through this service's
// authorization check for *this* caller.
type DownloadService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blob   blob.Gateway
	cache  tokencache.Cache
	config *sc.Config
	logger logging.Logger

	now func() time.Time
}

// NewDownloadService wires the broker to its ledger, blob gateway and
// token cache.
func NewDownloadService(db *sql.DB, repos repomanager.RepositoryManager, gw blob.Gateway, cache tokencache.Cache, config *sc.Config, logger logging.Logger) *DownloadService {
	return &DownloadService{
		db:     db,
		repos:  repos,
		blob:   gw,
		cache:  cache,
		config: config,
		logger: logger.With("module", "download_service"),
		now:    time.Now,
	}
}

// GrantDownload authorizes the caller against the asset, mints a
// single-use access token, and returns the presigned URL with the token
// appended. One audit entry is written per issuance.
func (s *DownloadService) GrantDownload(ctx context.Context, assetID, callerID string) (*DownloadGrant, error) {
	asset, err := s.repos.Assets(s.db).GetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, asset, callerID); err != nil {
		return nil, err
	}

	// Only verified content is served. Draft assets have nothing trusted
	// at rest and corrupt ones failed verification.
	if asset.Status != models.StatusReady {
		return nil, common.ErrBadRequest
	}

	url, err := s.blob.CreateSignedURL(ctx, asset.StoragePath, s.config.DownloadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("error presigning download: %w", err)
	}

	token, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	expiresAt := s.now().Add(s.config.DownloadURLTTL)
	s.cache.Put(token, tokencache.Entry{
		UserID:    callerID,
		AssetID:   assetID,
		ExpiresAt: expiresAt,
	})

	if err := s.repos.Audit(s.db).Append(ctx, assetID, callerID); err != nil {
		return nil, fmt.Errorf("audit write error: %w", err)
	}

	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}

	return &DownloadGrant{
		URL:       url + sep + accessTokenParam + "=" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateAccessToken consumes the token and returns the asset id it was
// minted for. It succeeds at most once per token.
func (s *DownloadService) ValidateAccessToken(ctx context.Context, token, callerID string) (string, error) {
	entry, err := s.cache.Consume(token, callerID)
	if err != nil {
		return "", err
	}
	return entry.AssetID, nil
}

func (s *DownloadService) authorize(ctx context.Context, asset *models.Asset, callerID string) error {
	if asset.OwnerID == callerID {
		return nil
	}
	grant, err := s.repos.Grants(s.db).Get(ctx, asset.ID, callerID)
	if err != nil {
		// No grant row means no access, regardless of why.
		return common.ErrForbidden
	}
	if !grant.CanDownload {
		return common.ErrForbidden
	}
	return nil
}
