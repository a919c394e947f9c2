package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/server/models"
)

func expectReadyAsset(mock sqlmock.Sqlmock, ownerID string) {
	now := time.Now()
	mock.ExpectQuery(`SELECT id, owner_id, filename, .* FROM assets WHERE id`).
		WithArgs(testAssetID).
		WillReturnRows(sqlmock.NewRows(assetTestColumns).
			AddRow(testAssetID, ownerID, "photo.jpg", "image/jpeg", int64(1024),
				ownerID+"/"+testAssetID+"/photo.jpg", "abc123", models.StatusReady, int64(2), now, now))
}

func TestGrantDownload_Owner(t *testing.T) {
	svc, mock, _, cache := newDownloadSvc(t)
	// The cache validates expiry against the real clock, so the service
	// clock is pinned to a real instant rather than a fixed date.
	now := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return now }

	expectReadyAsset(mock, "u1")
	mock.ExpectExec(`INSERT INTO download_audit`).
		WithArgs(testAssetID, "u1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant, err := svc.GrantDownload(context.Background(), testAssetID, "u1")
	require.NoError(t, err)

	assert.Equal(t, now.Add(90*time.Second), grant.ExpiresAt)
	require.Contains(t, grant.URL, "access_token=")
	// The presigned URL already carried query parameters, so the token is
	// appended with '&'.
	assert.True(t, strings.HasPrefix(grant.URL, "https://signed.example/get?sig=abc&access_token="))

	token := grant.URL[strings.LastIndex(grant.URL, "=")+1:]
	assetID, err := svc.ValidateAccessToken(context.Background(), token, "u1")
	require.NoError(t, err)
	assert.Equal(t, testAssetID, assetID)
	assert.Equal(t, 0, cache.Len(), "token consumed on first validation")

	_, err = svc.ValidateAccessToken(context.Background(), token, "u1")
	assert.ErrorIs(t, err, common.ErrForbidden, "tokens are single use")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantDownload_NonOwnerWithoutGrant(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	expectReadyAsset(mock, "owner-a")
	mock.ExpectQuery(`SELECT asset_id, recipient_id, can_download FROM access_grants`).
		WithArgs(testAssetID, "user-b").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "recipient_id", "can_download"}))

	_, err := svc.GrantDownload(context.Background(), testAssetID, "user-b")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestGrantDownload_NonOwnerWithGrant(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	expectReadyAsset(mock, "owner-a")
	mock.ExpectQuery(`SELECT asset_id, recipient_id, can_download FROM access_grants`).
		WithArgs(testAssetID, "user-b").
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "recipient_id", "can_download"}).
			AddRow(testAssetID, "user-b", true))
	mock.ExpectExec(`INSERT INTO download_audit`).
		WithArgs(testAssetID, "user-b").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant, err := svc.GrantDownload(context.Background(), testAssetID, "user-b")
	require.NoError(t, err)
	assert.Contains(t, grant.URL, "access_token=")
}

func TestGrantDownload_GrantWithoutDownloadFlag(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	expectReadyAsset(mock, "owner-a")
	mock.ExpectQuery(`SELECT asset_id, recipient_id, can_download FROM access_grants`).
		WillReturnRows(sqlmock.NewRows([]string{"asset_id", "recipient_id", "can_download"}).
			AddRow(testAssetID, "user-b", false))

	_, err := svc.GrantDownload(context.Background(), testAssetID, "user-b")
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestGrantDownload_UnknownAsset(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	mock.ExpectQuery(`SELECT id, owner_id, filename, .* FROM assets WHERE id`).
		WillReturnRows(sqlmock.NewRows(assetTestColumns))

	_, err := svc.GrantDownload(context.Background(), testAssetID, "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGrantDownload_DraftAsset(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, owner_id, filename, .* FROM assets WHERE id`).
		WillReturnRows(sqlmock.NewRows(assetTestColumns).
			AddRow(testAssetID, "u1", "photo.jpg", "image/jpeg", int64(1024),
				"p", "", models.StatusDraft, int64(1), now, now))

	_, err := svc.GrantDownload(context.Background(), testAssetID, "u1")
	assert.ErrorIs(t, err, common.ErrBadRequest, "unverified content is never served")
}

func TestGrantDownload_PresignError(t *testing.T) {
	svc, mock, gw, _ := newDownloadSvc(t)
	gw.signedErr = errors.New("presign failed")

	expectReadyAsset(mock, "u1")

	_, err := svc.GrantDownload(context.Background(), testAssetID, "u1")
	require.Error(t, err)
}

func TestValidateAccessToken_WrongCaller(t *testing.T) {
	svc, mock, _, _ := newDownloadSvc(t)

	expectReadyAsset(mock, "u1")
	mock.ExpectExec(`INSERT INTO download_audit`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant, err := svc.GrantDownload(context.Background(), testAssetID, "u1")
	require.NoError(t, err)

	token := grant.URL[strings.LastIndex(grant.URL, "=")+1:]
	_, err = svc.ValidateAccessToken(context.Background(), token, "someone-else")
	assert.ErrorIs(t, err, common.ErrForbidden)
}
