package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/avern/mediavault/internal/logging"
	sc "github.com/avern/mediavault/internal/server/config"
	"github.com/avern/mediavault/internal/server/repositories/repomanager"
	"github.com/avern/mediavault/internal/server/tokencache"
)

// fakeGateway is a blob.Gateway stub with pluggable behavior per test.
type fakeGateway struct {
	uploadURL    string
	uploadErr    error
	signedURL    string
	signedErr    error
	objectBytes  []byte
	objectErr    error
	removeErr    error
	removedPaths []string
}

func (g *fakeGateway) CreateSignedUploadURL(ctx context.Context, path string) (string, error) {
	return g.uploadURL, g.uploadErr
}

func (g *fakeGateway) CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return g.signedURL, g.signedErr
}

func (g *fakeGateway) ReadObject(ctx context.Context, path string) ([]byte, error) {
	return g.objectBytes, g.objectErr
}

func (g *fakeGateway) Remove(ctx context.Context, path string) error {
	g.removedPaths = append(g.removedPaths, path)
	return g.removeErr
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *sc.Config {
	return &sc.Config{
		UploadTicketTTL:    10 * time.Minute,
		DownloadURLTTL:     90 * time.Second,
		TokenSweepInterval: 30 * time.Second,
		SecretKey:          "k",
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newAssetSvc(t *testing.T) (*AssetService, sqlmock.Sqlmock, *fakeGateway) {
	t.Helper()
	db, mock := newMockDB(t)
	gw := &fakeGateway{uploadURL: "https://signed.example/put"}
	svc := NewAssetService(db, repomanager.NewPostgresRepositoryManager(), gw, testConfig(), testLogger())
	svc.newID = func() string { return "11111111-1111-1111-1111-111111111111" }
	return svc, mock, gw
}

func newDownloadSvc(t *testing.T) (*DownloadService, sqlmock.Sqlmock, *fakeGateway, *tokencache.MemoryCache) {
	t.Helper()
	db, mock := newMockDB(t)
	gw := &fakeGateway{signedURL: "https://signed.example/get?sig=abc"}
	cache := tokencache.NewMemoryCache()
	svc := NewDownloadService(db, repomanager.NewPostgresRepositoryManager(), gw, cache, testConfig(), testLogger())
	return svc, mock, gw, cache
}

var assetTestColumns = []string{
	"id", "owner_id", "filename", "mime_type", "size_bytes",
	"storage_path", "coalesce", "status", "version", "created_at", "updated_at",
}

var ticketTestColumns = []string{
	"asset_id", "owner_id", "nonce", "mime_type", "size_bytes",
	"storage_path", "expires_at", "used",
}
