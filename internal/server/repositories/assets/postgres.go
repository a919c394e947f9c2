package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/dbx"
	"github.com/avern/mediavault/internal/server/models"
)

// PostgresRepository implements asset storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const assetColumns = `id, owner_id, filename, mime_type, size_bytes, storage_path, COALESCE(sha256, ''), status, version, created_at, updated_at`

func scanAsset(row interface {
	Scan(dest ...any) error
}, a *models.Asset) error {
	return row.Scan(&a.ID, &a.OwnerID, &a.Filename, &a.MimeType, &a.SizeBytes,
		&a.StoragePath, &a.SHA256, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt)
}

func (r *PostgresRepository) Create(ctx context.Context, asset *models.Asset) error {
	query := `
		INSERT INTO assets (id, owner_id, filename, mime_type, size_bytes, storage_path, status, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		asset.ID, asset.OwnerID, asset.Filename, asset.MimeType, asset.SizeBytes,
		asset.StoragePath, asset.Status, asset.Version).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`

	asset := &models.Asset{}
	if err := scanAsset(r.db.QueryRowContext(ctx, query, id), asset); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return asset, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, before *time.Time, limit int, filter string) ([]*models.Asset, error) {
	query := `
		SELECT ` + assetColumns + ` FROM assets
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		  AND ($3 = '' OR filename ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, before, filter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select assets: %w", err)
	}
	defer rows.Close()

	var result []*models.Asset
	for rows.Next() {
		var item models.Asset
		if err := scanAsset(rows, &item); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Rename updates the display filename under the version guard.
func (r *PostgresRepository) Rename(ctx context.Context, id, filename string, expectedVersion int64) error {
	query := `
		UPDATE assets SET filename = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`
	return r.guardedExec(ctx, query, filename, id, expectedVersion)
}

// BumpVersion advances the version counter under the version guard.
func (r *PostgresRepository) BumpVersion(ctx context.Context, id string, expectedVersion int64) error {
	query := `
		UPDATE assets SET version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
	`
	return r.guardedExec(ctx, query, id, expectedVersion)
}

// SetTerminalStatus records the finalize outcome under the version guard.
func (r *PostgresRepository) SetTerminalStatus(ctx context.Context, id, status, sha256 string, expectedVersion int64) error {
	query := `
		UPDATE assets SET status = $1, sha256 = NULLIF($2, ''), version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4
	`
	return r.guardedExec(ctx, query, status, sha256, id, expectedVersion)
}

// Delete removes the asset row; tickets, grants and audit entries go with
// it by cascade. The owner check rides along in the WHERE clause.
func (r *PostgresRepository) Delete(ctx context.Context, id, ownerID string, expectedVersion int64) error {
	query := `DELETE FROM assets WHERE id = $1 AND owner_id = $2 AND version = $3`
	return r.guardedExec(ctx, query, id, ownerID, expectedVersion)
}

// guardedExec runs a version-guarded statement. Zero affected rows means
// the caller's expectedVersion went stale.
func (r *PostgresRepository) guardedExec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
