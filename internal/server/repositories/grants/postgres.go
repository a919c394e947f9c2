package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/dbx"
	"github.com/avern/mediavault/internal/server/models"
)

// PostgresRepository implements grant storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, grant *models.AccessGrant) error {
	query := `
		INSERT INTO access_grants (asset_id, recipient_id, can_download)
		VALUES ($1, $2, $3)
		ON CONFLICT (asset_id, recipient_id)
		DO UPDATE SET can_download = EXCLUDED.can_download
	`
	_, err := r.db.ExecContext(ctx, query, grant.AssetID, grant.RecipientID, grant.CanDownload)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, assetID, recipientID string) (*models.AccessGrant, error) {
	query := `
		SELECT asset_id, recipient_id, can_download FROM access_grants
		WHERE asset_id = $1 AND recipient_id = $2
	`
	grant := &models.AccessGrant{}
	err := r.db.QueryRowContext(ctx, query, assetID, recipientID).Scan(
		&grant.AssetID, &grant.RecipientID, &grant.CanDownload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return grant, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, assetID, recipientID string) error {
	query := `DELETE FROM access_grants WHERE asset_id = $1 AND recipient_id = $2`
	res, err := r.db.ExecContext(ctx, query, assetID, recipientID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
