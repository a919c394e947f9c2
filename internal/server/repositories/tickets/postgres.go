package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avern/mediavault/internal/common"
	"github.com/avern/mediavault/internal/dbx"
	"github.com/avern/mediavault/internal/server/models"
)

// PostgresRepository implements ticket storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, ticket *models.UploadTicket) error {
	query := `
		INSERT INTO upload_tickets (asset_id, owner_id, nonce, mime_type, size_bytes, storage_path, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false)
	`
	_, err := r.db.ExecContext(ctx, query,
		ticket.AssetID, ticket.OwnerID, ticket.Nonce, ticket.MimeType,
		ticket.SizeBytes, ticket.StoragePath, ticket.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetLive(ctx context.Context, assetID, ownerID string) (*models.UploadTicket, error) {
	query := `
		SELECT asset_id, owner_id, nonce, mime_type, size_bytes, storage_path, expires_at, used
		FROM upload_tickets
		WHERE asset_id = $1 AND owner_id = $2 AND used = false
	`
	ticket := &models.UploadTicket{}
	err := r.db.QueryRowContext(ctx, query, assetID, ownerID).Scan(
		&ticket.AssetID, &ticket.OwnerID, &ticket.Nonce, &ticket.MimeType,
		&ticket.SizeBytes, &ticket.StoragePath, &ticket.ExpiresAt, &ticket.Used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ticket, nil
}

// Consume marks the ticket used. The used = false condition makes the flip
// a single atomic compare-and-swap.
func (r *PostgresRepository) Consume(ctx context.Context, assetID string) error {
	query := `UPDATE upload_tickets SET used = true WHERE asset_id = $1 AND used = false`
	res, err := r.db.ExecContext(ctx, query, assetID)
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
		return common.ErrInvalidTicket
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
