package audit

import (
	"context"
	"fmt"

	"github.com/avern/mediavault/internal/dbx"
)

// PostgresRepository implements audit storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, assetID, userID string) error {
	query := `INSERT INTO download_audit (asset_id, user_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, assetID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
