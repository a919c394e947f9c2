// Package repomanager wires repository constructors together so services
// can obtain repositories bound to either a plain connection or an open
// transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avern/mediavault/internal/dbx"
	"github.com/avern/mediavault/internal/server/repositories/assets"
	"github.com/avern/mediavault/internal/server/repositories/audit"
	"github.com/avern/mediavault/internal/server/repositories/grants"
	"github.com/avern/mediavault/internal/server/repositories/tickets"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Assets(db dbx.DBTX) assets.Repository
	Tickets(db dbx.DBTX) tickets.Repository
	Grants(db dbx.DBTX) grants.Repository
	Audit(db dbx.DBTX) audit.Repository
}
