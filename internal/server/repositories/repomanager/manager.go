package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/records"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/uploads"
)

// RepositoryManager vends repositories bound to a DBTX so services can use
// the same constructors inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Uploads(db dbx.DBTX) uploads.Repository
	Records(db dbx.DBTX) records.Repository
}
