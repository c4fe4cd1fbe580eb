// Package repomanager vends repositories bound to a database handle and owns
// schema migration. The credential store depends only on RepositoryManager,
// so the storage backend can be swapped without touching it.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/credstore/internal/dbx"
	"github.com/dmitrijs2005/credstore/internal/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	// WithTx runs fn in a unit of work. Repositories obtained from tx inside
	// fn share that unit of work.
	WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error
}
