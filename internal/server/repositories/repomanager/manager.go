package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/kitkeeper/internal/dbx"
	"github.com/dmitrijs2005/kitkeeper/internal/server/repositories/entitlements"
	"github.com/pressly/goose/v3"
)

// Driver names accepted by ForDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Entitlements(db dbx.DBTX) entitlements.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// ForDriver picks the manager matching a database/sql driver name.
func ForDriver(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	case DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
