package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/kitkeeper/internal/dbx"
	"github.com/dmitrijs2005/kitkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/kitkeeper/internal/server/repositories/entitlements"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories. This is the
// default store: a single file next to the server.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Entitlements(db dbx.DBTX) entitlements.Repository {
	return entitlements.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
