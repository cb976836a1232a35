// Package repomanager vends repository implementations per database flavour
// and runs the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/kitkeeper/internal/dbx"
	"github.com/dmitrijs2005/kitkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/kitkeeper/internal/server/repositories/entitlements"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

// Entitlements returns an entitlements.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Entitlements(db dbx.DBTX) entitlements.Repository {
	return entitlements.NewPostgresRepository(db)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
