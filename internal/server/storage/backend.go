// Package storage is the durable mirror of the entitlement store. It owns the
// database handle and exposes whole-snapshot operations only.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/dbx"
	"github.com/dmitrijs2005/kitkeeper/internal/filex"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/server/repositories/repomanager"
)

// sqlitePragmas are appended to file DSNs that do not set their own.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Backend loads and rewrites the cooldowns and one_time tables.
type Backend struct {
	db      *sql.DB
	manager repomanager.RepositoryManager
}

func New(db *sql.DB, manager repomanager.RepositoryManager) *Backend {
	return &Backend{db: db, manager: manager}
}

// SQLiteDSN turns a plain file path into a DSN with busy timeout and WAL.
func SQLiteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?" + sqlitePragmas
}

func isPlainPath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, "?")
}

// Open connects to the database, runs migrations and returns a ready Backend.
func Open(ctx context.Context, driver, dsn string) (*Backend, error) {
	manager, err := repomanager.ForDriver(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrConfigInvalid, err)
	}
	if driver == repomanager.DriverSQLite {
		if isPlainPath(dsn) {
			if _, err := filex.EnsureParentDir(dsn); err != nil {
				return nil, fmt.Errorf("failed to prepare database directory: %w", err)
			}
		}
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == repomanager.DriverSQLite {
		// one writer; also keeps :memory: on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := manager.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return New(db, manager), nil
}

// Load reads every live cooldown and every one-time marker.
func (b *Backend) Load(ctx context.Context, now time.Time) (models.Snapshot, error) {
	repo := b.manager.Entitlements(b.db)

	cooldowns, err := repo.ListCooldowns(ctx, now)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	oneTime, err := repo.ListOneTime(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return models.Snapshot{Cooldowns: cooldowns, OneTime: oneTime}, nil
}

// Replace swaps both tables for snap in a single transaction.
func (b *Backend) Replace(ctx context.Context, snap models.Snapshot) error {
	err := dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := b.manager.Entitlements(tx)
		if err := repo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := repo.InsertCooldowns(ctx, snap.Cooldowns); err != nil {
			return err
		}
		return repo.InsertOneTime(ctx, snap.OneTime)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to replace entitlements: %w", common.ErrStorageFailure, err)
	}
	return nil
}

// DeleteKit removes a kit from both tables in one transaction.
func (b *Backend) DeleteKit(ctx context.Context, kit string) error {
	err := dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return b.manager.Entitlements(tx).DeleteKit(ctx, kit)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	return nil
}

// Close releases the database handle. Call it after the store is closed.
func (b *Backend) Close() error {
	return b.db.Close()
}
