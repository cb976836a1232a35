package entitlements

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/dbx"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/google/uuid"
)

// Dialect selects the placeholder style.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLRepository implements Repository with plain SQL that both SQLite and
// PostgreSQL accept; only placeholders differ.
type SQLRepository struct {
	db      dbx.DBTX
	dialect Dialect
}

func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: DialectSQLite}
}

func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: DialectPostgres}
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *SQLRepository) ListCooldowns(ctx context.Context, after time.Time) ([]models.CooldownRow, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT uuid, kit_id, end_time FROM cooldowns WHERE end_time > ?`), after.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list cooldowns: %w", err)
	}
	defer rows.Close()

	var result []models.CooldownRow
	for rows.Next() {
		var id, kit string
		var end int64
		if err := rows.Scan(&id, &kit, &end); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		player, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse cooldown player %q: %w", id, err)
		}
		result = append(result, models.CooldownRow{Player: player, Kit: kit, EndsAt: time.UnixMilli(end)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cooldown rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) ListOneTime(ctx context.Context) ([]models.OneTimeRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT uuid, kit_id FROM one_time WHERE used = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to list one-time markers: %w", err)
	}
	defer rows.Close()

	var result []models.OneTimeRow
	for rows.Next() {
		var id, kit string
		if err := rows.Scan(&id, &kit); err != nil {
			return nil, fmt.Errorf("failed to scan one-time row: %w", err)
		}
		player, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("failed to parse one-time player %q: %w", id, err)
		}
		result = append(result, models.OneTimeRow{Player: player, Kit: kit})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate one-time rows: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cooldowns`); err != nil {
		return fmt.Errorf("failed to clear cooldowns: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM one_time`); err != nil {
		return fmt.Errorf("failed to clear one-time markers: %w", err)
	}
	return nil
}

func (r *SQLRepository) InsertCooldowns(ctx context.Context, rows []models.CooldownRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := r.db.PrepareContext(ctx, r.rebind(`INSERT INTO cooldowns (uuid, kit_id, end_time) VALUES (?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare cooldown insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Player.String(), row.Kit, row.EndsAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert cooldown[%s/%s]: %w", row.Player, row.Kit, err)
		}
	}
	return nil
}

func (r *SQLRepository) InsertOneTime(ctx context.Context, rows []models.OneTimeRow) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := r.db.PrepareContext(ctx, r.rebind(`INSERT INTO one_time (uuid, kit_id, used) VALUES (?, ?, 1)`))
	if err != nil {
		return fmt.Errorf("failed to prepare one-time insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Player.String(), row.Kit); err != nil {
			return fmt.Errorf("failed to insert one-time marker[%s/%s]: %w", row.Player, row.Kit, err)
		}
	}
	return nil
}

func (r *SQLRepository) DeleteKit(ctx context.Context, kit string) error {
	if _, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM cooldowns WHERE kit_id = ?`), kit); err != nil {
		return fmt.Errorf("failed to delete cooldowns for kit[%s]: %w", kit, err)
	}
	if _, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM one_time WHERE kit_id = ?`), kit); err != nil {
		return fmt.Errorf("failed to delete one-time markers for kit[%s]: %w", kit, err)
	}
	return nil
}
