package entitlements

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
)

// Repository reads and writes the cooldowns and one_time tables.
// Implementations are bound to a dbx.DBTX so they can run inside a transaction.
type Repository interface {
	// ListCooldowns returns cooldown rows ending strictly after the given instant.
	ListCooldowns(ctx context.Context, after time.Time) ([]models.CooldownRow, error)
	// ListOneTime returns every one-time marker with used = 1.
	ListOneTime(ctx context.Context) ([]models.OneTimeRow, error)
	// DeleteAll empties both tables.
	DeleteAll(ctx context.Context) error
	InsertCooldowns(ctx context.Context, rows []models.CooldownRow) error
	InsertOneTime(ctx context.Context, rows []models.OneTimeRow) error
	// DeleteKit removes every row for kit from both tables.
	DeleteKit(ctx context.Context, kit string) error
}
