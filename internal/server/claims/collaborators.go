package claims

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/google/uuid"
)

// Kits resolves kit definitions. catalog.Catalog implements it.
type Kits interface {
	Get(id string) (*models.Kit, bool)
}

// Entitlements is the slice of the entitlement store a claim touches.
type Entitlements interface {
	Get(player uuid.UUID, kit string) models.Entitlement
	SetCooldown(player uuid.UUID, kit string, expiresAt time.Time)
	SetOneTimeUsed(player uuid.UUID, kit string)
}

// Economy is an optional currency backend. Withdraw must fail with
// common.ErrInsufficientFunds when the balance is too low at that moment.
// Deposit refunds a charge when nothing could be delivered.
type Economy interface {
	GetBalance(ctx context.Context, player uuid.UUID) (float64, error)
	HasBalance(ctx context.Context, player uuid.UUID, amount float64) (bool, error)
	Withdraw(ctx context.Context, player uuid.UUID, amount float64) error
	Deposit(ctx context.Context, player uuid.UUID, amount float64) error
}

// Inventory is where kit contents land.
type Inventory interface {
	FreeCapacity(ctx context.Context, player uuid.UUID) (int, error)
	// Grant stores items and returns whatever did not fit.
	Grant(ctx context.Context, player uuid.UUID, items []models.ItemStack) ([]models.ItemStack, error)
	// Equip puts item in an armor slot; false when the slot is taken.
	Equip(ctx context.Context, player uuid.UUID, slot string, item models.ItemStack) (bool, error)
	Drop(ctx context.Context, player uuid.UUID, items []models.ItemStack) error
	Clear(ctx context.Context, player uuid.UUID) error
}

// Dispatcher runs follow-up commands with console authority.
type Dispatcher interface {
	RunAsConsole(ctx context.Context, command string) error
}

// ClaimEvent describes a completed claim.
type ClaimEvent struct {
	Player   models.Player
	Kit      *models.Kit
	Charged  float64
	Bypassed bool
	Given    bool
	Overflow int
}

// Notifier is told about completed claims. It must not block for long and
// its failures never affect the claim.
type Notifier interface {
	KitClaimed(ctx context.Context, ev ClaimEvent)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev ClaimEvent)

func (f NotifierFunc) KitClaimed(ctx context.Context, ev ClaimEvent) { f(ctx, ev) }
