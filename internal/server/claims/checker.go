// Package claims decides whether a player may claim a kit and carries a
// claim through to its side effects.
package claims

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/common"
	"github.com/dmitrijs2005/kitkeeper/internal/server/models"
	"github.com/dmitrijs2005/kitkeeper/internal/timex"
)

// Reason is the outcome of a claim decision.
type Reason int

// Unknown is the zero value, carried by results of failed claims.
const (
	Unknown Reason = iota
	Allowed
	KitNotFound
	PermissionDenied
	OneTimeExhausted
	OnCooldown
	InsufficientFunds
	InventoryFull
)

var reasonNames = map[Reason]string{
	Unknown:           "unknown",
	Allowed:           "allowed",
	KitNotFound:       "kit_not_found",
	PermissionDenied:  "permission_denied",
	OneTimeExhausted:  "one_time_exhausted",
	OnCooldown:        "on_cooldown",
	InsufficientFunds: "insufficient_funds",
	InventoryFull:     "inventory_full",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

var reasonErrors = map[Reason]error{
	KitNotFound:       common.ErrKitNotFound,
	PermissionDenied:  common.ErrPermissionDenied,
	OneTimeExhausted:  common.ErrOneTimeExhausted,
	OnCooldown:        common.ErrOnCooldown,
	InsufficientFunds: common.ErrInsufficientFunds,
	InventoryFull:     common.ErrInventoryFull,
}

// Decision is what Check returns. Remaining is set for OnCooldown only.
type Decision struct {
	Reason    Reason
	Remaining time.Duration
}

func (d Decision) Allowed() bool { return d.Reason == Allowed }

// Err converts a denial into its sentinel error; nil when allowed.
func (d Decision) Err() error {
	if d.Reason == Allowed {
		return nil
	}
	sentinel, ok := reasonErrors[d.Reason]
	if !ok {
		return fmt.Errorf("claim not decided: %s", d.Reason)
	}
	if d.Reason == OnCooldown {
		return fmt.Errorf("%w: %s remaining", sentinel, timex.FormatCooldown(d.Remaining))
	}
	return sentinel
}

// CheckInput is every fact the checker looks at.
type CheckInput struct {
	Kit         *models.Kit
	Player      models.Player
	Entitlement models.Entitlement
	Now         time.Time

	// Bypass suppresses the one-time and cooldown checks only.
	Bypass bool

	// Funds are checked when the economy is on and the kit costs something.
	EconomyEnabled bool
	Balance        float64

	// Capacity is checked only when CheckCapacity is set.
	CheckCapacity bool
	FreeSlots     int
}

// Check returns the first denial in the order permission, one-time,
// cooldown, funds, inventory, or Allowed.
func Check(in CheckInput) Decision {
	if in.Kit == nil {
		return Decision{Reason: KitNotFound}
	}
	if !in.Player.HasPermission(in.Kit.Permission) {
		return Decision{Reason: PermissionDenied}
	}
	if !in.Bypass {
		if in.Kit.OneTime && in.Entitlement.OneTimeUsed {
			return Decision{Reason: OneTimeExhausted}
		}
		if rem := in.Entitlement.Remaining(in.Now); rem > 0 {
			return Decision{Reason: OnCooldown, Remaining: rem}
		}
	}
	if in.EconomyEnabled && in.Kit.Cost > 0 && in.Balance < in.Kit.Cost {
		return Decision{Reason: InsufficientFunds}
	}
	if in.CheckCapacity && in.FreeSlots < in.Kit.TotalSlots() {
		return Decision{Reason: InventoryFull}
	}
	return Decision{Reason: Allowed}
}
