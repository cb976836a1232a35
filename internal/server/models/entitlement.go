package models

import (
	"time"

	"github.com/google/uuid"
)

// EntitlementKey identifies one player's record for one kit.
type EntitlementKey struct {
	Player uuid.UUID
	Kit    string
}

// Entitlement is the per player × kit record. The zero value means "never
// claimed" and is never stored.
type Entitlement struct {
	// CooldownEnd is the instant the cooldown expires; zero means none.
	CooldownEnd time.Time

	// OneTimeUsed only moves false → true, except for an explicit admin reset.
	OneTimeUsed bool
}

// IsZero reports whether the record carries no facts.
func (e Entitlement) IsZero() bool {
	return e.CooldownEnd.IsZero() && !e.OneTimeUsed
}

// Remaining returns the cooldown left at now, never negative.
func (e Entitlement) Remaining(now time.Time) time.Duration {
	if e.CooldownEnd.IsZero() {
		return 0
	}
	if d := e.CooldownEnd.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CooldownRow is one row of the cooldowns table.
type CooldownRow struct {
	Player uuid.UUID
	Kit    string
	EndsAt time.Time
}

// OneTimeRow is one row of the one_time table.
type OneTimeRow struct {
	Player uuid.UUID
	Kit    string
}

// Snapshot is the full content of both backing tables.
type Snapshot struct {
	Cooldowns []CooldownRow
	OneTime   []OneTimeRow
}
