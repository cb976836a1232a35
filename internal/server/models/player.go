package models

import "github.com/google/uuid"

// Wildcard grants every permission.
const Wildcard = "*"

// Player is the identity behind a claim request, as asserted by the caller's
// access token or by the console.
type Player struct {
	ID          uuid.UUID
	Name        string
	Permissions []string
	Op          bool
}

// HasPermission reports whether the player holds perm. Empty perm is always
// held; ops and holders of the wildcard hold everything.
func (p Player) HasPermission(perm string) bool {
	if perm == "" || p.Op {
		return true
	}
	for _, have := range p.Permissions {
		if have == perm || have == Wildcard {
			return true
		}
	}
	return false
}
