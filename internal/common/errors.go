// Package common defines shared constants and sentinel errors used across
// the server, the console and the CLI client. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Claim denials, surfaced to callers as typed reasons.
	ErrKitNotFound       = errors.New("kit not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrOneTimeExhausted  = errors.New("one-time kit already claimed")
	ErrOnCooldown        = errors.New("kit on cooldown")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInventoryFull     = errors.New("inventory full")

	// Storage errors. A failed flush is logged and retried, never fatal.
	ErrStorageFailure = errors.New("storage failure")

	// Admin input errors.
	ErrConfigInvalid = errors.New("invalid configuration value")
	ErrKitExists     = errors.New("kit already exists")

	// ErrEconomyDisabled is returned by balance commands when kits are free.
	ErrEconomyDisabled = errors.New("economy disabled")

	// Lifecycle errors.
	ErrShuttingDown = errors.New("shutting down")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
