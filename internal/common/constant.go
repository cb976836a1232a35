// Package common contains shared constants and sentinel errors used across
// kitkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on inbound and outbound requests.
const AccessTokenHeaderName = "access_token"

// ConsoleSender is the sender name used for commands typed into the server
// console. The console is trusted and skips per-verb permission checks.
const ConsoleSender = "CONSOLE"

// PlayerPlaceholder is replaced with the claimant's name in follow-up commands.
const PlayerPlaceholder = "{player}"
