// Package client talks to the KitKeeper gRPC service.
//
// GRPCClient manages one connection, injects the player's access token into
// every call through an interceptor, and maps gRPC status codes to the
// sentinel errors in errors.go so callers can use errors.Is.
//
// Claim denials are not errors: they come back as a ClaimResponse with
// Allowed false and a reason.
package client
