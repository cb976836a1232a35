// Package migrations embeds the goose migrations for the entitlement tables.
// The same files run on SQLite and PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
