// Package migrations embeds the SQL schema for each supported dialect.
package migrations

import "embed"

// Postgres contains migrations applied when running on Postgres.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite contains migrations applied when running on SQLite.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
