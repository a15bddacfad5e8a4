// Package db embeds the SQL migrations so binaries and tests apply the same schema.
package db

import "embed"

// Migrations holds migrations/*.sql; store.Migrate applies the *.up.sql files in name order.
//
//go:embed migrations/*.sql
var Migrations embed.FS
