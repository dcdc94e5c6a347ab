package db

import "embed"

// EmbedMigrations holds the goose migrations for the app-owned schemas.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
