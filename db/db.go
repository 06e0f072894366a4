// Package db embeds the SQL schema migrations for the calibration store.
package db

import "embed"

// MigrationsFS holds the versioned schema migrations applied by
// internal/dataset at store open time.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
