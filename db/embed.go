// Package db provides the embedded goose migrations and the sample catalog.
package db

import "embed"

// MigrationsDir is the directory inside Migrations that holds the goose files.
const MigrationsDir = "migrations"

// Migrations contains the goose SQL migrations for all application tables.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// SampleCatalog is the catalog loaded by seed-db when no file is given.
//
//go:embed seed/catalog.json
var SampleCatalog []byte
