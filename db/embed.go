// Package db provides the embedded database schema and seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedPromotions is the default promotion catalog in the promotion wire
// format, loaded by the seeding command and by the in-memory store fallback.
//
//go:embed seed/promotions.json
var SeedPromotions []byte
