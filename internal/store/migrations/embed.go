package migrations

import "embed"

// FS holds the goose migrations for the profile database.
//
//go:embed *.sql
var FS embed.FS
