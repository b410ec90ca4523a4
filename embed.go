package gradii

import "embed"

// Migrations holds the goose SQL migrations applied by `api migrate`.
//
//go:embed migrations/*.sql
var Migrations embed.FS
