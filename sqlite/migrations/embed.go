package migrations

import "embed"

// FS holds the history schema migrations, named for golang-migrate.
//
//go:embed *.sql
var FS embed.FS
