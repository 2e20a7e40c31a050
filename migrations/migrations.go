// Package migrations embeds the SQL schema applied by db.Migrate.
package migrations

import "embed"

// FS contains the golang-migrate up/down files.
//
//go:embed *.sql
var FS embed.FS
