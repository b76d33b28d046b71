// Package migrations embeds the SQL schema and applies it with golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
