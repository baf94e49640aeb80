// Package migrations embeds the goose migrations for the identity tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
