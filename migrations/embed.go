// Package migrations embeds the SQL schema migrations for the postgres
// repository. Apply them with cmd/migrate or any goose-compatible runner.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
