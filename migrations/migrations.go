// Package migrations embeds the SQL schema migrations for the buyer-intake
// database so the migrate CLI can run them from the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
