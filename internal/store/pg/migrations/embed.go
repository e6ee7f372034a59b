// Package migrations embeds the SQL schema history so binaries can
// migrate a database without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
