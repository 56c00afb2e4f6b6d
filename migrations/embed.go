// Package migrations embeds the SQL migration files so binaries can apply
// them without shipping the directory separately.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
