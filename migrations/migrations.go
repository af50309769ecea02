// Package migrations embeds the idempotent schema files applied by taskctl migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
