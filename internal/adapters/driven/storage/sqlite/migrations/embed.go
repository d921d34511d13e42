// Package migrations holds the journal schema as numbered SQL files.
// NNN_name.up.sql files are applied in order; .down.sql files undo them
// by hand.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
