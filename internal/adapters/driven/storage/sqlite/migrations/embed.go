// Package migrations holds the numbered schema changes applied by the
// sqlite store, as NNN_name.up.sql and NNN_name.down.sql pairs.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
