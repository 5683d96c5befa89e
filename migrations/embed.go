// Package migrations embeds the versioned SQL schema so binaries do not
// depend on the working directory.
package migrations

import "embed"

// FS holds every NNNNNN_name.{up,down}.sql file
//
//go:embed *.sql
var FS embed.FS
