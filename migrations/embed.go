// Package migrations embeds the Durable Repository's goose SQL schema
// so it ships inside the binary instead of depending on a file
// checked out alongside it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
