// Package appfs embeds the static files shipped inside the binaries.
package appfs

import "embed"

// FS holds the SQL migrations under migrations/.
//
//go:embed migrations/*.sql
var FS embed.FS
