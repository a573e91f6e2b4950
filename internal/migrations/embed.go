// Package migrations provides embedded SQL migration files.
package migrations

import (
	_ "embed"
)

//go:embed sql/001_initial.sql
var InitialSQL string

//go:embed sql/002_archives.sql
var Migration002Archives string

// All lists every migration in the order it must be applied.
var All = []string{InitialSQL, Migration002Archives}
