//go:build !sqlite_cgo

package catalog

// Pure Go SQLite (modernc.org/sqlite); no C toolchain required.
//
//	CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

// sqliteDriverName is the database/sql driver registered for SQLite.
const sqliteDriverName = "sqlite"
