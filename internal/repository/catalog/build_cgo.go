//go:build sqlite_cgo

package catalog

// CGO SQLite (github.com/mattn/go-sqlite3), faster for large catalogs.
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriverName is the database/sql driver registered for SQLite.
const sqliteDriverName = "sqlite3"
