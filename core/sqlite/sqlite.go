// Package sqlite opens lexicon databases through one of two SQLite drivers.
//
// Build modes:
//   - Default (CGO_ENABLED=0): pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): mattn/go-sqlite3
//
// Use Open or OpenReadOnly instead of sql.Open so the DSN matches the
// driver in use.
package sqlite

import (
	"database/sql"
	"net/url"
	"path/filepath"
)

// DriverName returns the database/sql driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// Open opens a SQLite database for reading and writing.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens the database file at path in read-only mode with
// foreign keys enforced. Both drivers accept the file: URI form.
func OpenReadOnly(path string) (*sql.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	q := url.Values{}
	q.Set("mode", "ro")
	for k, v := range readOnlyParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return Open(u.String())
}
