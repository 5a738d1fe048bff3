// Package sqlite provides a record store backed by a local SQLite file.
package sqlite

import (
	"errors"
	"strings"

	"github.com/valkyraycho/page-etl/recordstore/store/sqlstore"
	"modernc.org/sqlite"
)

const (
	createTable = `
CREATE TABLE IF NOT EXISTS website_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT,
    url TEXT,
    content TEXT,
    extracted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	insertRecord = `
INSERT INTO website_data (title, url, content, extracted_at)
VALUES (?, ?, ?, ?)`

	selectRecords = `
SELECT id, COALESCE(title, ''), COALESCE(url, ''), COALESCE(content, ''), extracted_at
FROM website_data
ORDER BY id`
)

// Dialect describes the SQLite flavour of website_data.
var Dialect = sqlstore.Dialect{
	Name:          "SQLite",
	Driver:        "sqlite",
	CreateTable:   createTable,
	InsertRecord:  insertRecord,
	SelectRecords: selectRecords,
	IsMissingTable: func(err error) bool {
		// SQLite reports missing tables as a generic SQLITE_ERROR, so the
		// message is the only distinguishing part.
		var sqliteErr *sqlite.Error
		return errors.As(err, &sqliteErr) && strings.Contains(sqliteErr.Error(), "no such table")
	},
}

// NewSQLiteStore returns a record store for the database file at path. Each
// operation opens the file anew, so in-memory databases are not supported.
func NewSQLiteStore(path string) *sqlstore.Store {
	return sqlstore.New(Dialect, path)
}
