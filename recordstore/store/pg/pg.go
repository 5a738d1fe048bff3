// Package pg provides a PostgreSQL-backed record store.
package pg

import (
	"errors"

	"github.com/lib/pq"
	"github.com/valkyraycho/page-etl/recordstore/store/sqlstore"
)

// undefinedTable is the SQLSTATE raised for references to missing relations.
const undefinedTable pq.ErrorCode = "42P01"

const (
	createTable = `
CREATE TABLE IF NOT EXISTS website_data (
    id SERIAL PRIMARY KEY,
    title TEXT,
    url TEXT,
    content TEXT,
    extracted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

	insertRecord = `
INSERT INTO website_data (title, url, content, extracted_at)
VALUES ($1, $2, $3, $4)`

	selectRecords = `
SELECT id, COALESCE(title, ''), COALESCE(url, ''), COALESCE(content, ''), extracted_at
FROM website_data
ORDER BY id`
)

// Dialect describes the PostgreSQL flavour of website_data.
var Dialect = sqlstore.Dialect{
	Name:          "PostgreSQL",
	Driver:        "postgres",
	CreateTable:   createTable,
	InsertRecord:  insertRecord,
	SelectRecords: selectRecords,
	IsMissingTable: func(err error) bool {
		var pqErr *pq.Error
		return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
	},
}

// NewPostgresStore returns a record store for the database described by the
// lib/pq connection string dsn.
func NewPostgresStore(dsn string) *sqlstore.Store {
	return sqlstore.New(Dialect, dsn)
}
