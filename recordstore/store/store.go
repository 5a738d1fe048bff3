// Package store selects a record.Store backend by driver name.
package store

import (
	"fmt"

	"github.com/valkyraycho/page-etl/recordstore/record"
	"github.com/valkyraycho/page-etl/recordstore/store/memory"
	"github.com/valkyraycho/page-etl/recordstore/store/pg"
	"github.com/valkyraycho/page-etl/recordstore/store/sqlite"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Open returns the store for driver. dsn is a lib/pq connection string for
// postgres, a file path for sqlite and is ignored for memory.
func Open(driver, dsn string) (record.Store, error) {
	switch driver {
	case DriverPostgres:
		return pg.NewPostgresStore(dsn), nil
	case DriverSQLite:
		return sqlite.NewSQLiteStore(dsn), nil
	case DriverMemory:
		return memory.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("open store %q: %w", driver, record.ErrUnknownDriver)
	}
}
