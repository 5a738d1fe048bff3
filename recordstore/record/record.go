package record

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownDriver is returned when a store is requested for a database
	// driver that has no backend.
	ErrUnknownDriver = errors.New("unknown database driver")

	// ErrMissingTable is returned (possibly wrapped) by InsertRecords and
	// Records when website_data has not been created yet.
	ErrMissingTable = errors.New("website_data table does not exist")
)

// TableName is the destination table shared by every backend.
const TableName = "website_data"

// Record is a single piece of content extracted from a page.
type Record struct {
	// ID is assigned by the store and is zero for records that have not
	// been read back from storage.
	ID int64

	Title     string
	SourceURL string
	Content   string

	ExtractedAt time.Time
}

// Iterator is implemented by objects that can iterate stored records.
type Iterator interface {
	// Next advances the iterator. If no more items are available or an
	// error occurs, calls to Next() return false.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with the iterator.
	Close() error

	// Record returns the currently fetched record.
	Record() *Record
}

// Pinger is implemented by stores that can check whether their backing
// database accepts connections.
type Pinger interface {
	// Ping opens a connection, verifies it and releases it.
	Ping(ctx context.Context) error
}

// Store is implemented by objects that persist records into the
// website_data table.
type Store interface {
	Pinger

	// EnsureSchema creates website_data if it does not exist yet.
	EnsureSchema(ctx context.Context) error

	// InsertRecords inserts all records in a single transaction. Either
	// every record is stored or none is.
	InsertRecords(ctx context.Context, records []*Record) error

	// Records returns an iterator over the stored records ordered by ID.
	Records(ctx context.Context) (Iterator, error)

	// String returns a human readable name for the backing database.
	String() string
}
