// Package sqlstore implements record.Store on top of database/sql. Backends
// supply a Dialect with their driver name and statements; every operation
// opens its own connection and releases it before returning.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/valkyraycho/page-etl/recordstore/record"
)

// Dialect describes how a particular SQL backend stores records.
type Dialect struct {
	// Name is the human readable database name used in log lines.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	CreateTable   string
	InsertRecord  string
	SelectRecords string

	// IsMissingTable reports whether err is the driver's way of saying
	// website_data does not exist. Matching errors are wrapped with
	// record.ErrMissingTable.
	IsMissingTable func(err error) bool
}

var _ record.Store = (*Store)(nil)

// Store is a record.Store backed by a SQL database.
type Store struct {
	d   Dialect
	dsn string
}

// New returns a store that connects to dsn using dialect d. No connection is
// made until the first operation.
func New(d Dialect, dsn string) *Store {
	return &Store{d: d, dsn: dsn}
}

func (s *Store) String() string { return s.d.Name }

// Ping opens a connection, verifies it and closes it again.
func (s *Store) Ping(ctx context.Context) error {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, s.d.CreateTable)
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) InsertRecords(ctx context.Context, records []*record.Record) error {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, s.d.InsertRecord)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", s.mapMissingTable(err))
		}
		defer func() { _ = stmt.Close() }()

		for i, rec := range records {
			if _, err = stmt.ExecContext(ctx, rec.Title, rec.SourceURL, rec.Content, rec.ExtractedAt.UTC()); err != nil {
				return fmt.Errorf("insert record %d: %w", i, s.mapMissingTable(err))
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert records: %w", err)
	}
	return nil
}

// Records returns an iterator over all stored records. The iterator holds a
// dedicated connection until it is closed.
func (s *Store) Records(ctx context.Context) (record.Iterator, error) {
	db, err := sql.Open(s.d.Driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("records: %w", closeAll(err, db))
	}

	rows, err := conn.QueryContext(ctx, s.d.SelectRecords)
	if err != nil {
		return nil, fmt.Errorf("records: %w", closeAll(s.mapMissingTable(err), conn, db))
	}
	return &recordIterator{db: db, conn: conn, rows: rows}, nil
}

func (s *Store) mapMissingTable(err error) error {
	if s.d.IsMissingTable != nil && s.d.IsMissingTable(err) {
		return fmt.Errorf("%w: %w", record.ErrMissingTable, err)
	}
	return err
}

// withConn runs fn with a freshly opened connection. The connection and its
// pool are closed on every return path.
func (s *Store) withConn(ctx context.Context, fn func(*sql.Conn) error) error {
	db, err := sql.Open(s.d.Driver, s.dsn)
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return closeAll(err, db)
	}

	return closeAll(fn(conn), conn, db)
}

type closer interface {
	Close() error
}

// closeAll closes every closer in order and merges any failures with err.
func closeAll(err error, closers ...closer) error {
	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, err)
	}
	for _, cl := range closers {
		if cerr := cl.Close(); cerr != nil {
			result = multierror.Append(result, cerr)
		}
	}

	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// decodeTime converts a scanned extracted_at value into a time.Time. Drivers
// differ in whether they hand back parsed times or their text form.
func decodeTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", v)
}
