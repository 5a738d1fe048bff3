package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/valkyraycho/page-etl/recordstore/record"
)

type recordIterator struct {
	db   *sql.DB
	conn *sql.Conn
	rows *sql.Rows

	lastErr error
	cur     *record.Record
	closed  bool
}

func (i *recordIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	var (
		rec         = new(record.Record)
		extractedAt any
	)
	i.lastErr = i.rows.Scan(&rec.ID, &rec.Title, &rec.SourceURL, &rec.Content, &extractedAt)
	if i.lastErr != nil {
		i.lastErr = fmt.Errorf("scan record: %w", i.lastErr)
		return false
	}
	if rec.ExtractedAt, i.lastErr = decodeTime(extractedAt); i.lastErr != nil {
		return false
	}

	i.cur = rec
	return true
}

func (i *recordIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}
	return i.rows.Err()
}

func (i *recordIterator) Close() error {
	if i.closed {
		return nil
	}
	i.closed = true

	if err := closeAll(nil, i.rows, i.conn, i.db); err != nil {
		return fmt.Errorf("record iterator: %w", err)
	}
	return nil
}

func (i *recordIterator) Record() *record.Record {
	return i.cur
}
