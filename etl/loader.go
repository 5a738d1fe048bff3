package etl

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/valkyraycho/page-etl/recordstore/record"
)

// Loader stores a batch of extracted records.
type Loader struct {
	store  record.Store
	logger *log.Logger
}

// NewLoader returns a loader that writes into store.
func NewLoader(store record.Store, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	return &Loader{store: store, logger: logger}
}

// Load stamps every record with its own load time and inserts the batch in a
// single transaction. The input records are not modified.
func (l *Loader) Load(ctx context.Context, records []*record.Record) (int, error) {
	batch := make([]*record.Record, len(records))
	for i, rec := range records {
		stamped := *rec
		stamped.ExtractedAt = time.Now()
		batch[i] = &stamped
	}

	if err := l.store.InsertRecords(ctx, batch); err != nil {
		return 0, err
	}

	l.logger.Infof("Successfully inserted %d records into %s.", len(batch), l.store)
	return len(batch), nil
}
