package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/valkyraycho/page-etl/recordstore/record"
)

var _ record.Store = (*InMemoryStore)(nil)

// InMemoryStore implements an in-memory record store that mimics the
// behaviour of the SQL backends: inserts fail until the schema exists and a
// batch is applied atomically.
type InMemoryStore struct {
	mu sync.RWMutex

	tableExists bool
	nextID      int64
	records     []*record.Record
}

// NewInMemoryStore creates a new in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) String() string { return "in-memory store" }

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) EnsureSchema(context.Context) error {
	s.mu.Lock()
	s.tableExists = true
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) InsertRecords(_ context.Context, records []*record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.tableExists {
		return fmt.Errorf("insert records: %w", record.ErrMissingTable)
	}

	batch := make([]*record.Record, 0, len(records))
	for _, rec := range records {
		rCopy := new(record.Record)
		*rCopy = *rec
		rCopy.ID = s.nextID + int64(len(batch))
		batch = append(batch, rCopy)
	}

	s.nextID += int64(len(batch))
	s.records = append(s.records, batch...)
	return nil
}

func (s *InMemoryStore) Records(context.Context) (record.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.tableExists {
		return nil, fmt.Errorf("records: %w", record.ErrMissingTable)
	}

	records := make([]*record.Record, len(s.records))
	copy(records, s.records)
	return &recordIterator{s: s, records: records}, nil
}
