package memory

import "github.com/valkyraycho/page-etl/recordstore/record"

type recordIterator struct {
	s        *InMemoryStore
	records  []*record.Record
	curIndex int
}

func (i *recordIterator) Next() bool {
	if i.curIndex >= len(i.records) {
		return false
	}
	i.curIndex++
	return true
}

func (i *recordIterator) Error() error {
	return nil
}

func (i *recordIterator) Close() error {
	return nil
}

func (i *recordIterator) Record() *record.Record {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()

	rec := new(record.Record)
	*rec = *i.records[i.curIndex-1]
	return rec
}
