package recordtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkyraycho/page-etl/recordstore/record"

	"gopkg.in/check.v1"
)

// SuiteBase defines a re-usable set of record-store tests that can be
// executed against any type that implements record.Store.
type SuiteBase struct {
	s record.Store
}

// SetStore configures the test-suite to run all tests against s.
func (s *SuiteBase) SetStore(store record.Store) {
	s.s = store
}

func (s *SuiteBase) TestPing(c *check.C) {
	c.Assert(s.s.Ping(context.TODO()), check.IsNil)
}

func (s *SuiteBase) TestEnsureSchemaIsIdempotent(c *check.C) {
	c.Assert(s.s.EnsureSchema(context.TODO()), check.IsNil)
	c.Assert(s.s.EnsureSchema(context.TODO()), check.IsNil, check.Commentf("second schema creation failed"))

	it, err := s.s.Records(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(s.collect(c, it), check.HasLen, 0)
}

func (s *SuiteBase) TestInsertWithoutSchema(c *check.C) {
	err := s.s.InsertRecords(context.TODO(), []*record.Record{
		{Title: "Albert Einstein", SourceURL: "http://example.com", Content: "foo"},
	})
	c.Assert(errors.Is(err, record.ErrMissingTable), check.Equals, true, check.Commentf("insert: got %v", err))

	_, err = s.s.Records(context.TODO())
	c.Assert(errors.Is(err, record.ErrMissingTable), check.Equals, true, check.Commentf("records: got %v", err))
}

func (s *SuiteBase) TestInsertAndReadBack(c *check.C) {
	c.Assert(s.s.EnsureSchema(context.TODO()), check.IsNil)

	now := time.Now().UTC().Truncate(time.Second)
	in := make([]*record.Record, 5)
	for i := range in {
		in[i] = &record.Record{
			Title:       fmt.Sprintf("author %d", i),
			SourceURL:   "http://quotes.example.com/",
			Content:     fmt.Sprintf("quote %d", i),
			ExtractedAt: now.Add(time.Duration(i) * time.Minute),
		}
	}
	c.Assert(s.s.InsertRecords(context.TODO(), in), check.IsNil)

	it, err := s.s.Records(context.TODO())
	c.Assert(err, check.IsNil)
	got := s.collect(c, it)
	c.Assert(got, check.HasLen, len(in))

	var lastID int64
	for i, rec := range got {
		c.Assert(rec.ID > lastID, check.Equals, true, check.Commentf("record %d: expected ascending IDs", i))
		lastID = rec.ID

		c.Assert(rec.Title, check.Equals, in[i].Title)
		c.Assert(rec.SourceURL, check.Equals, in[i].SourceURL)
		c.Assert(rec.Content, check.Equals, in[i].Content)
		c.Assert(rec.ExtractedAt.UTC().Equal(in[i].ExtractedAt), check.Equals, true,
			check.Commentf("record %d: extracted_at %v, want %v", i, rec.ExtractedAt, in[i].ExtractedAt))
	}
}

func (s *SuiteBase) TestInsertAppends(c *check.C) {
	c.Assert(s.s.EnsureSchema(context.TODO()), check.IsNil)

	batch := []*record.Record{{Title: "a", SourceURL: "u", Content: "x", ExtractedAt: time.Now()}}
	c.Assert(s.s.InsertRecords(context.TODO(), batch), check.IsNil)
	c.Assert(s.s.InsertRecords(context.TODO(), batch), check.IsNil)

	it, err := s.s.Records(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(s.collect(c, it), check.HasLen, 2, check.Commentf("records are never deduplicated"))
}

func (s *SuiteBase) TestInsertEmptyBatch(c *check.C) {
	c.Assert(s.s.EnsureSchema(context.TODO()), check.IsNil)
	c.Assert(s.s.InsertRecords(context.TODO(), nil), check.IsNil)

	it, err := s.s.Records(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(s.collect(c, it), check.HasLen, 0)
}

func (s *SuiteBase) collect(c *check.C, it record.Iterator) []*record.Record {
	var out []*record.Record
	for it.Next() {
		out = append(out, it.Record())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)
	return out
}
