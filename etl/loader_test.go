package etl_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/valkyraycho/page-etl/etl"
	"github.com/valkyraycho/page-etl/recordstore/record"

	"gopkg.in/check.v1"
)

var _ = check.Suite(new(LoaderTestSuite))

type LoaderTestSuite struct {
	logs bytes.Buffer
}

func (s *LoaderTestSuite) SetUpTest(c *check.C) {
	s.logs.Reset()
}

func (s *LoaderTestSuite) TestLoadStampsCopies(c *check.C) {
	st := newStoreStub()
	c.Assert(st.EnsureSchema(context.TODO()), check.IsNil)

	in := []*record.Record{
		{Title: "a", SourceURL: "u", Content: "x"},
		{Title: "b", SourceURL: "u", Content: "y"},
	}
	n, err := etl.NewLoader(st, log.New(&s.logs)).Load(context.TODO(), in)
	c.Assert(err, check.IsNil)
	c.Assert(n, check.Equals, 2)

	for _, rec := range in {
		c.Assert(rec.ExtractedAt.IsZero(), check.Equals, true, check.Commentf("input records must not be modified"))
	}

	it, err := st.Records(context.TODO())
	c.Assert(err, check.IsNil)
	var prev record.Record
	for it.Next() {
		rec := it.Record()
		c.Assert(rec.ExtractedAt.IsZero(), check.Equals, false)
		c.Assert(rec.ExtractedAt.Before(prev.ExtractedAt), check.Equals, false)
		prev = *rec
	}
	c.Assert(it.Close(), check.IsNil)
	c.Assert(s.logs.String(), check.Matches, "(?s).*Successfully inserted 2 records into in-memory store.*")
}

func (s *LoaderTestSuite) TestLoadFailure(c *check.C) {
	st := newStoreStub()
	st.insertErr = errors.New("disk full")

	n, err := etl.NewLoader(st, log.New(&s.logs)).Load(context.TODO(), []*record.Record{{Title: "a"}})
	c.Assert(err, check.ErrorMatches, "disk full")
	c.Assert(n, check.Equals, 0)
	c.Assert(s.logs.String(), check.Equals, "")
}
