package pg

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/valkyraycho/page-etl/recordstore/record"
	"github.com/valkyraycho/page-etl/recordstore/record/recordtest"
	"github.com/valkyraycho/page-etl/recordstore/store/sqlstore"
	"gopkg.in/check.v1"
)

var _ = check.Suite(new(PostgresStoreTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type PostgresStoreTestSuite struct {
	recordtest.SuiteBase
	store *sqlstore.Store
	db    *sql.DB
}

func (s *PostgresStoreTestSuite) SetUpSuite(c *check.C) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		c.Skip("Missing PG_DSN envvar; skipping postgres-backed record store test suite")
	}

	db, err := sql.Open("postgres", dsn)
	c.Assert(err, check.IsNil)
	s.db = db

	s.store = NewPostgresStore(dsn)
	s.SetStore(s.store)
}

func (s *PostgresStoreTestSuite) SetUpTest(c *check.C) {
	s.dropTable(c)
}

func (s *PostgresStoreTestSuite) TearDownSuite(c *check.C) {
	if s.db != nil {
		s.dropTable(c)
		c.Assert(s.db.Close(), check.IsNil)
	}
}

func (s *PostgresStoreTestSuite) dropTable(c *check.C) {
	_, err := s.db.Exec("DROP TABLE IF EXISTS website_data")
	c.Assert(err, check.IsNil)
}

func (s *PostgresStoreTestSuite) TestSingleTableDefinition(c *check.C) {
	c.Assert(s.store.EnsureSchema(context.TODO()), check.IsNil)
	c.Assert(s.store.EnsureSchema(context.TODO()), check.IsNil)

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = $1", record.TableName,
	).Scan(&count)
	c.Assert(err, check.IsNil)
	c.Assert(count, check.Equals, 1)
}

func (s *PostgresStoreTestSuite) TestFailedBatchIsRolledBack(c *check.C) {
	c.Assert(s.store.EnsureSchema(context.TODO()), check.IsNil)
	_, err := s.db.Exec("ALTER TABLE website_data ADD CONSTRAINT no_boom CHECK (title <> 'boom')")
	c.Assert(err, check.IsNil)

	err = s.store.InsertRecords(context.TODO(), []*record.Record{
		{Title: "ok", SourceURL: "u", Content: "c", ExtractedAt: time.Now()},
		{Title: "boom", SourceURL: "u", Content: "c", ExtractedAt: time.Now()},
	})
	c.Assert(err, check.ErrorMatches, "(?s)insert records: insert record 1:.*")

	var count int
	c.Assert(s.db.QueryRow("SELECT COUNT(*) FROM website_data").Scan(&count), check.IsNil)
	c.Assert(count, check.Equals, 0, check.Commentf("expected no rows from a failed batch"))
}

func (s *PostgresStoreTestSuite) TestServerDefaultTimestamp(c *check.C) {
	c.Assert(s.store.EnsureSchema(context.TODO()), check.IsNil)
	_, err := s.db.Exec("INSERT INTO website_data (title, url, content) VALUES ('a', 'b', 'c')")
	c.Assert(err, check.IsNil)

	it, err := s.store.Records(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(it.Next(), check.Equals, true)
	c.Assert(it.Record().ExtractedAt.IsZero(), check.Equals, false)
	c.Assert(it.Close(), check.IsNil)
}

func (s *PostgresStoreTestSuite) TestPingUnreachable(c *check.C) {
	unreachable := NewPostgresStore("host=127.0.0.1 port=1 dbname=none user=none sslmode=disable connect_timeout=1")
	c.Assert(unreachable.Ping(context.TODO()), check.NotNil)
}
