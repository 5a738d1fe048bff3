package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/check.v1"
)

var _ = check.Suite(new(FetcherTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type FetcherTestSuite struct {
	logs bytes.Buffer
}

func (s *FetcherTestSuite) SetUpTest(c *check.C) {
	s.logs.Reset()
}

func (s *FetcherTestSuite) newFetcher(cfg Config) *Fetcher {
	cfg.Logger = log.New(&s.logs)
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return New(cfg)
}

func (s *FetcherTestSuite) TestFetchOK(c *check.C) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		c.Check(r.Method, check.Equals, http.MethodGet)
		_, _ = fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer srv.Close()

	body, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.IsNil)
	c.Assert(body, check.Equals, "<html><body>hello</body></html>")
	c.Assert(gotUA, check.Equals, userAgent)
	c.Assert(s.logs.String(), check.Matches, "(?s).*Fetching data from "+srv.URL+".*")
}

func (s *FetcherTestSuite) TestNon2xxStatus(c *check.C) {
	for _, code := range []int{http.StatusMovedPermanently, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if code == http.StatusMovedPermanently {
				// No Location header, so the client cannot follow it.
				w.WriteHeader(code)
				return
			}
			http.Error(w, "nope", code)
		}))

		_, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
		srv.Close()

		var statusErr *StatusError
		c.Assert(errors.As(err, &statusErr), check.Equals, true, check.Commentf("status %d", code))
		c.Assert(statusErr.StatusCode, check.Equals, code)
	}
}

func (s *FetcherTestSuite) TestTransportError(c *check.C) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := s.newFetcher(Config{}).Fetch(context.TODO(), url)
	c.Assert(err, check.ErrorMatches, "fetch: .*")
}

func (s *FetcherTestSuite) TestTimeout(c *check.C) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := s.newFetcher(Config{Timeout: 50 * time.Millisecond}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.NotNil)
	c.Assert(time.Since(start) < 5*time.Second, check.Equals, true)
}

func (s *FetcherTestSuite) TestBodyIsCapped(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodyBytes+100)))
	}))
	defer srv.Close()

	body, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.IsNil)
	c.Assert(body, check.HasLen, MaxBodyBytes)
	c.Assert(s.logs.String(), check.Matches, "(?s).*WARN.*exceeds size limit.*")
}

func (s *FetcherTestSuite) TestBodyAtLimitIsNotReported(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", MaxBodyBytes)))
	}))
	defer srv.Close()

	body, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.IsNil)
	c.Assert(body, check.HasLen, MaxBodyBytes)
	c.Assert(s.logs.String(), check.Not(check.Matches), "(?s).*exceeds size limit.*")
}

func (s *FetcherTestSuite) TestHeaderCharsetIsDecoded(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<p>caf\xe9</p>"))
	}))
	defer srv.Close()

	body, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.IsNil)
	c.Assert(body, check.Equals, "<p>café</p>")
}

func (s *FetcherTestSuite) TestMetaCharsetIsDecoded(c *check.C) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><meta charset=\"windows-1252\"></head><body>\x93Ren\xe9\x94</body></html>"))
	}))
	defer srv.Close()

	body, err := s.newFetcher(Config{}).Fetch(context.TODO(), srv.URL)
	c.Assert(err, check.IsNil)
	c.Assert(body, check.Matches, "(?s).*<body>“René”</body>.*")
}

func (s *FetcherTestSuite) TestPrivateNetworkRefused(c *check.C) {
	client := &doerStub{}
	f := s.newFetcher(Config{
		Client:                 client,
		PrivateNetworkDetector: detectorStub{private: true},
	})

	_, err := f.Fetch(context.TODO(), "http://intranet.example/")
	c.Assert(errors.Is(err, ErrPrivateNetwork), check.Equals, true)
	c.Assert(client.calls, check.Equals, 0, check.Commentf("no request should be issued"))
}

func (s *FetcherTestSuite) TestDetectorError(c *check.C) {
	client := &doerStub{}
	f := s.newFetcher(Config{
		Client:                 client,
		PrivateNetworkDetector: detectorStub{err: errors.New("lookup failed")},
	})

	_, err := f.Fetch(context.TODO(), "http://unknown.example/")
	c.Assert(err, check.ErrorMatches, "fetch: lookup failed")
	c.Assert(client.calls, check.Equals, 0)
}

func (s *FetcherTestSuite) TestPublicHostAllowed(c *check.C) {
	client := &doerStub{body: "ok"}
	f := s.newFetcher(Config{
		Client:                 client,
		PrivateNetworkDetector: detectorStub{},
	})

	body, err := f.Fetch(context.TODO(), "http://quotes.example/")
	c.Assert(err, check.IsNil)
	c.Assert(body, check.Equals, "ok")
	c.Assert(client.calls, check.Equals, 1)
}

func (s *FetcherTestSuite) TestInvalidURL(c *check.C) {
	_, err := s.newFetcher(Config{Client: &doerStub{}}).Fetch(context.TODO(), "http://[::1")
	c.Assert(err, check.NotNil)
}

type detectorStub struct {
	private bool
	err     error
}

func (d detectorStub) IsPrivate(context.Context, string) (bool, error) {
	return d.private, d.err
}

type doerStub struct {
	calls int
	body  string
}

func (d *doerStub) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	rec := httptest.NewRecorder()
	_, _ = rec.WriteString(d.body)
	return rec.Result(), nil
}
