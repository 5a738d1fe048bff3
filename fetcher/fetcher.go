// Package fetcher retrieves the HTML page an ETL run extracts records from.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html/charset"
)

const (
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes = 10 * 1024 * 1024

	userAgent = "page-etl/1.0 (+https://github.com/valkyraycho/page-etl)"
)

// ErrPrivateNetwork is returned when the target host resolves into a private
// network and the fetcher has been configured to refuse such hosts.
var ErrPrivateNetwork = errors.New("host resolves to a private network address")

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %s", e.Status)
}

// HTTPDoer is implemented by objects that can execute HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PrivateNetworkDetector is implemented by objects that can detect whether a
// host resolves to a private network address.
type PrivateNetworkDetector interface {
	IsPrivate(ctx context.Context, host string) (bool, error)
}

// Config encapsulates the settings for a Fetcher.
type Config struct {
	// Client performs the request. Defaults to an http.Client with Timeout.
	Client HTTPDoer

	// Timeout bounds the whole request when Client is not provided.
	Timeout time.Duration

	// PrivateNetworkDetector, when set, makes the fetcher refuse hosts
	// that resolve into private networks.
	PrivateNetworkDetector PrivateNetworkDetector

	Logger *log.Logger
}

// Fetcher issues a single GET per call. It never retries.
type Fetcher struct {
	cfg Config
}

// New returns a Fetcher for cfg.
func New(cfg Config) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Fetcher{cfg: cfg}
}

// Fetch downloads rawURL and returns its body. Any transport failure or
// non-2xx status is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	f.cfg.Logger.Infof("Fetching data from %s...", rawURL)

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}

	if f.cfg.PrivateNetworkDetector != nil {
		private, err := f.cfg.PrivateNetworkDetector.IsPrivate(ctx, u.Hostname())
		if err != nil {
			return "", fmt.Errorf("fetch: %w", err)
		}
		if private {
			return "", fmt.Errorf("fetch %s: %w", u.Hostname(), ErrPrivateNetwork)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	res, err := f.cfg.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("fetch: %w", &StatusError{StatusCode: res.StatusCode, Status: res.Status})
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("fetch: read body: %w", err)
	}
	if len(raw) > MaxBodyBytes {
		f.cfg.Logger.Warn("Response body exceeds size limit; parsing truncated page", "url", rawURL, "limit", MaxBodyBytes)
		raw = raw[:MaxBodyBytes]
	}

	body, err := decodeBody(raw, res.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("fetch: decode body: %w", err)
	}

	f.cfg.Logger.Debug("Fetched page", "url", rawURL, "bytes", len(raw))
	return body, nil
}

// decodeBody converts raw into UTF-8 using the charset declared in
// contentType or, failing that, in the document itself.
func decodeBody(raw []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
