// Package etl sequences a single fetch, extract and load run.
package etl

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/valkyraycho/page-etl/recordstore/record"
)

// ErrDatabaseUnavailable is returned by Run when the database never accepted
// a connection within the probe budget.
var ErrDatabaseUnavailable = errors.New("database did not become available")

// The stage failure policies. Schema failures are tolerated while load
// failures abort the batch; both end in a successful run.
const (
	schemaPolicy = Tolerate
	fetchPolicy  = AbortBatch
	loadPolicy   = AbortBatch
)

// ReadinessProber is implemented by objects that block until the database
// accepts connections or give up.
type ReadinessProber interface {
	WaitForReady(ctx context.Context) bool
}

// Fetcher is implemented by objects that download a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor is implemented by objects that turn a page into records.
type Extractor interface {
	Extract(html string) []*record.Record
}

// Config encapsulates the components of a run.
type Config struct {
	// URL is the page to fetch.
	URL string

	Store     record.Store
	Prober    ReadinessProber
	Fetcher   Fetcher
	Extractor Extractor

	// Logger defaults to the charmbracelet default logger.
	Logger *log.Logger
}

func (cfg *Config) validate() error {
	var err error
	if cfg.URL == "" {
		err = multierror.Append(err, errors.New("page URL not specified"))
	}
	if cfg.Store == nil {
		err = multierror.Append(err, errors.New("record store not specified"))
	}
	if cfg.Prober == nil {
		err = multierror.Append(err, errors.New("readiness prober not specified"))
	}
	if cfg.Fetcher == nil {
		err = multierror.Append(err, errors.New("fetcher not specified"))
	}
	if cfg.Extractor == nil {
		err = multierror.Append(err, errors.New("extractor not specified"))
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return err
}

// Pipeline runs the probe, schema, fetch, extract and load stages in order.
type Pipeline struct {
	cfg    Config
	loader *Loader
}

// New validates cfg and returns a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("etl config validation failed: %w", err)
	}
	return &Pipeline{
		cfg:    cfg,
		loader: NewLoader(cfg.Store, cfg.Logger),
	}, nil
}

// Run executes one ETL cycle and returns the state it finished in. The only
// error it returns is ErrDatabaseUnavailable; every other failure is logged
// and the run finishes in StateDone.
func (p *Pipeline) Run(ctx context.Context) (State, error) {
	r := &run{
		logger: p.cfg.Logger.With("run", uuid.New()),
		state:  StateInit,
	}

	r.transition(StateDBWait)
	if !p.cfg.Prober.WaitForReady(ctx) {
		r.transition(StateAborted)
		return r.state, ErrDatabaseUnavailable
	}

	if err := p.cfg.Store.EnsureSchema(ctx); err != nil {
		schemaPolicy.handle(r.logger, "Error creating table", err)
	} else {
		r.logger.Infof("Table '%s' ensured to exist.", record.TableName)
	}
	r.transition(StateSchemaReady)

	html, err := p.cfg.Fetcher.Fetch(ctx, p.cfg.URL)
	if err != nil {
		if !fetchPolicy.handle(r.logger, fmt.Sprintf("Error fetching data from %s", p.cfg.URL), err) {
			r.logger.Info("Failed to fetch website content.")
			return r.finish(), nil
		}
	}
	if html == "" {
		r.logger.Info("Failed to fetch website content.")
		return r.finish(), nil
	}
	r.transition(StateFetched)

	r.logger.Info("Parsing data...")
	records := p.cfg.Extractor.Extract(html)
	r.transition(StateParsed)
	if len(records) == 0 {
		r.logger.Info("No data extracted from the website.")
		return r.finish(), nil
	}

	r.logger.Infof("Saving data to %s...", p.cfg.Store)
	if _, err := p.loader.Load(ctx, records); err != nil {
		msg := fmt.Sprintf("Error connecting to or interacting with %s", p.cfg.Store)
		if !loadPolicy.handle(r.logger, msg, err) {
			return r.finish(), nil
		}
	}
	r.transition(StateLoaded)
	return r.finish(), nil
}

type run struct {
	logger *log.Logger
	state  State
}

func (r *run) transition(next State) {
	r.logger.Debug("State transition", "from", r.state, "to", next)
	r.state = next
}

func (r *run) finish() State {
	r.transition(StateDone)
	return r.state
}
