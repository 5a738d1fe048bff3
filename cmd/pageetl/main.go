package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/valkyraycho/page-etl/config"
	"github.com/valkyraycho/page-etl/etl"
	"github.com/valkyraycho/page-etl/extractor"
	"github.com/valkyraycho/page-etl/fetcher"
	"github.com/valkyraycho/page-etl/fetcher/privnet"
	"github.com/valkyraycho/page-etl/probe"
	"github.com/valkyraycho/page-etl/recordstore/store"
)

const (
	exitOK          = 0
	exitUnavailable = 1
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(reportConfigError(os.Stdout, err))
	}

	os.Exit(run(context.Background(), cfg, os.Stdout))
}

// run executes one ETL cycle and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, out io.Writer) int {
	logger := newLogger(out, cfg.LogLevel)

	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		logger.Error("Could not set up ETL run", "err", err)
		return exitUnavailable
	}

	if _, err := pipe.Run(ctx); err != nil {
		return exitUnavailable
	}
	return exitOK
}

// reportConfigError logs why the configuration was rejected and returns the
// exit code. The configured log level is unknown at this point.
func reportConfigError(out io.Writer, err error) int {
	newLogger(out, config.DefaultLogLevel).Error("Invalid configuration", "err", err)
	return exitUnavailable
}

func newLogger(out io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}

func newPipeline(cfg *config.Config, logger *log.Logger) (*etl.Pipeline, error) {
	st, err := store.Open(cfg.DB.Driver, cfg.DB.DSN(cfg.Probe.Timeout))
	if err != nil {
		return nil, err
	}

	fetchCfg := fetcher.Config{
		Timeout: cfg.FetchTimeout,
		Logger:  logger,
	}
	if cfg.BlockPrivateNetworks {
		det, err := privnet.NewDetector()
		if err != nil {
			return nil, err
		}
		fetchCfg.PrivateNetworkDetector = det
	}

	ex, err := extractor.New(extractor.QuoteSelectors, cfg.WebsiteURL, logger)
	if err != nil {
		return nil, err
	}

	return etl.New(etl.Config{
		URL:   cfg.WebsiteURL,
		Store: st,
		Prober: &probe.Prober{
			Target:         st,
			Name:           st.String(),
			MaxAttempts:    cfg.Probe.Attempts,
			AttemptTimeout: cfg.Probe.Timeout,
			RetryDelay:     cfg.Probe.Delay,
			Logger:         logger,
		},
		Fetcher:   fetcher.New(fetchCfg),
		Extractor: ex,
		Logger:    logger,
	})
}
