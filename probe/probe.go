// Package probe waits for a database to start accepting connections.
package probe

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/valkyraycho/page-etl/recordstore/record"
)

// Prober polls a record.Pinger until it succeeds or the attempt budget is
// spent. Every attempt other than the last is followed by a fixed delay.
type Prober struct {
	Target         record.Pinger
	Name           string
	MaxAttempts    int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
	Logger         *log.Logger

	// sleep is overridden by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// WaitForReady returns true as soon as one ping succeeds. It returns false
// when MaxAttempts pings have failed or ctx is cancelled while waiting.
func (p *Prober) WaitForReady(ctx context.Context) bool {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}

	logger.Infof("Waiting for %s to be ready...", p.Name)
	for remaining := p.MaxAttempts; remaining > 0; remaining-- {
		err := p.ping(ctx)
		if err == nil {
			logger.Infof("%s is ready!", p.Name)
			return true
		}

		if remaining == 1 {
			logger.Warnf("%s not ready yet: %v", p.Name, err)
			break
		}

		logger.Warnf("%s not ready yet: %v. Retrying in %s...", p.Name, err, p.RetryDelay)
		if err := sleep(ctx, p.RetryDelay); err != nil {
			logger.Error("Stopped waiting for database", "err", err)
			return false
		}
	}

	logger.Errorf("Failed to connect to %s after %d attempts.", p.Name, p.MaxAttempts)
	return false
}

func (p *Prober) ping(ctx context.Context) error {
	if p.AttemptTimeout <= 0 {
		return p.Target.Ping(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, p.AttemptTimeout)
	defer cancel()
	return p.Target.Ping(attemptCtx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
