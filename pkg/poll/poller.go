package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/detect-probe/pkg/logger"
)

// poller implements the Poller interface
type poller struct {
	logger   *logger.CanonicalLogger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a new Poller instance
func NewPoller(log *logger.CanonicalLogger, cfg Config) Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &poller{
		logger:   log,
		interval: cfg.Interval,
		stopCh:   make(chan struct{}),
	}
}

// Stop gracefully stops the poller. Safe to call more than once.
func (p *poller) Stop() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	return nil
}

// Run performs the polling loop. Stop and ctx are only observed between
// fetches, never during one.
func (p *poller) Run(ctx context.Context, fetch FetchFunc) error {
	p.logger.Info("started polling", logger.Duration("interval", p.interval))

	var fetchCount int64
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("stopping poller", logger.Int64("fetch_count", fetchCount))
			return ctx.Err()
		case <-p.stopCh:
			p.logger.Info("stopping poller", logger.Int64("fetch_count", fetchCount))
			return nil
		default:
		}

		fetchCount++
		if p.performFetch(ctx, fetch) {
			continue
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("stopping poller", logger.Int64("fetch_count", fetchCount))
			return ctx.Err()
		case <-p.stopCh:
			timer.Stop()
			p.logger.Info("stopping poller", logger.Int64("fetch_count", fetchCount))
			return nil
		case <-timer.C:
		}
	}
}

// performFetch runs one fetch; a panic is logged and treated as "no more work".
func (p *poller) performFetch(ctx context.Context, fetch FetchFunc) (more bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("fetch panicked", logger.String("panic", fmt.Sprint(r)))
			more = false
		}
	}()
	return fetch(ctx)
}
