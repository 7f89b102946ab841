// Package worker runs periodic housekeeping next to the servers.
package worker

import (
	"context"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/repo"
	"go.uber.org/zap"
)

// Cleanup purges expired sessions and reset tokens. Expiry is enforced on
// read; the purge only reclaims storage.
type Cleanup struct {
	stores   map[string]repo.ExpiredPurger
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewCleanup(interval time.Duration, log *zap.Logger) *Cleanup {
	return &Cleanup{
		stores:   map[string]repo.ExpiredPurger{},
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

func (c *Cleanup) Add(name string, store repo.ExpiredPurger) *Cleanup {
	c.stores[name] = store
	return c
}

// RunOnce purges every store and returns the first error; the remaining stores still run.
func (c *Cleanup) RunOnce(ctx context.Context) error {
	var firstErr error
	before := c.now().UTC()
	for name, store := range c.stores {
		n, err := store.DeleteExpired(ctx, before)
		if err != nil {
			c.log.Error("cleanup failed", zap.String("store", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			c.log.Info("expired rows removed", zap.String("store", name), zap.Int64("count", n))
		}
	}
	return firstErr
}

// Run purges once per interval until ctx is cancelled.
func (c *Cleanup) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			_ = c.RunOnce(ctx)
			c.log.Debug("cleanup finished", zap.Duration("took", time.Since(start)))
		}
	}
}
