// Package health probes the backing stores the service depends on.
package health

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Probe func(ctx context.Context) error

type Checker struct {
	probes  map[string]Probe
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{probes: map[string]Probe{}, timeout: timeout}
}

func (c *Checker) Add(name string, p Probe) *Checker {
	c.probes[name] = p
	return c
}

type Report struct {
	Healthy bool              `json:"healthy"`
	Checks  map[string]string `json:"checks"`
}

// Check runs every probe under the checker's timeout.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	rep := Report{Healthy: true, Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := c.probes[name](ctx); err != nil {
			rep.Healthy = false
			rep.Checks[name] = err.Error()
			continue
		}
		rep.Checks[name] = "ok"
	}
	return rep
}

func DB(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		return db.WithContext(ctx).Exec("SELECT 1").Error
	}
}

func Redis(client redis.UniversalClient) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
