package catalog

import (
	"context"
	"time"
)

// Refresh drops the cached catalog and reloads it from the source.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.Flush()
	return c.Preload(ctx)
}

// Run refreshes the catalog every interval until ctx is cancelled. Sessions
// that already rendered a checklist keep it; only new selections see changes.
func (c *Catalog) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		c.logger.Infow("catalog refresh is disabled")
		return
	}
	c.logger.Infow("starting catalog refresh", "interval", interval)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Infow("catalog refresh shutting down")
			return
		case <-timer.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warnw("catalog refresh failed", "err", err)
			}
			timer.Reset(interval)
		}
	}
}
