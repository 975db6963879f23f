package render

import (
	"context"
	"sync"
)

// bundleCache is the one piece of shared mutable state across concurrent
// local renders. Get-or-build semantics: the first caller builds, concurrent
// callers await that build's completion instead of racing to rebuild. A
// failed build is reported to its waiters but not cached, so the next job
// retries.
type bundleCache struct {
	mu       sync.Mutex
	path     string
	err      error
	inflight chan struct{}
}

func (c *bundleCache) Get(ctx context.Context, build func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()

	if c.path != "" {
		path := c.path
		c.mu.Unlock()
		return path, nil
	}

	if c.inflight != nil {
		done := c.inflight
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-done:
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.path != "" {
			return c.path, nil
		}
		return "", c.err
	}

	done := make(chan struct{})
	c.inflight = done
	c.mu.Unlock()

	path, err := build(ctx)

	c.mu.Lock()
	c.path = path
	c.err = err
	c.inflight = nil
	close(done)
	c.mu.Unlock()

	return path, err
}
