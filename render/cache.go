package render

import (
	"context"
	"sync"
)

// Cache is a Painter that keeps the most recent frame for readers that poll,
// such as the gRPC transport.
type Cache struct {
	mu      sync.RWMutex
	frame   Frame
	version uint64
}

// Paint stores f and bumps the version.
func (c *Cache) Paint(_ context.Context, f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = f
	c.version++
	return nil
}

// Latest returns the last painted frame and its version. Version 0 means
// nothing has been painted yet.
func (c *Cache) Latest() (Frame, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame, c.version
}
