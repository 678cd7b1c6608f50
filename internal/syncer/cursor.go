package syncer

import (
	"sync"
	"time"
)

// Cursor tracks the timestamp of the last accepted event. It never moves
// backward. The cursor survives reconnects within a session but not process
// restarts, so a fresh start replays nothing and mirrors from live traffic.
type Cursor struct {
	mu sync.Mutex
	ts time.Time
}

func NewCursor() *Cursor {
	return &Cursor{}
}

// Advance moves the watermark forward to ts if ts is newer.
func (c *Cursor) Advance(ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts.After(c.ts) {
		c.ts = ts
	}
}

func (c *Cursor) Value() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ts
}
