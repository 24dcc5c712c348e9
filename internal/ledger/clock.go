package ledger

import "sync/atomic"

// BlockClock supplies the current block number. Checkpoints are indexed by
// it, and prior-votes queries are rejected at or beyond it.
type BlockClock interface {
	CurrentBlock() uint64
}

// ManualClock is a BlockClock advanced explicitly. The service binary ticks
// it on an interval; tests drive it directly.
type ManualClock struct {
	block atomic.Uint64
}

// NewManualClock creates a clock starting at the given block.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.block.Store(start)
	return c
}

// CurrentBlock returns the current block number.
func (c *ManualClock) CurrentBlock() uint64 {
	return c.block.Load()
}

// Advance moves the clock forward by n blocks and returns the new block.
func (c *ManualClock) Advance(n uint64) uint64 {
	return c.block.Add(n)
}

var _ BlockClock = (*ManualClock)(nil)
