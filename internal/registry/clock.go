package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies the current block height. Heights never decrease.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// ManualClock is a Clock whose height only moves when told to.
type ManualClock struct {
	height atomic.Uint64
}

func NewManualClock(height uint64) *ManualClock {
	c := &ManualClock{}
	c.height.Store(height)
	return c
}

func (c *ManualClock) Now(context.Context) (uint64, error) {
	return c.height.Load(), nil
}

// Advance moves the clock forward by n blocks and returns the new height.
func (c *ManualClock) Advance(n uint64) uint64 {
	return c.height.Add(n)
}

// BlockClock derives a block height from wall time: one block every
// interval since genesis, starting at the genesis height.
type BlockClock struct {
	genesisHeight uint64
	genesisTime   time.Time
	interval      time.Duration
	now           func() time.Time

	mu   sync.Mutex
	last uint64
}

func NewBlockClock(genesisHeight uint64, genesisTime time.Time, interval time.Duration) *BlockClock {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BlockClock{
		genesisHeight: genesisHeight,
		genesisTime:   genesisTime,
		interval:      interval,
		now:           time.Now,
		last:          genesisHeight,
	}
}

func (c *BlockClock) Now(context.Context) (uint64, error) {
	elapsed := c.now().Sub(c.genesisTime)
	height := c.genesisHeight
	if elapsed > 0 {
		height += uint64(elapsed / c.interval)
	}

	// wall clocks can step backwards; the height must not
	c.mu.Lock()
	defer c.mu.Unlock()
	if height < c.last {
		height = c.last
	}
	c.last = height
	return height, nil
}
