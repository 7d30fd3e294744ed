package game

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// roundClock is a single-shot deadline timer. At most one arm is in flight;
// re-arming replaces the previous arm. onExpire fires at most once per arm,
// and Disarm after it has fired is a safe no-op.
type roundClock struct {
	clock clockwork.Clock

	mu     sync.Mutex
	gen    uint64
	timer  clockwork.Timer
	cancel chan struct{}
}

func newRoundClock(clock clockwork.Clock) *roundClock {
	return &roundClock{clock: clock}
}

func (c *roundClock) Arm(d time.Duration, onExpire func()) {
	c.mu.Lock()
	c.disarmLocked()

	gen := c.gen
	timer := c.clock.NewTimer(d)
	cancel := make(chan struct{})
	c.timer, c.cancel = timer, cancel
	c.mu.Unlock()

	go func() {
		select {
		case <-timer.Chan():
		case <-cancel:
			return
		}

		c.mu.Lock()
		if c.gen != gen {
			// Disarmed or re-armed between the fire and here; this arm is stale.
			c.mu.Unlock()
			return
		}
		c.timer, c.cancel = nil, nil
		c.mu.Unlock()

		onExpire()
	}()
}

func (c *roundClock) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
}

func (c *roundClock) disarmLocked() {
	c.gen++
	if c.timer == nil {
		return
	}

	if !c.timer.Stop() {
		// Already fired; drain so the channel never pins a value.
		select {
		case <-c.timer.Chan():
		default:
		}
	}
	close(c.cancel)
	c.timer, c.cancel = nil, nil
}
