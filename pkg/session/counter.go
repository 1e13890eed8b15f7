package session

import "sync"

// FrameCounter manages a per-direction frame counter. Each sealed or
// opened frame consumes exactly one counter value, so a (key, nonce)
// pair is never reused within a session. It is safe for concurrent use.
type FrameCounter struct {
	value     uint64
	exhausted bool
	mu        sync.Mutex
}

// NewFrameCounter creates a counter starting at the given initial value.
// The initial value is defined by the pairing subsystem that derived the
// session keys; both peers must agree on it per direction.
func NewFrameCounter(initial uint64) *FrameCounter {
	return &FrameCounter{
		value: initial,
	}
}

// Next returns the current counter value and increments the counter.
// Returns ErrCounterExhausted once the counter has wrapped; the session
// is then unusable in this direction.
func (c *FrameCounter) Next() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exhausted {
		return 0, ErrCounterExhausted
	}

	current := c.value
	c.value++

	if c.value == 0 {
		c.exhausted = true
	}

	return current, nil
}

// Current returns the current counter value without incrementing.
func (c *FrameCounter) Current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// IsExhausted returns true if the counter has wrapped.
func (c *FrameCounter) IsExhausted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exhausted
}
