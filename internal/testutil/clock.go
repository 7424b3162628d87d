package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is a StepClock's wall time before its first tick.
var DefaultEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepClock numbers scenario steps and derives wall time from the step
// number: every tick moves Now forward one second. Two clocks with the
// same epoch ticked the same number of times agree exactly, which keeps
// run timestamps in history and golden snapshots stable.
//
// A StepClock is safe for concurrent use.
type StepClock struct {
	mu    sync.Mutex
	seq   int64
	epoch time.Time
}

// NewStepClock returns a clock at step 0. A zero epoch means DefaultEpoch.
func NewStepClock(epoch time.Time) *StepClock {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &StepClock{epoch: epoch.UTC()}
}

// Tick advances to the next step and returns its number, starting at 1.
func (c *StepClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Seq returns the current step number.
func (c *StepClock) Seq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Now returns the wall time of the current step. It has the signature of
// store.WithNow and execution.WithMockNow hooks.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch.Add(time.Duration(c.seq) * time.Second)
}

// Reset rewinds to step 0.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
