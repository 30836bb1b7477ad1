// Package clock drives the simulation forward on a wall-clock cadence.
// Ticks are monotonic and never reset; speed scales the interval, and a
// speed of zero pauses the world without stopping the loop.
package clock

import (
	"log/slog"
	"sync"
	"time"
)

// pausePoll is how often a paused loop checks for a speed change.
const pausePoll = 100 * time.Millisecond

// Clock owns the tick counter and the run loop. Step may also be called
// directly, which is how tests and catch-up paths advance time.
type Clock struct {
	// Interval is the wall-clock length of one tick at speed 1.
	Interval time.Duration
	// CheckpointEvery fires OnCheckpoint each time this many ticks pass.
	// Zero disables checkpoints.
	CheckpointEvery uint64

	// OnTick runs every tick. OnCheckpoint runs after OnTick on
	// checkpoint ticks.
	OnTick       func(tick uint64)
	OnCheckpoint func(tick uint64)

	mu      sync.Mutex
	tick    uint64
	speed   float64
	running bool
}

// New returns a clock at speed 1.
func New(interval time.Duration, checkpointEvery uint64) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{
		Interval:        interval,
		CheckpointEvery: checkpointEvery,
		speed:           1.0,
	}
}

// Tick returns the number of ticks processed so far.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Speed returns the current speed multiplier.
func (c *Clock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// SetSpeed changes the speed multiplier. Zero pauses; negative values
// clamp to zero.
func (c *Clock) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	slog.Info("clock speed set", "speed", speed)
}

// Step advances exactly one tick and fires the callbacks.
func (c *Clock) Step() {
	c.mu.Lock()
	c.tick++
	tick := c.tick
	c.mu.Unlock()

	if c.OnTick != nil {
		c.OnTick(tick)
	}
	if c.CheckpointEvery > 0 && tick%c.CheckpointEvery == 0 && c.OnCheckpoint != nil {
		c.OnCheckpoint(tick)
	}
}

// Run loops until Stop is called, stepping on the configured cadence.
// Blocks; callers usually run it in a goroutine.
func (c *Clock) Run() {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	slog.Info("clock started", "tick", c.Tick(), "interval", c.Interval)

	for {
		c.mu.Lock()
		running, speed := c.running, c.speed
		c.mu.Unlock()
		if !running {
			break
		}
		if speed <= 0 {
			time.Sleep(pausePoll)
			continue
		}

		start := time.Now()
		c.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(c.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}
	slog.Info("clock stopped", "tick", c.Tick())
}

// Stop halts the run loop after the current tick finishes.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
