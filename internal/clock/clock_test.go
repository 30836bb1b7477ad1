package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestStepFiresCallbacksInOrder(t *testing.T) {
	c := New(time.Second, 3)

	var ticks, checkpoints []uint64
	c.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	c.OnCheckpoint = func(tick uint64) { checkpoints = append(checkpoints, tick) }

	for i := 0; i < 7; i++ {
		c.Step()
	}

	if c.Tick() != 7 {
		t.Fatalf("Tick() = %d, want 7", c.Tick())
	}
	if len(ticks) != 7 || ticks[0] != 1 || ticks[6] != 7 {
		t.Fatalf("OnTick saw %v", ticks)
	}
	if len(checkpoints) != 2 || checkpoints[0] != 3 || checkpoints[1] != 6 {
		t.Fatalf("OnCheckpoint saw %v, want [3 6]", checkpoints)
	}
}

func TestZeroCheckpointEveryDisablesCheckpoints(t *testing.T) {
	c := New(time.Second, 0)
	fired := false
	c.OnCheckpoint = func(uint64) { fired = true }

	for i := 0; i < 10; i++ {
		c.Step()
	}
	if fired {
		t.Fatal("OnCheckpoint fired with CheckpointEvery = 0")
	}
}

func TestSetSpeedClamps(t *testing.T) {
	c := New(time.Second, 0)
	if c.Speed() != 1.0 {
		t.Fatalf("initial Speed() = %v, want 1", c.Speed())
	}
	c.SetSpeed(-3)
	if c.Speed() != 0 {
		t.Fatalf("Speed() after SetSpeed(-3) = %v, want 0", c.Speed())
	}
	c.SetSpeed(8)
	if c.Speed() != 8 {
		t.Fatalf("Speed() = %v, want 8", c.Speed())
	}
}

func TestRunStops(t *testing.T) {
	c := New(time.Millisecond, 0)
	var count atomic.Uint64
	c.OnTick = func(uint64) { count.Add(1) }

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for count.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("clock did not reach 3 ticks in 2s")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after Stop()")
	}

	at := count.Load()
	time.Sleep(20 * time.Millisecond)
	if count.Load() != at {
		t.Fatal("ticks kept advancing after Run() returned")
	}
}

func TestPausedClockDoesNotTick(t *testing.T) {
	c := New(time.Millisecond, 0)
	var count atomic.Uint64
	c.OnTick = func(uint64) { count.Add(1) }
	c.SetSpeed(0)

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if got := count.Load(); got != 0 {
		t.Fatalf("paused clock ticked %d times", got)
	}

	c.SetSpeed(1000)
	deadline := time.After(2 * time.Second)
	for count.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("unpaused clock never ticked")
		case <-time.After(time.Millisecond):
		}
	}

	c.Stop()
	<-done
}
