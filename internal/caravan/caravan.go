// Package caravan moves goods between settlements. Each village dispatches
// a single supply caravan at a time; it walks the terrain to the village's
// liege town, unloads, walks home, and disbands.
package caravan

import (
	"fmt"

	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

// ID is a unique identifier for a caravan over the life of a world.
type ID = uint64

// State is the leg of the journey a caravan is on.
type State uint8

const (
	StateTraveling  State = iota // outbound with cargo
	StateDelivering              // unloading at the destination
	StateReturning               // homeward, empty
)

// Name returns the lowercase state name.
func (s State) Name() string {
	switch s {
	case StateTraveling:
		return "traveling"
	case StateDelivering:
		return "delivering"
	case StateReturning:
		return "returning"
	default:
		return "unknown"
	}
}

// CanTransition reports whether a caravan may move from s to next. The
// journey is strictly one-way: travel, deliver, return, disband.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateTraveling:
		return next == StateDelivering
	case StateDelivering:
		return next == StateReturning
	default:
		return false
	}
}

// Caravan is one shipment in flight. Path holds the remaining leg as the
// cell sequence to enter; Cursor indexes the next cell, and Progress is
// movement already paid toward entering it.
type Caravan struct {
	ID       ID            `json:"id"`
	OriginID settlement.ID `json:"origin_id"` // the village it serves
	TargetID settlement.ID `json:"target_id"` // the village's liege town

	State    State           `json:"state"`
	Position terrain.Point   `json:"position"`
	Path     []terrain.Point `json:"path"`
	Cursor   int             `json:"cursor"`
	Progress int             `json:"progress"`

	Cargo    settlement.Resource `json:"cargo"`
	Quantity int                 `json:"quantity"`
}

// transition advances the state machine and panics on an illegal move;
// an illegal transition means the tick loop itself is broken.
func (c *Caravan) transition(next State) {
	if !c.State.CanTransition(next) {
		panic(fmt.Sprintf("caravan %d: illegal transition %s -> %s",
			c.ID, c.State.Name(), next.Name()))
	}
	c.State = next
}

// Arrived reports whether the caravan has entered the last cell of its
// current leg.
func (c *Caravan) Arrived() bool {
	return c.Cursor >= len(c.Path)
}

// Clone returns a deep copy that shares no state with the original.
func (c *Caravan) Clone() *Caravan {
	cp := *c
	cp.Path = make([]terrain.Point, len(c.Path))
	copy(cp.Path, c.Path)
	return &cp
}

// String returns a one-line summary.
func (c *Caravan) String() string {
	return fmt.Sprintf("caravan %d (%s, %d %s) at (%d,%d)",
		c.ID, c.State.Name(), c.Quantity, c.Cargo.Name(), c.Position.X, c.Position.Y)
}

// Config tunes caravan behavior.
type Config struct {
	// MovePerTick is the movement budget a caravan gains each tick.
	// Unspent budget carries toward the next cell, so cost-2 terrain
	// takes two ticks at the default rate.
	MovePerTick int `yaml:"move_per_tick"`
	// CargoQuantity is how much a village produces into a departing
	// caravan.
	CargoQuantity int `yaml:"cargo_quantity"`
	// StockCap halts shipments of a resource once the destination town
	// already holds this much of it.
	StockCap int `yaml:"stock_cap"`
}

// DefaultConfig returns the standard caravan parameters.
func DefaultConfig() Config {
	return Config{
		MovePerTick:   1,
		CargoQuantity: 10,
		StockCap:      1000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MovePerTick <= 0 {
		c.MovePerTick = d.MovePerTick
	}
	if c.CargoQuantity <= 0 {
		c.CargoQuantity = d.CargoQuantity
	}
	if c.StockCap <= 0 {
		c.StockCap = d.StockCap
	}
	return c
}
