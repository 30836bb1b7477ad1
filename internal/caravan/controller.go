package caravan

import (
	"errors"
	"fmt"
	"log/slog"

	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

// Recorder receives notable caravan happenings for the world event log.
type Recorder interface {
	Record(category, description string)
}

// Report summarizes one movement tick.
type Report struct {
	Deliveries     int // caravans that unloaded this tick
	UnitsDelivered int // total cargo units unloaded this tick
	Completed      int // caravans that made it home and disbanded
}

// Controller owns every caravan in flight. Spawning is gated per village,
// movement runs in caravan creation order, and all terrain decisions go
// through the pathfinder, so a run replays identically from the same
// state.
//
// Controller is not safe for concurrent use; the simulation serializes
// access around it.
type Controller struct {
	grid *terrain.Grid
	reg  *settlement.Registry
	cfg  Config
	rec  Recorder // may be nil

	active   []*Caravan
	byOrigin map[settlement.ID]*Caravan
	nextID   ID

	completed uint64 // lifetime round trips
	delivered uint64 // lifetime cargo units delivered
}

// NewController builds a controller over a generated grid and placed
// registry. rec may be nil.
func NewController(grid *terrain.Grid, reg *settlement.Registry, cfg Config, rec Recorder) *Controller {
	return &Controller{
		grid:     grid,
		reg:      reg,
		cfg:      cfg.withDefaults(),
		rec:      rec,
		byOrigin: make(map[settlement.ID]*Caravan),
		nextID:   1,
	}
}

// TrySpawn dispatches a caravan for a village if the trade gate allows:
// the village has no caravan out, and its town still wants the resource.
// An unreachable town is not an error; the village just waits for next
// tick.
func (ctl *Controller) TrySpawn(village *settlement.Settlement) bool {
	if village.Tier != settlement.TierVillage || village.Village == nil {
		panic(fmt.Sprintf("caravan: spawn requested for non-village %d", village.ID))
	}
	if _, busy := ctl.byOrigin[village.ID]; busy {
		return false
	}

	town, ok := ctl.reg.Get(village.Village.LiegeID)
	if !ok || town.Town == nil {
		panic(fmt.Sprintf("caravan: village %d supplies %d, which is not a town",
			village.ID, village.Village.LiegeID))
	}
	if town.Town.Stock.Amount(village.Village.Produces) >= ctl.cfg.StockCap {
		return false
	}

	path, err := terrain.FindPath(ctl.grid, village.Position, town.Position)
	if err != nil {
		if errors.Is(err, terrain.ErrNoPath) {
			slog.Debug("no route for caravan",
				"village", village.Name, "town", town.Name)
			return false
		}
		panic(fmt.Sprintf("caravan: pathfinding from %v: %v", village.Position, err))
	}

	c := &Caravan{
		ID:       ctl.nextID,
		OriginID: village.ID,
		TargetID: town.ID,
		State:    StateTraveling,
		Position: village.Position,
		Path:     path,
		Cargo:    village.Village.Produces,
		Quantity: ctl.cfg.CargoQuantity,
	}
	ctl.nextID++
	ctl.active = append(ctl.active, c)
	ctl.byOrigin[village.ID] = c

	ctl.record("caravan", fmt.Sprintf("%s sent a caravan with %d %s for %s",
		village.Name, c.Quantity, c.Cargo.Name(), town.Name))
	return true
}

// Tick advances every caravan by one tick's movement, in creation order.
func (ctl *Controller) Tick() Report {
	var rep Report
	survivors := ctl.active[:0]
	for _, c := range ctl.active {
		if ctl.step(c, &rep) {
			survivors = append(survivors, c)
		} else {
			delete(ctl.byOrigin, c.OriginID)
		}
	}
	// Zero the tail so disbanded caravans do not linger in the backing
	// array.
	for i := len(survivors); i < len(ctl.active); i++ {
		ctl.active[i] = nil
	}
	ctl.active = survivors
	return rep
}

// step spends one tick's movement budget on a caravan and resolves any
// arrival. Returns false once the caravan has disbanded.
func (ctl *Controller) step(c *Caravan, rep *Report) bool {
	budget := c.Progress + ctl.cfg.MovePerTick
	for !c.Arrived() {
		next := c.Path[c.Cursor]
		cost := ctl.grid.CostAt(next.X, next.Y)
		if cost <= 0 {
			panic(fmt.Sprintf("caravan %d: path crosses impassable cell (%d,%d)",
				c.ID, next.X, next.Y))
		}
		if budget < cost {
			break
		}
		budget -= cost
		c.Position = next
		c.Cursor++
	}

	if !c.Arrived() {
		c.Progress = budget
		return true
	}

	// Leftover budget is forfeited at a leg boundary.
	c.Progress = 0
	switch c.State {
	case StateTraveling:
		ctl.deliver(c, rep)
		return true
	case StateReturning:
		ctl.complete(c, rep)
		return false
	default:
		panic(fmt.Sprintf("caravan %d: arrived in state %s", c.ID, c.State.Name()))
	}
}

// deliver unloads into the town and turns the caravan around. Unloading
// is instantaneous; the homeward leg starts next tick.
func (ctl *Controller) deliver(c *Caravan, rep *Report) {
	town, ok := ctl.reg.Get(c.TargetID)
	if !ok || town.Town == nil {
		panic(fmt.Sprintf("caravan %d: destination %d is not a town", c.ID, c.TargetID))
	}
	origin, ok := ctl.reg.Get(c.OriginID)
	if !ok {
		panic(fmt.Sprintf("caravan %d: origin village %d vanished", c.ID, c.OriginID))
	}

	c.transition(StateDelivering)
	town.Town.Stock.Add(c.Cargo, c.Quantity)
	ctl.delivered += uint64(c.Quantity)
	rep.Deliveries++
	rep.UnitsDelivered += c.Quantity

	ctl.record("caravan", fmt.Sprintf("%s received %d %s from %s",
		town.Name, c.Quantity, c.Cargo.Name(), origin.Name))

	c.transition(StateReturning)
	c.Path = returnLeg(c.Path, origin.Position)
	c.Cursor = 0
	c.Quantity = 0
}

// complete disbands a caravan that has made it home.
func (ctl *Controller) complete(c *Caravan, rep *Report) {
	ctl.completed++
	rep.Completed++
	if origin, ok := ctl.reg.Get(c.OriginID); ok {
		slog.Debug("caravan disbanded", "village", origin.Name, "caravan", c.ID)
	}
}

// returnLeg reverses an outbound path: drop the destination cell, walk
// the remainder backward, and finish on the origin cell.
func returnLeg(outbound []terrain.Point, origin terrain.Point) []terrain.Point {
	home := make([]terrain.Point, 0, len(outbound))
	for i := len(outbound) - 2; i >= 0; i-- {
		home = append(home, outbound[i])
	}
	return append(home, origin)
}

// HasActive reports whether a village currently has a caravan out.
func (ctl *Controller) HasActive(origin settlement.ID) bool {
	_, busy := ctl.byOrigin[origin]
	return busy
}

// Count returns the number of caravans in flight.
func (ctl *Controller) Count() int {
	return len(ctl.active)
}

// All returns deep copies of every caravan in creation order.
func (ctl *Controller) All() []*Caravan {
	out := make([]*Caravan, 0, len(ctl.active))
	for _, c := range ctl.active {
		out = append(out, c.Clone())
	}
	return out
}

// Near returns deep copies of caravans within a square box of the given
// radius, in creation order.
func (ctl *Controller) Near(center terrain.Point, radius int) []*Caravan {
	var out []*Caravan
	for _, c := range ctl.active {
		dx := c.Position.X - center.X
		dy := c.Position.Y - center.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx <= radius && dy <= radius {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Totals returns the lifetime round trips completed and cargo units
// delivered.
func (ctl *Controller) Totals() (completed, delivered uint64) {
	return ctl.completed, ctl.delivered
}

// NextID returns the next caravan ID that a spawn would use.
func (ctl *Controller) NextID() ID {
	return ctl.nextID
}

// Restore reinstates in-flight caravans and counters from a saved world.
func (ctl *Controller) Restore(caravans []*Caravan, nextID ID, completed, delivered uint64) error {
	ctl.active = ctl.active[:0]
	ctl.byOrigin = make(map[settlement.ID]*Caravan, len(caravans))
	for _, c := range caravans {
		if _, ok := ctl.reg.Get(c.OriginID); !ok {
			return fmt.Errorf("caravan %d: origin village %d not in registry", c.ID, c.OriginID)
		}
		if _, dup := ctl.byOrigin[c.OriginID]; dup {
			return fmt.Errorf("village %d has two caravans in flight", c.OriginID)
		}
		if c.State == StateDelivering {
			return fmt.Errorf("caravan %d saved mid-delivery", c.ID)
		}
		cp := c.Clone()
		ctl.active = append(ctl.active, cp)
		ctl.byOrigin[cp.OriginID] = cp
		if cp.ID >= ctl.nextID {
			ctl.nextID = cp.ID + 1
		}
	}
	if nextID > ctl.nextID {
		ctl.nextID = nextID
	}
	ctl.completed = completed
	ctl.delivered = delivered
	return nil
}

func (ctl *Controller) record(category, description string) {
	if ctl.rec != nil {
		ctl.rec.Record(category, description)
	}
}
