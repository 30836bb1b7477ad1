// Package sim ties the world systems together and advances them in a
// fixed order each tick: villages first, then towns, then caravans on
// the road. All mutation happens inside Step; readers get copies.
package sim

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"marchland/internal/caravan"
	"marchland/internal/economy"
	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Event is a notable occurrence in the world.
type Event struct {
	Tick        uint64 `json:"tick"`
	Category    string `json:"category"` // "economy", "caravan", "world"
	Description string `json:"description"`
}

// Stats is an aggregate view of the world for logs and the API.
type Stats struct {
	Tick           uint64 `json:"tick"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Seed           int64  `json:"seed"`
	Cities         int    `json:"cities"`
	Towns          int    `json:"towns"`
	FreeTowns      int    `json:"free_towns"`
	Villages       int    `json:"villages"`
	CaravansActive int    `json:"caravans_active"`

	// Lifetime flow counters.
	GoodsPressed     uint64 `json:"goods_pressed"`
	TributeDelivered uint64 `json:"tribute_delivered"`
	CargoDelivered   uint64 `json:"cargo_delivered"`
	RoundTrips       uint64 `json:"round_trips"`
}

// World is the complete simulation state. A single mutex serializes Step
// against the read accessors; everything a reader gets back is a copy, so
// nothing escapes the lock.
type World struct {
	mu sync.RWMutex

	genCfg terrain.GenConfig
	carCfg caravan.Config

	grid *terrain.Grid
	reg  *settlement.Registry
	eng  *economy.Engine
	ctl  *caravan.Controller

	tick   uint64
	events []Event
}

// New generates a fresh world: terrain from the generation config, then
// the settlement hierarchy, then an empty road network of caravans.
func New(genCfg terrain.GenConfig, placeCfg settlement.PlaceConfig, carCfg caravan.Config) (*World, error) {
	grid := terrain.Generate(genCfg)

	reg, err := settlement.Place(grid, grid.Seed, placeCfg)
	if err != nil {
		return nil, fmt.Errorf("seeding settlements: %w", err)
	}

	w := &World{
		genCfg: genCfg,
		carCfg: carCfg,
		grid:   grid,
		reg:    reg,
	}
	w.eng = economy.NewEngine(reg, w)
	w.ctl = caravan.NewController(grid, reg, carCfg, w)

	slog.Info("world ready",
		"size", fmt.Sprintf("%dx%d", grid.Width, grid.Height),
		"seed", grid.Seed,
		"settlements", reg.Len())
	return w, nil
}

// Step advances the world by one tick.
func (w *World) Step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	econ := w.eng.Tick(w.ctl)
	move := w.ctl.Tick()

	slog.Debug("tick",
		"tick", w.tick,
		"spawned", econ.CaravansSpawned,
		"pressed", econ.GoodsPressed,
		"tribute", econ.TributeMoved,
		"deliveries", move.Deliveries,
		"came_home", move.Completed)
}

// Record appends an event at the current tick. It is called by the
// economy and caravan systems from inside Step, under the write lock.
func (w *World) Record(category, description string) {
	w.events = append(w.events, Event{
		Tick:        w.tick,
		Category:    category,
		Description: description,
	})
	if len(w.events) > maxEvents {
		w.events = w.events[len(w.events)-maxEvents:]
	}
}

// Tick returns the number of ticks processed.
func (w *World) Tick() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tick
}

// Size returns the grid dimensions.
func (w *World) Size() (width, height int) {
	return w.grid.Width, w.grid.Height
}

// Seed returns the effective generation seed.
func (w *World) Seed() int64 {
	return w.grid.Seed
}

// TerrainCounts returns the number of cells of each terrain type.
func (w *World) TerrainCounts() map[terrain.Type]int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.grid.Counts()
}

// TerrainAt returns the cell at (x, y).
func (w *World) TerrainAt(x, y int) (terrain.Cell, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.grid.At(x, y)
}

// RenderRegion draws a rectangular viewport as glyph rows, clamped to the
// grid.
func (w *World) RenderRegion(x, y, width, height int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	rows := make([]string, 0, height)
	for dy := 0; dy < height; dy++ {
		var b strings.Builder
		b.Grow(width)
		for dx := 0; dx < width; dx++ {
			b.WriteRune(w.grid.TypeAt(x+dx, y+dy).Glyph())
		}
		rows = append(rows, b.String())
	}
	return rows
}

// Settlements returns copies of every settlement in creation order.
func (w *World) Settlements() []*settlement.Settlement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneSettlements(w.reg.All())
}

// SettlementByID returns a copy of one settlement.
func (w *World) SettlementByID(id settlement.ID) (*settlement.Settlement, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.reg.Get(id)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// SettlementsNear returns copies of settlements within a square box
// around center.
func (w *World) SettlementsNear(center terrain.Point, radius int) []*settlement.Settlement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneSettlements(w.reg.Near(center, radius))
}

// VassalsOf returns copies of a settlement's direct vassals.
func (w *World) VassalsOf(id settlement.ID) []*settlement.Settlement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneSettlements(w.reg.VassalsOf(id))
}

// LiegeOf returns a copy of a settlement's liege, if it has one.
func (w *World) LiegeOf(id settlement.ID) (*settlement.Settlement, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	l, ok := w.reg.LiegeOf(id)
	if !ok {
		return nil, false
	}
	return l.Clone(), true
}

// Caravans returns copies of every caravan in flight.
func (w *World) Caravans() []*caravan.Caravan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctl.All()
}

// CaravansNear returns copies of caravans within a square box around
// center.
func (w *World) CaravansNear(center terrain.Point, radius int) []*caravan.Caravan {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.ctl.Near(center, radius)
}

// RecentEvents returns up to n of the latest events, oldest first.
func (w *World) RecentEvents(n int) []Event {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.events) {
		n = len(w.events)
	}
	out := make([]Event, n)
	copy(out, w.events[len(w.events)-n:])
	return out
}

// Stats returns the aggregate world view.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	counts := w.reg.Counts()
	freeTowns := 0
	for _, t := range w.reg.OfTier(settlement.TierTown) {
		if t.Town.LiegeID == 0 {
			freeTowns++
		}
	}
	pressed, tribute := w.eng.Totals()
	trips, cargo := w.ctl.Totals()

	return Stats{
		Tick:             w.tick,
		Width:            w.grid.Width,
		Height:           w.grid.Height,
		Seed:             w.grid.Seed,
		Cities:           counts[settlement.TierCity],
		Towns:            counts[settlement.TierTown],
		FreeTowns:        freeTowns,
		Villages:         counts[settlement.TierVillage],
		CaravansActive:   w.ctl.Count(),
		GoodsPressed:     pressed,
		TributeDelivered: tribute,
		CargoDelivered:   cargo,
		RoundTrips:       trips,
	}
}

func cloneSettlements(in []*settlement.Settlement) []*settlement.Settlement {
	out := make([]*settlement.Settlement, 0, len(in))
	for _, s := range in {
		out = append(out, s.Clone())
	}
	return out
}
