// Package economy drives the per-tick flow of goods up the settlement
// hierarchy: villages ship raw resources to their towns, towns press
// stockpiles into trade goods, and trade goods flow on to the cities
// as tribute.
package economy

import (
	"fmt"
	"log/slog"

	"marchland/internal/settlement"
)

const (
	// ConversionUnit is how much of each resource a town consumes to
	// press one unit of trade goods.
	ConversionUnit = 100
	// TributeUnit is the size of one tribute shipment to a liege city.
	TributeUnit = 10
)

// Spawner dispatches a supply caravan for a village when its trade gate
// allows one. Implemented by the caravan controller.
type Spawner interface {
	TrySpawn(village *settlement.Settlement) bool
}

// Recorder receives notable economy happenings for the world event log.
type Recorder interface {
	Record(category, description string)
}

// Report summarizes one economy tick.
type Report struct {
	CaravansSpawned int
	GoodsPressed    int // trade goods created by town conversion
	TributeMoved    int // trade goods shipped to cities
}

// Engine owns the per-tick economy pass over the registry. Villages are
// evaluated before towns, each tier in creation order, so a run replays
// identically from the same state.
type Engine struct {
	reg *settlement.Registry
	rec Recorder // may be nil

	pressed uint64 // lifetime trade goods pressed
	tribute uint64 // lifetime trade goods delivered to cities
}

// NewEngine builds an economy engine over a registry. rec may be nil.
func NewEngine(reg *settlement.Registry, rec Recorder) *Engine {
	return &Engine{reg: reg, rec: rec}
}

// Tick runs one economy pass: every village gets a spawn evaluation, then
// every town converts and pays tribute. Cities only receive; they never
// act.
func (e *Engine) Tick(spawner Spawner) Report {
	var rep Report

	if spawner != nil {
		for _, v := range e.reg.OfTier(settlement.TierVillage) {
			if spawner.TrySpawn(v) {
				rep.CaravansSpawned++
			}
		}
	}

	for _, t := range e.reg.OfTier(settlement.TierTown) {
		rep.GoodsPressed += e.convert(t)
		rep.TributeMoved += e.payTribute(t)
	}
	return rep
}

// convert presses trade goods while the town holds a full conversion unit
// of every resource.
func (e *Engine) convert(town *settlement.Settlement) int {
	pressedNow := 0
	for town.Town.Stock.AllAtLeast(ConversionUnit) {
		for _, r := range settlement.Resources() {
			town.Town.Stock.Add(r, -ConversionUnit)
		}
		town.Town.TradeGoods++
		pressedNow++
	}
	if pressedNow > 0 {
		e.pressed += uint64(pressedNow)
		e.record("economy", fmt.Sprintf("%s pressed %d trade goods", town.Name, pressedNow))
		slog.Debug("trade goods pressed", "town", town.Name, "count", pressedNow)
	}
	return pressedNow
}

// payTribute ships trade goods to the town's liege city in tribute-sized
// lots. Free towns accumulate instead.
func (e *Engine) payTribute(town *settlement.Settlement) int {
	liegeID := town.Town.LiegeID
	if liegeID == 0 {
		return 0
	}
	liege, ok := e.reg.Get(liegeID)
	if !ok || liege.City == nil {
		panic(fmt.Sprintf("economy: town %d pays tribute to %d, which is not a city", town.ID, liegeID))
	}

	moved := 0
	for town.Town.TradeGoods >= TributeUnit {
		town.Town.TradeGoods -= TributeUnit
		liege.City.TradeGoods += TributeUnit
		moved += TributeUnit
	}
	if moved > 0 {
		e.tribute += uint64(moved)
		e.record("economy", fmt.Sprintf("%s sent %d trade goods to %s", town.Name, moved, liege.Name))
		slog.Debug("tribute paid", "town", town.Name, "city", liege.Name, "moved", moved)
	}
	return moved
}

// Totals returns the lifetime trade goods pressed and paid as tribute.
func (e *Engine) Totals() (pressed, tribute uint64) {
	return e.pressed, e.tribute
}

// RestoreTotals reinstates lifetime counters when loading a saved world.
func (e *Engine) RestoreTotals(pressed, tribute uint64) {
	e.pressed = pressed
	e.tribute = tribute
}

func (e *Engine) record(category, description string) {
	if e.rec != nil {
		e.rec.Record(category, description)
	}
}
