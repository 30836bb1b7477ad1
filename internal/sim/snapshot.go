package sim

import (
	"fmt"
	"log/slog"

	"marchland/internal/caravan"
	"marchland/internal/economy"
	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

// Snapshot is the full saved state of a world. Terrain carries only the
// packed cell types; elevation is re-sampled from the effective seed on
// restore, so the snapshot stays compact without losing anything.
type Snapshot struct {
	Tick uint64 `json:"tick"`

	GenConfig     terrain.GenConfig `json:"gen_config"`
	EffectiveSeed int64             `json:"effective_seed"`
	TerrainTypes  []byte            `json:"terrain_types"`

	Settlements      []*settlement.Settlement `json:"settlements"`
	NextSettlementID settlement.ID            `json:"next_settlement_id"`
	GoodsPressed     uint64                   `json:"goods_pressed"`
	TributeDelivered uint64                   `json:"tribute_delivered"`

	CaravanConfig  caravan.Config     `json:"caravan_config"`
	Caravans       []*caravan.Caravan `json:"caravans"`
	NextCaravanID  caravan.ID         `json:"next_caravan_id"`
	RoundTrips     uint64             `json:"round_trips"`
	CargoDelivered uint64             `json:"cargo_delivered"`

	Events []Event `json:"events"`
}

// Snapshot captures the world state. Everything in the result is a copy;
// the world can keep ticking while the snapshot is written out.
func (w *World) Snapshot() *Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	pressed, tribute := w.eng.Totals()
	trips, cargo := w.ctl.Totals()

	events := make([]Event, len(w.events))
	copy(events, w.events)

	return &Snapshot{
		Tick:             w.tick,
		GenConfig:        w.genCfg,
		EffectiveSeed:    w.grid.Seed,
		TerrainTypes:     w.grid.PackTypes(),
		Settlements:      cloneSettlements(w.reg.All()),
		NextSettlementID: w.reg.NextID(),
		GoodsPressed:     pressed,
		TributeDelivered: tribute,
		CaravanConfig:    w.carCfg,
		Caravans:         w.ctl.All(),
		NextCaravanID:    w.ctl.NextID(),
		RoundTrips:       trips,
		CargoDelivered:   cargo,
		Events:           events,
	}
}

// Restore rebuilds a world from a snapshot. The result ticks forward
// exactly as the original would have.
func Restore(snap *Snapshot) (*World, error) {
	grid, err := terrain.Rebuild(snap.GenConfig, snap.EffectiveSeed, snap.TerrainTypes)
	if err != nil {
		return nil, fmt.Errorf("rebuilding terrain: %w", err)
	}

	reg := settlement.NewRegistry()
	for _, s := range snap.Settlements {
		if err := reg.Insert(s.Clone()); err != nil {
			return nil, fmt.Errorf("restoring settlements: %w", err)
		}
	}
	reg.SetNextID(snap.NextSettlementID)
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("restored hierarchy is inconsistent: %w", err)
	}

	w := &World{
		genCfg: snap.GenConfig,
		carCfg: snap.CaravanConfig,
		grid:   grid,
		reg:    reg,
		tick:   snap.Tick,
	}
	w.eng = economy.NewEngine(reg, w)
	w.eng.RestoreTotals(snap.GoodsPressed, snap.TributeDelivered)

	w.ctl = caravan.NewController(grid, reg, snap.CaravanConfig, w)
	if err := w.ctl.Restore(snap.Caravans, snap.NextCaravanID, snap.RoundTrips, snap.CargoDelivered); err != nil {
		return nil, fmt.Errorf("restoring caravans: %w", err)
	}

	w.events = make([]Event, len(snap.Events))
	copy(w.events, snap.Events)

	slog.Info("world restored",
		"tick", w.tick,
		"seed", grid.Seed,
		"settlements", reg.Len(),
		"caravans", w.ctl.Count())
	return w, nil
}
