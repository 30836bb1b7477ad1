package sim

import (
	"testing"

	"marchland/internal/caravan"
	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

func smallWorld(t *testing.T) *World {
	t.Helper()
	w, err := New(terrain.SmallGenConfig(), settlement.SmallPlaceConfig(), caravan.DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return w
}

// sameWorlds compares the observable state of two worlds.
func sameWorlds(t *testing.T, a, b *World) {
	t.Helper()
	if a.Stats() != b.Stats() {
		t.Fatalf("stats differ:\n%+v\n%+v", a.Stats(), b.Stats())
	}

	as, bs := a.Settlements(), b.Settlements()
	if len(as) != len(bs) {
		t.Fatalf("settlement counts differ: %d vs %d", len(as), len(bs))
	}
	for i := range as {
		x, y := as[i], bs[i]
		if x.ID != y.ID || x.Name != y.Name || x.Tier != y.Tier || x.Position != y.Position {
			t.Fatalf("settlement %d differs: %v vs %v", i, x, y)
		}
		switch x.Tier {
		case settlement.TierTown:
			if *x.Town != *y.Town {
				t.Fatalf("town %s differs: %+v vs %+v", x.Name, *x.Town, *y.Town)
			}
		case settlement.TierCity:
			if *x.City != *y.City {
				t.Fatalf("city %s differs: %+v vs %+v", x.Name, *x.City, *y.City)
			}
		case settlement.TierVillage:
			if *x.Village != *y.Village {
				t.Fatalf("village %s differs: %+v vs %+v", x.Name, *x.Village, *y.Village)
			}
		}
	}

	ac, bc := a.Caravans(), b.Caravans()
	if len(ac) != len(bc) {
		t.Fatalf("caravan counts differ: %d vs %d", len(ac), len(bc))
	}
	for i := range ac {
		x, y := ac[i], bc[i]
		if x.ID != y.ID || x.State != y.State || x.Position != y.Position ||
			x.Cursor != y.Cursor || x.Progress != y.Progress || x.Quantity != y.Quantity {
			t.Fatalf("caravan %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestWorldDeterministic(t *testing.T) {
	w1 := smallWorld(t)
	w2 := smallWorld(t)

	for i := 0; i < 40; i++ {
		w1.Step()
		w2.Step()
	}
	sameWorlds(t, w1, w2)
}

func TestStepAdvancesEconomy(t *testing.T) {
	w := smallWorld(t)
	if w.Tick() != 0 {
		t.Fatalf("fresh world at tick %d", w.Tick())
	}

	for i := 0; i < 60; i++ {
		w.Step()
	}
	if w.Tick() != 60 {
		t.Fatalf("Tick() = %d after 60 steps", w.Tick())
	}

	st := w.Stats()
	if st.CaravansActive == 0 && st.CargoDelivered == 0 {
		t.Fatal("no caravans moved in 60 ticks of a populated world")
	}
	if len(w.RecentEvents(0)) == 0 {
		t.Fatal("no events recorded in 60 ticks")
	}
}

func TestSnapshotRestoreContinuesIdentically(t *testing.T) {
	w := smallWorld(t)
	for i := 0; i < 50; i++ {
		w.Step()
	}

	snap := w.Snapshot()
	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	sameWorlds(t, w, restored)

	for i := 0; i < 25; i++ {
		w.Step()
		restored.Step()
	}
	sameWorlds(t, w, restored)
}

func TestSnapshotIsDetached(t *testing.T) {
	w := smallWorld(t)
	for i := 0; i < 10; i++ {
		w.Step()
	}

	snap := w.Snapshot()
	tickAtSave := snap.Tick
	var stockAtSave int
	for _, s := range snap.Settlements {
		if s.Tier == settlement.TierTown {
			stockAtSave = s.Town.Stock.Total()
			break
		}
	}

	for i := 0; i < 30; i++ {
		w.Step()
	}

	if snap.Tick != tickAtSave {
		t.Fatalf("snapshot tick moved to %d", snap.Tick)
	}
	for _, s := range snap.Settlements {
		if s.Tier == settlement.TierTown {
			if s.Town.Stock.Total() != stockAtSave {
				t.Fatal("stepping the world mutated a snapshot settlement")
			}
			break
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	w := smallWorld(t)

	all := w.Settlements()
	if len(all) == 0 {
		t.Fatal("no settlements")
	}
	var town *settlement.Settlement
	for _, s := range all {
		if s.Tier == settlement.TierTown {
			town = s
			break
		}
	}
	if town == nil {
		t.Fatal("no towns placed")
	}

	town.Town.Stock.Add(settlement.Ore, 9999)
	town.Name = "Vandalized"

	fresh, ok := w.SettlementByID(town.ID)
	if !ok {
		t.Fatalf("SettlementByID(%d) lost the town", town.ID)
	}
	if fresh.Name == "Vandalized" || fresh.Town.Stock.Amount(settlement.Ore) == 9999 {
		t.Fatal("mutating an accessor result reached the live world")
	}
}

func TestRecentEventsWindow(t *testing.T) {
	w := smallWorld(t)
	for i := 0; i < 40; i++ {
		w.Step()
	}

	all := w.RecentEvents(0)
	if len(all) == 0 {
		t.Fatal("no events after 40 ticks")
	}
	for i := 1; i < len(all); i++ {
		if all[i].Tick < all[i-1].Tick {
			t.Fatalf("events out of order at %d: %v then %v", i, all[i-1], all[i])
		}
	}

	if len(all) >= 5 {
		last5 := w.RecentEvents(5)
		if len(last5) != 5 {
			t.Fatalf("RecentEvents(5) returned %d", len(last5))
		}
		if last5[4] != all[len(all)-1] {
			t.Fatal("RecentEvents(5) did not end at the newest event")
		}
	}
}

func TestRenderRegion(t *testing.T) {
	w := smallWorld(t)

	rows := w.RenderRegion(0, 0, 10, 4)
	if len(rows) != 4 {
		t.Fatalf("RenderRegion returned %d rows, want 4", len(rows))
	}
	for _, row := range rows {
		if len(row) != 10 {
			t.Fatalf("row %q has width %d, want 10", row, len(row))
		}
	}
	// The top-left corner is the sealed border.
	if rows[0][0] != '#' {
		t.Fatalf("corner glyph = %q, want '#'", rows[0][0])
	}

	// A viewport hanging off the map renders border glyphs, not a panic.
	outside := w.RenderRegion(-5, -5, 3, 3)
	for _, row := range outside {
		if row != "###" {
			t.Fatalf("out-of-bounds row = %q, want ###", row)
		}
	}
}
