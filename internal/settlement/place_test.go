package settlement

import (
	"errors"
	"testing"

	"marchland/internal/terrain"
)

func placedWorld(t *testing.T) (*terrain.Grid, *Registry, PlaceConfig) {
	t.Helper()
	g := terrain.Generate(terrain.SmallGenConfig())
	cfg := SmallPlaceConfig()
	reg, err := Place(g, 42, cfg)
	if err != nil {
		t.Fatalf("Place() failed: %v", err)
	}
	return g, reg, cfg
}

func TestPlaceDeterministic(t *testing.T) {
	g := terrain.Generate(terrain.SmallGenConfig())
	cfg := SmallPlaceConfig()

	r1, err := Place(g, 42, cfg)
	if err != nil {
		t.Fatalf("Place() failed: %v", err)
	}
	r2, err := Place(g, 42, cfg)
	if err != nil {
		t.Fatalf("Place() failed: %v", err)
	}

	a, b := r1.All(), r2.All()
	if len(a) != len(b) {
		t.Fatalf("runs placed %d vs %d settlements", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name ||
			a[i].Tier != b[i].Tier || a[i].Position != b[i].Position {
			t.Fatalf("settlement %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestPlaceHierarchy(t *testing.T) {
	_, reg, cfg := placedWorld(t)

	if err := reg.Validate(); err != nil {
		t.Fatalf("Validate() failed on a placed registry: %v", err)
	}
	counts := reg.Counts()
	if counts[TierCity] < cfg.MinCities || counts[TierCity] > cfg.Cities {
		t.Fatalf("placed %d cities, want between %d and %d", counts[TierCity], cfg.MinCities, cfg.Cities)
	}
	if counts[TierTown] < cfg.MinTowns || counts[TierTown] > cfg.Towns {
		t.Fatalf("placed %d towns, want between %d and %d", counts[TierTown], cfg.MinTowns, cfg.Towns)
	}
	if counts[TierVillage] == 0 {
		t.Fatal("no villages placed")
	}
	if counts[TierVillage] > counts[TierTown]*cfg.VillagesPerTown {
		t.Fatalf("placed %d villages for %d towns", counts[TierVillage], counts[TierTown])
	}

	for _, s := range reg.All() {
		liege, has := s.LiegeID()
		if !has {
			continue
		}
		l, ok := reg.Get(liege)
		if !ok {
			t.Fatalf("%s swears to missing liege %d", s.Name, liege)
		}
		d := terrain.Manhattan(s.Position, l.Position)
		switch s.Tier {
		case TierTown:
			if d > cfg.LiegeRadius {
				t.Fatalf("town %s is %d cells from its city, beyond radius %d", s.Name, d, cfg.LiegeRadius)
			}
		case TierVillage:
			if d > cfg.VillageRadius {
				t.Fatalf("village %s is %d cells from its town, beyond radius %d", s.Name, d, cfg.VillageRadius)
			}
		}
	}
}

func TestPlaceSeparationAndFooting(t *testing.T) {
	g, reg, cfg := placedWorld(t)

	all := reg.All()
	for i, s := range all {
		if !g.PassableAt(s.Position.X, s.Position.Y) {
			t.Fatalf("%s %s sits on impassable %s", s.Tier.Name(), s.Name,
				g.TypeAt(s.Position.X, s.Position.Y).Name())
		}
		for _, other := range all[i+1:] {
			if s.Position == other.Position {
				t.Fatalf("%s and %s share a cell", s.Name, other.Name)
			}
			d := terrain.Manhattan(s.Position, other.Position)
			if s.Tier == TierCity && other.Tier == TierCity && d < cfg.CityMinDist {
				t.Fatalf("cities %s and %s are %d apart, min %d", s.Name, other.Name, d, cfg.CityMinDist)
			}
			if s.Tier == TierTown && other.Tier == TierTown && d < cfg.TownMinDist {
				t.Fatalf("towns %s and %s are %d apart, min %d", s.Name, other.Name, d, cfg.TownMinDist)
			}
		}
	}
}

func TestPlaceVillageResourcesDistinct(t *testing.T) {
	_, reg, _ := placedWorld(t)

	for _, town := range reg.OfTier(TierTown) {
		seen := make(map[Resource]bool)
		for _, v := range reg.VassalsOf(town.ID) {
			if v.Tier != TierVillage {
				continue
			}
			if seen[v.Village.Produces] {
				t.Fatalf("town %s has two %s villages", town.Name, v.Village.Produces.Name())
			}
			seen[v.Village.Produces] = true
		}
	}
}

func TestPlaceNamesUnique(t *testing.T) {
	_, reg, _ := placedWorld(t)
	seen := make(map[string]bool)
	for _, s := range reg.All() {
		if s.Name == "" {
			t.Fatalf("settlement %d has no name", s.ID)
		}
		if seen[s.Name] {
			t.Fatalf("name %q used twice", s.Name)
		}
		seen[s.Name] = true
	}
}

func TestPlaceFailsOnBarrenMap(t *testing.T) {
	g := terrain.ParseMap(`
MMMMMMMM
MMMMMMMM
MMMMMMMM
MMMMMMMM
`)
	if _, err := Place(g, 1, SmallPlaceConfig()); !errors.Is(err, ErrPlacement) {
		t.Fatalf("Place() on barren rock: err = %v, want ErrPlacement", err)
	}
}

func TestChooseLiege(t *testing.T) {
	near := NewCity(1, "Nearhold", terrain.Point{X: 0, Y: 10})
	far := NewCity(2, "Fargate", terrain.Point{X: 20, Y: 10})
	cities := []*Settlement{near, far}

	if got := chooseLiege(terrain.Point{X: 4, Y: 10}, cities, map[ID]int{}, 60); got != near.ID {
		t.Fatalf("chooseLiege(closer to Nearhold) = %d, want %d", got, near.ID)
	}

	// Equidistant: the city with fewer vassals wins.
	mid := terrain.Point{X: 10, Y: 10}
	if got := chooseLiege(mid, cities, map[ID]int{near.ID: 3, far.ID: 1}, 60); got != far.ID {
		t.Fatalf("chooseLiege(equidistant, Fargate lighter) = %d, want %d", got, far.ID)
	}
	// Equidistant and equally loaded: the earlier-founded city wins.
	if got := chooseLiege(mid, cities, map[ID]int{near.ID: 2, far.ID: 2}, 60); got != near.ID {
		t.Fatalf("chooseLiege(equidistant, tied) = %d, want %d", got, near.ID)
	}
	// Out of range of every city: a free town.
	if got := chooseLiege(terrain.Point{X: 500, Y: 500}, cities, map[ID]int{}, 60); got != 0 {
		t.Fatalf("chooseLiege(beyond radius) = %d, want 0", got)
	}
}

func TestResourceAffinityFollowsTerrain(t *testing.T) {
	g := terrain.ParseMap(`
.....
.fhw.
.....
`)
	cases := []struct {
		res           Resource
		better, worse terrain.Point
	}{
		{Lumber, terrain.Point{X: 1, Y: 1}, terrain.Point{X: 4, Y: 0}},
		{FishAndFowl, terrain.Point{X: 2, Y: 0}, terrain.Point{X: 0, Y: 0}},
		{GrainAndLivestock, terrain.Point{X: 0, Y: 2}, terrain.Point{X: 1, Y: 1}},
		{Ore, terrain.Point{X: 2, Y: 1}, terrain.Point{X: 0, Y: 2}},
	}
	for _, c := range cases {
		hi := resourceAffinity(g, c.better, c.res)
		lo := resourceAffinity(g, c.worse, c.res)
		if hi <= lo {
			t.Fatalf("%s: affinity at %v = %v, at %v = %v; want the first higher",
				c.res.Name(), c.better, hi, c.worse, lo)
		}
		if lo <= 0 {
			t.Fatalf("%s: affinity at %v = %v, want a positive floor on passable ground",
				c.res.Name(), c.worse, lo)
		}
	}

	if got := resourceAffinity(g, terrain.Point{X: 3, Y: 1}, FishAndFowl); got != 0 {
		t.Fatalf("affinity on water = %v, want 0", got)
	}
}
