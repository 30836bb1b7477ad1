// Settlement placement: scores candidate cells, then seeds cities, towns,
// and villages in that order so the hierarchy forms top-down.

package settlement

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"marchland/internal/terrain"
)

// PlaceConfig controls how many settlements are seeded and how they space
// themselves out. Distances are in cells (Manhattan).
type PlaceConfig struct {
	Cities      int `yaml:"cities"`
	CityMinDist int `yaml:"city_min_dist"`

	Towns       int `yaml:"towns"`
	TownMinDist int `yaml:"town_min_dist"`
	LiegeRadius int `yaml:"liege_radius"` // max city-to-town fealty distance

	VillagesPerTown int `yaml:"villages_per_town"`
	VillageRadius   int `yaml:"village_radius"`
	VillageMinDist  int `yaml:"village_min_dist"`

	// Minimums below which placement fails rather than limping on.
	MinCities int `yaml:"min_cities"`
	MinTowns  int `yaml:"min_towns"`
}

// DefaultPlaceConfig returns placement parameters sized for the default
// 4000x1000 world.
func DefaultPlaceConfig() PlaceConfig {
	return PlaceConfig{
		Cities:          6,
		CityMinDist:     300,
		Towns:           60,
		TownMinDist:     50,
		LiegeRadius:     200,
		VillagesPerTown: 4,
		VillageRadius:   30,
		VillageMinDist:  8,
		MinCities:       1,
		MinTowns:        2,
	}
}

// SmallPlaceConfig returns placement parameters sized for the small test
// world.
func SmallPlaceConfig() PlaceConfig {
	return PlaceConfig{
		Cities:          3,
		CityMinDist:     40,
		Towns:           8,
		TownMinDist:     16,
		LiegeRadius:     60,
		VillagesPerTown: 4,
		VillageRadius:   12,
		VillageMinDist:  3,
		MinCities:       1,
		MinTowns:        2,
	}
}

func (c PlaceConfig) withDefaults() PlaceConfig {
	d := DefaultPlaceConfig()
	if c.Cities <= 0 {
		c.Cities = d.Cities
	}
	if c.CityMinDist <= 0 {
		c.CityMinDist = d.CityMinDist
	}
	if c.Towns <= 0 {
		c.Towns = d.Towns
	}
	if c.TownMinDist <= 0 {
		c.TownMinDist = d.TownMinDist
	}
	if c.LiegeRadius <= 0 {
		c.LiegeRadius = d.LiegeRadius
	}
	if c.VillagesPerTown <= 0 {
		c.VillagesPerTown = d.VillagesPerTown
	}
	if c.VillageRadius <= 0 {
		c.VillageRadius = d.VillageRadius
	}
	if c.VillageMinDist <= 0 {
		c.VillageMinDist = d.VillageMinDist
	}
	if c.MinCities <= 0 {
		c.MinCities = d.MinCities
	}
	if c.MinTowns <= 0 {
		c.MinTowns = d.MinTowns
	}
	return c
}

// ErrPlacement reports that the map could not host the configured
// settlement minimums. Callers are expected to regenerate the world or
// relax the config rather than treat this as fatal.
var ErrPlacement = errors.New("settlement placement failed")

// Place seeds the initial settlement hierarchy on a generated grid.
// The same grid, seed, and config always produce the same registry.
func Place(g *terrain.Grid, seed int64, cfg PlaceConfig) (*Registry, error) {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewSource(seed + 200))
	names := newNamer(rng)
	reg := NewRegistry()

	candidates := scoreCandidates(g)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no habitable cells on a %dx%d grid: %w",
			g.Width, g.Height, ErrPlacement)
	}

	// Cities claim the best sites, spread far apart.
	var cities []*Settlement
	for _, c := range candidates {
		if len(cities) >= cfg.Cities {
			break
		}
		if withinAny(c.pos, cities, cfg.CityMinDist) {
			continue
		}
		city := NewCity(reg.AllocateID(), names.next(TierCity), c.pos)
		if err := reg.Insert(city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}

	// Towns take the next tier of sites and swear to the nearest city in
	// range. Equidistant cities are broken toward the one with fewer
	// vassals, so fealty spreads evenly.
	vassals := make(map[ID]int)
	var towns []*Settlement
	freeTowns := 0
	for _, c := range candidates {
		if len(towns) >= cfg.Towns {
			break
		}
		if _, occupied := reg.At(c.pos); occupied {
			continue
		}
		if withinAny(c.pos, cities, cfg.TownMinDist) || withinAny(c.pos, towns, cfg.TownMinDist) {
			continue
		}
		liege := chooseLiege(c.pos, cities, vassals, cfg.LiegeRadius)
		town := NewTown(reg.AllocateID(), names.next(TierTown), c.pos, liege)
		if err := reg.Insert(town); err != nil {
			return nil, err
		}
		towns = append(towns, town)
		if liege == 0 {
			freeTowns++
		} else {
			vassals[liege]++
		}
	}

	// Villages ring each town, one per resource, sited on the terrain
	// that suits the resource best.
	villages := 0
	resources := Resources()
	for _, town := range towns {
		for i := 0; i < cfg.VillagesPerTown && i < len(resources); i++ {
			res := resources[i]
			pos, ok := bestVillageSite(g, reg, town.Position, res, cfg)
			if !ok {
				slog.Debug("no site for village",
					"town", town.Name, "resource", res.Name())
				continue
			}
			v := NewVillage(reg.AllocateID(), names.next(TierVillage), pos, res, town.ID)
			if err := reg.Insert(v); err != nil {
				return nil, err
			}
			villages++
		}
	}

	if len(cities) < cfg.MinCities || len(towns) < cfg.MinTowns {
		return nil, fmt.Errorf("placed %d cities and %d towns, need %d and %d: %w",
			len(cities), len(towns), cfg.MinCities, cfg.MinTowns, ErrPlacement)
	}

	slog.Info("settlements placed",
		"cities", len(cities), "towns", len(towns),
		"free_towns", freeTowns, "villages", villages, "seed", seed)
	return reg, nil
}

type scoredCell struct {
	pos   terrain.Point
	score float64
}

// scoreCandidates evaluates every habitable interior cell and returns them
// best-first. Equal scores order by coordinate so placement is stable.
func scoreCandidates(g *terrain.Grid) []scoredCell {
	var out []scoredCell
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			p := terrain.Point{X: x, Y: y}
			if s := settlementScore(g, p); s > 0 {
				out = append(out, scoredCell{p, s})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].pos.Y != out[j].pos.Y {
			return out[i].pos.Y < out[j].pos.Y
		}
		return out[i].pos.X < out[j].pos.X
	})
	return out
}

// settlementScore evaluates how desirable a cell is to settle. Prefers
// open grassland, varied surroundings, and water access for trade.
func settlementScore(g *terrain.Grid, p terrain.Point) float64 {
	score := 0.0
	switch g.TypeAt(p.X, p.Y) {
	case terrain.Grassland:
		score += 3.0
	case terrain.Forest:
		score += 1.5
	case terrain.Hills:
		score += 1.0
	case terrain.ForestedHills:
		score += 0.8
	default:
		return 0
	}

	diversity := make(map[terrain.Type]bool)
	water := false
	for _, n := range p.Neighbors8() {
		t := g.TypeAt(n.X, n.Y)
		if t.Passable() {
			diversity[t] = true
		}
		if t.Water() {
			water = true
		}
	}
	score += float64(len(diversity)) * 0.3
	if water {
		score += 2.0
	}
	return score
}

// withinAny reports whether pos lies within minDist of any listed
// settlement.
func withinAny(pos terrain.Point, among []*Settlement, minDist int) bool {
	for _, s := range among {
		if terrain.Manhattan(pos, s.Position) < minDist {
			return true
		}
	}
	return false
}

// chooseLiege picks the city a new town swears to: the nearest city within
// radius, breaking distance ties toward the city with fewer vassals, then
// toward the earlier-founded city. Returns zero when no city is in range.
func chooseLiege(pos terrain.Point, cities []*Settlement, vassals map[ID]int, radius int) ID {
	best := ID(0)
	bestDist := 0
	for _, city := range cities {
		d := terrain.Manhattan(pos, city.Position)
		if d > radius {
			continue
		}
		switch {
		case best == 0, d < bestDist:
			best, bestDist = city.ID, d
		case d == bestDist && vassals[city.ID] < vassals[best]:
			best = city.ID
		}
	}
	return best
}

// bestVillageSite finds the cell within the town's reach best suited to
// producing the given resource. Ties break toward the town, then by
// coordinate. A resource with no ideal terrain nearby still gets a site;
// only a fully occupied or impassable neighborhood fails.
func bestVillageSite(g *terrain.Grid, reg *Registry, town terrain.Point, res Resource, cfg PlaceConfig) (terrain.Point, bool) {
	var (
		best      terrain.Point
		bestScore = 0.0
		bestDist  = 0
		found     = false
	)
	for y := town.Y - cfg.VillageRadius; y <= town.Y+cfg.VillageRadius; y++ {
		for x := town.X - cfg.VillageRadius; x <= town.X+cfg.VillageRadius; x++ {
			p := terrain.Point{X: x, Y: y}
			d := terrain.Manhattan(p, town)
			if d == 0 || d > cfg.VillageRadius || !g.PassableAt(x, y) {
				continue
			}
			if _, occupied := reg.At(p); occupied {
				continue
			}
			if crowded(reg, p, cfg.VillageMinDist) {
				continue
			}
			score := resourceAffinity(g, p, res)
			if score <= 0 {
				continue
			}
			if !found || score > bestScore || (score == bestScore && d < bestDist) {
				best, bestScore, bestDist, found = p, score, d, true
			}
		}
	}
	return best, found
}

// crowded reports whether any settlement sits within minDist of p.
func crowded(reg *Registry, p terrain.Point, minDist int) bool {
	for _, s := range reg.Near(p, minDist) {
		if terrain.Manhattan(p, s.Position) < minDist {
			return true
		}
	}
	return false
}

// resourceAffinity scores a cell for hosting a village of one resource.
// Every passable cell gets a small floor so a village can still place on
// mediocre land when nothing better is in reach.
func resourceAffinity(g *terrain.Grid, p terrain.Point, res Resource) float64 {
	t := g.TypeAt(p.X, p.Y)
	if !t.Passable() {
		return 0
	}
	score := 0.2

	countNear := func(match func(terrain.Type) bool) int {
		n := 0
		for _, nb := range p.Neighbors8() {
			if match(g.TypeAt(nb.X, nb.Y)) {
				n++
			}
		}
		return n
	}

	switch res {
	case Lumber:
		switch t {
		case terrain.Forest:
			score += 3.0
		case terrain.ForestedHills:
			score += 2.5
		}
		score += 0.2 * float64(countNear(func(t terrain.Type) bool {
			return t == terrain.Forest || t == terrain.ForestedHills
		}))
	case FishAndFowl:
		if w := countNear(terrain.Type.Water); w > 0 {
			score += 3.0 + 0.2*float64(w)
		}
	case GrainAndLivestock:
		if t == terrain.Grassland {
			score += 3.0
		}
		score += 0.2 * float64(countNear(func(t terrain.Type) bool {
			return t == terrain.Grassland
		}))
	case Ore:
		switch t {
		case terrain.Hills:
			score += 3.0
		case terrain.ForestedHills:
			score += 2.0
		}
		score += 0.5 * float64(countNear(func(t terrain.Type) bool {
			return t == terrain.Mountain
		}))
	}
	return score
}
