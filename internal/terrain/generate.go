// Terrain generation: layered simplex elevation, percentile-banded
// classification, coastline smoothing, river and lake carving, forest
// growth near water, and a sealed border ring.
package terrain

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"marchland/internal/entropy"
	"marchland/internal/noise"
)

// GenConfig holds terrain generation parameters. Zero values fall back to
// the defaults, so partial configs stay usable.
type GenConfig struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"` // 0 = random

	// Elevation field shape.
	ElevFrequency   float64 `yaml:"elev_frequency"`
	ElevOctaves     int     `yaml:"elev_octaves"`
	ElevPersistence float64 `yaml:"elev_persistence"`
	ElevExponent    float64 `yaml:"elev_exponent"` // shaping power, <1 favors lowlands

	// Percentile cut points for the ascending terrain bands. Each names the
	// top of its band; cells above the last cut become mountain.
	DeepWaterPct     float64 `yaml:"deep_water_pct"`
	ShallowWaterPct  float64 `yaml:"shallow_water_pct"`
	GrasslandPct     float64 `yaml:"grassland_pct"`
	ForestPct        float64 `yaml:"forest_pct"`
	HillsPct         float64 `yaml:"hills_pct"`
	ForestedHillsPct float64 `yaml:"forested_hills_pct"`

	// River and lake carving.
	Rivers        int     `yaml:"rivers"`          // 0 = derived from map area
	RiverMaxSteps int     `yaml:"river_max_steps"` // 0 = width+height
	LakeTolerance float64 `yaml:"lake_tolerance"`  // waterline above a pit
	LakeMaxSize   int     `yaml:"lake_max_size"`
	LakeDeepSize  int     `yaml:"lake_deep_size"` // basins this large get a deep interior

	// Forest growth near water.
	ForestFrequency   float64 `yaml:"forest_frequency"`
	ForestOctaves     int     `yaml:"forest_octaves"`
	ForestPersistence float64 `yaml:"forest_persistence"`
	ForestThreshold   float64 `yaml:"forest_threshold"`
	ForestWaterRange  int     `yaml:"forest_water_range"`

	// Degenerate-map guard.
	MinPassableFrac float64 `yaml:"min_passable_frac"`
	RegenAttempts   int     `yaml:"regen_attempts"`
}

// DefaultGenConfig returns the full-size world parameters.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:  4000,
		Height: 1000,

		ElevFrequency:   0.002,
		ElevOctaves:     8,
		ElevPersistence: 0.7,
		ElevExponent:    0.85,

		DeepWaterPct:     0.40,
		ShallowWaterPct:  0.45,
		GrasslandPct:     0.72,
		ForestPct:        0.85,
		HillsPct:         0.93,
		ForestedHillsPct: 0.97,

		RiverMaxSteps: 0,
		LakeTolerance: 0.02,
		LakeMaxSize:   4000,
		LakeDeepSize:  48,

		ForestFrequency:   0.02,
		ForestOctaves:     4,
		ForestPersistence: 0.6,
		ForestThreshold:   0.65,
		ForestWaterRange:  12,

		MinPassableFrac: 0.30,
		RegenAttempts:   3,
	}
}

// SmallGenConfig returns a compact world for tests and rapid iteration.
// The higher base frequency keeps terrain variety at small sizes.
func SmallGenConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 192
	cfg.Height = 96
	cfg.Seed = 42
	cfg.ElevFrequency = 0.02
	return cfg
}

func (c GenConfig) withDefaults() GenConfig {
	d := DefaultGenConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.ElevFrequency <= 0 {
		c.ElevFrequency = d.ElevFrequency
	}
	if c.ElevOctaves <= 0 {
		c.ElevOctaves = d.ElevOctaves
	}
	if c.ElevPersistence <= 0 {
		c.ElevPersistence = d.ElevPersistence
	}
	if c.ElevExponent <= 0 {
		c.ElevExponent = d.ElevExponent
	}
	if c.DeepWaterPct <= 0 {
		c.DeepWaterPct = d.DeepWaterPct
	}
	if c.ShallowWaterPct <= 0 {
		c.ShallowWaterPct = d.ShallowWaterPct
	}
	if c.GrasslandPct <= 0 {
		c.GrasslandPct = d.GrasslandPct
	}
	if c.ForestPct <= 0 {
		c.ForestPct = d.ForestPct
	}
	if c.HillsPct <= 0 {
		c.HillsPct = d.HillsPct
	}
	if c.ForestedHillsPct <= 0 {
		c.ForestedHillsPct = d.ForestedHillsPct
	}
	if c.RiverMaxSteps <= 0 {
		c.RiverMaxSteps = c.Width + c.Height
	}
	if c.LakeTolerance <= 0 {
		c.LakeTolerance = d.LakeTolerance
	}
	if c.LakeMaxSize <= 0 {
		c.LakeMaxSize = d.LakeMaxSize
	}
	if c.LakeDeepSize <= 0 {
		c.LakeDeepSize = d.LakeDeepSize
	}
	if c.ForestFrequency <= 0 {
		c.ForestFrequency = d.ForestFrequency
	}
	if c.ForestOctaves <= 0 {
		c.ForestOctaves = d.ForestOctaves
	}
	if c.ForestPersistence <= 0 {
		c.ForestPersistence = d.ForestPersistence
	}
	if c.ForestThreshold <= 0 {
		c.ForestThreshold = d.ForestThreshold
	}
	if c.ForestWaterRange <= 0 {
		c.ForestWaterRange = d.ForestWaterRange
	}
	if c.MinPassableFrac <= 0 {
		c.MinPassableFrac = d.MinPassableFrac
	}
	if c.RegenAttempts <= 0 {
		c.RegenAttempts = d.RegenAttempts
	}
	return c
}

// Generate creates a complete grid from the configuration. Generation is
// fully reproducible from (seed, width, height, parameters). A map whose
// interior falls below the passable-fraction floor is regenerated with a
// perturbed seed, up to the retry budget; the best attempt is kept if every
// retry stays degenerate. The grid's Seed field records the seed actually
// used.
func Generate(cfg GenConfig) *Grid {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.Seed()
	}

	var best *Grid
	bestFrac := -1.0
	for attempt := 0; attempt <= cfg.RegenAttempts; attempt++ {
		effective := seed + int64(attempt)
		g := generateOnce(cfg, effective)
		frac := g.PassableFraction()
		if frac >= cfg.MinPassableFrac {
			slog.Info("terrain generated",
				"width", g.Width, "height", g.Height,
				"seed", effective, "passable", frac)
			return g
		}
		slog.Warn("degenerate terrain, regenerating with perturbed seed",
			"seed", effective, "passable", frac, "attempt", attempt)
		if frac > bestFrac {
			best = g
			bestFrac = frac
		}
	}

	slog.Warn("terrain still degenerate after retries, keeping best attempt",
		"seed", best.Seed, "passable", bestFrac)
	return best
}

func generateOnce(cfg GenConfig, seed int64) *Grid {
	g := NewGrid(cfg.Width, cfg.Height)
	g.Seed = seed

	sampleElevation(g, cfg, seed)

	b := elevationBands(g, cfg)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			g.SetType(x, y, classify(g.ElevationAt(x, y), b))
		}
	}

	smoothCoastlines(g, 2)
	carveRivers(g, b, cfg, seed)
	growForests(g, cfg, seed)
	sealBorders(g)
	pruneOrphanRivers(g)

	return g
}

// sampleElevation fills every cell with the shaped elevation field value.
func sampleElevation(g *Grid, cfg GenConfig, seed int64) {
	field := noise.New(seed, noise.Params{
		Frequency:   cfg.ElevFrequency,
		Octaves:     cfg.ElevOctaves,
		Persistence: cfg.ElevPersistence,
	})
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			e := math.Pow(field.Sample(float64(x), float64(y)), cfg.ElevExponent)
			g.SetElevation(x, y, e)
		}
	}
}

// bands holds the elevation cut at the top of each ascending terrain band.
type bands struct {
	deep, shallow, grass, forest, hills, forested float64
}

// elevationBands derives the band cuts from the observed elevation
// distribution at the configured percentiles. Adjacent cuts are pushed
// apart by at least 5% of the observed range so a flat distribution cannot
// collapse bands into each other.
func elevationBands(g *Grid, cfg GenConfig) bands {
	elevs := make([]float64, 0, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			elevs = append(elevs, g.ElevationAt(x, y))
		}
	}
	sort.Float64s(elevs)

	cut := func(pct float64) float64 {
		i := int(pct * float64(len(elevs)))
		if i < 0 {
			i = 0
		}
		if i >= len(elevs) {
			i = len(elevs) - 1
		}
		return elevs[i]
	}

	spacing := 0.05 * (elevs[len(elevs)-1] - elevs[0])
	cuts := []float64{
		cut(cfg.DeepWaterPct),
		cut(cfg.ShallowWaterPct),
		cut(cfg.GrasslandPct),
		cut(cfg.ForestPct),
		cut(cfg.HillsPct),
		cut(cfg.ForestedHillsPct),
	}
	for i := 1; i < len(cuts); i++ {
		if cuts[i] < cuts[i-1]+spacing {
			cuts[i] = cuts[i-1] + spacing
		}
	}

	return bands{
		deep:     cuts[0],
		shallow:  cuts[1],
		grass:    cuts[2],
		forest:   cuts[3],
		hills:    cuts[4],
		forested: cuts[5],
	}
}

func classify(e float64, b bands) Type {
	switch {
	case e < b.deep:
		return DeepWater
	case e < b.shallow:
		return ShallowWater
	case e < b.grass:
		return Grassland
	case e < b.forest:
		return Forest
	case e < b.hills:
		return Hills
	case e < b.forested:
		return ForestedHills
	default:
		return Mountain
	}
}

// smoothCoastlines removes single-cell jags along the land/water boundary:
// a cell surrounded by a large majority of the opposite class flips to it.
// Flips are collected per pass so a pass cannot cascade into itself.
func smoothCoastlines(g *Grid, passes int) {
	for pass := 0; pass < passes; pass++ {
		type flip struct {
			p Point
			t Type
		}
		var flips []flip
		for y := 0; y < g.Height; y++ {
			for x := 0; x < g.Width; x++ {
				t := g.TypeAt(x, y)
				water := t == DeepWater || t == ShallowWater
				waterNeighbors := 0
				for _, n := range (Point{X: x, Y: y}).Neighbors8() {
					if !g.InBounds(n.X, n.Y) {
						continue
					}
					nt := g.TypeAt(n.X, n.Y)
					if nt == DeepWater || nt == ShallowWater {
						waterNeighbors++
					}
				}
				if !water && waterNeighbors >= 6 {
					flips = append(flips, flip{Point{X: x, Y: y}, ShallowWater})
				} else if water && waterNeighbors <= 2 {
					flips = append(flips, flip{Point{X: x, Y: y}, Grassland})
				}
			}
		}
		for _, f := range flips {
			g.SetType(f.p.X, f.p.Y, f.t)
		}
	}
}

// sealBorders forces the outermost ring to the impassable border type,
// overriding any prior classification.
func sealBorders(g *Grid) {
	for x := 0; x < g.Width; x++ {
		g.SetType(x, 0, Border)
		g.SetType(x, g.Height-1, Border)
	}
	for y := 0; y < g.Height; y++ {
		g.SetType(0, y, Border)
		g.SetType(g.Width-1, y, Border)
	}
}

// Rebuild reconstructs a generated grid from its effective seed, generation
// parameters, and packed cell types. Elevation is re-sampled from the seed;
// carved state is restored from the type bytes.
func Rebuild(cfg GenConfig, seed int64, types []byte) (*Grid, error) {
	cfg = cfg.withDefaults()
	if len(types) != cfg.Width*cfg.Height {
		return nil, fmt.Errorf("terrain: packed cell count %d does not match %dx%d grid",
			len(types), cfg.Width, cfg.Height)
	}

	g := NewGrid(cfg.Width, cfg.Height)
	g.Seed = seed
	sampleElevation(g, cfg, seed)

	for i, bt := range types {
		if bt >= typeCount {
			return nil, fmt.Errorf("terrain: invalid cell type %d at index %d", bt, i)
		}
		g.SetType(i%cfg.Width, i/cfg.Width, Type(bt))
	}
	return g, nil
}
