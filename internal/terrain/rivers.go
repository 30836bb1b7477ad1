// River and lake carving plus forest growth. Rivers walk downhill from
// high ground until they reach water or the map edge; walks that dead-end
// in a depression flood it into a lake. Forests grow where a second noise
// field is dense, within reach of fresh water.
package terrain

import (
	"math/rand"

	"marchland/internal/noise"
)

// carveRivers traces descent walks from high-elevation sources. The number
// of rivers scales with map area unless configured explicitly.
func carveRivers(g *Grid, b bands, cfg GenConfig, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))

	var sources []Point
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			c, _ := g.At(x, y)
			if c.Elevation > b.hills && !c.Type.Water() {
				sources = append(sources, Point{X: x, Y: y})
			}
		}
	}
	if len(sources) == 0 {
		return
	}

	numRivers := cfg.Rivers
	if numRivers <= 0 {
		numRivers = g.Width * g.Height / 100000
		if numRivers < 2 {
			numRivers = 2
		}
		if numRivers > 40 {
			numRivers = 40
		}
	}

	rng.Shuffle(len(sources), func(i, j int) {
		sources[i], sources[j] = sources[j], sources[i]
	})
	if len(sources) > numRivers {
		sources = sources[:numRivers]
	}

	for _, start := range sources {
		traceRiver(g, start, cfg, rng)
	}
}

// traceRiver follows the steepest descent from a source cell until it
// reaches water or the grid edge. Dead ends flood into lakes. Joining an
// existing river widens the confluence.
func traceRiver(g *Grid, start Point, cfg GenConfig, rng *rand.Rand) {
	current := start
	visited := make(map[Point]bool)

	for step := 0; step < cfg.RiverMaxSteps; step++ {
		visited[current] = true
		t := g.TypeAt(current.X, current.Y)

		if t == DeepWater || t == ShallowWater {
			return // reached the sea or a lake
		}
		if t == River {
			widenConfluence(g, current, rng)
			return
		}
		// Carve through everything on the way down, mountains included:
		// a channel with gaps would strand its lower reaches.
		g.SetType(current.X, current.Y, River)
		if current.X == 0 || current.Y == 0 || current.X == g.Width-1 || current.Y == g.Height-1 {
			return // ran off the map edge
		}

		next, ok := lowestUnvisitedNeighbor(g, current, visited)
		if !ok {
			floodLake(g, current, cfg)
			return
		}
		current = next
	}
}

// lowestUnvisitedNeighbor returns the strictly lower neighbor with the
// least elevation, scanning all eight directions in fixed order.
func lowestUnvisitedNeighbor(g *Grid, p Point, visited map[Point]bool) (Point, bool) {
	best := p
	bestElev := g.ElevationAt(p.X, p.Y)
	found := false

	for _, n := range p.Neighbors8() {
		if visited[n] || !g.InBounds(n.X, n.Y) {
			continue
		}
		if e := g.ElevationAt(n.X, n.Y); e < bestElev {
			bestElev = e
			best = n
			found = true
		}
	}
	return best, found
}

// widenConfluence broadens the channel where a new river joins an existing
// one, flipping some adjacent land cells to river.
func widenConfluence(g *Grid, p Point, rng *rand.Rand) {
	for _, n := range p.Neighbors4() {
		if !g.InBounds(n.X, n.Y) {
			continue
		}
		t := g.TypeAt(n.X, n.Y)
		if t.Water() || t == Mountain || t == Border {
			continue
		}
		if rng.Float64() < 0.5 {
			g.SetType(n.X, n.Y, River)
		}
	}
}

// floodLake fills the depression around a pit cell up to a waterline just
// above the pit. Small basins become shallow water; larger ones get a
// deep-water interior under a shallow rim.
func floodLake(g *Grid, pit Point, cfg GenConfig) {
	waterline := g.ElevationAt(pit.X, pit.Y) + cfg.LakeTolerance

	basin := []Point{pit}
	seen := map[Point]bool{pit: true}
	for i := 0; i < len(basin) && len(basin) < cfg.LakeMaxSize; i++ {
		for _, n := range basin[i].Neighbors4() {
			if seen[n] || !g.InBounds(n.X, n.Y) {
				continue
			}
			t := g.TypeAt(n.X, n.Y)
			if t.Water() || t == Border {
				continue
			}
			if g.ElevationAt(n.X, n.Y) <= waterline {
				seen[n] = true
				basin = append(basin, n)
			}
		}
	}

	for _, p := range basin {
		g.SetType(p.X, p.Y, ShallowWater)
	}
	if len(basin) < cfg.LakeDeepSize {
		return
	}
	for _, p := range basin {
		interior := true
		for _, n := range p.Neighbors8() {
			if !g.InBounds(n.X, n.Y) || !g.TypeAt(n.X, n.Y).Water() {
				interior = false
				break
			}
		}
		if interior {
			g.SetType(p.X, p.Y, DeepWater)
		}
	}
}

// pruneOrphanRivers removes single-cell channels stranded by the border
// seal. A river cell with no adjacent water is not part of any drainage
// and reads as a glitch on the map.
func pruneOrphanRivers(g *Grid) {
	var orphans []Point
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			if g.TypeAt(x, y) != River {
				continue
			}
			wet := false
			for _, n := range (Point{X: x, Y: y}).Neighbors8() {
				if g.InBounds(n.X, n.Y) && g.TypeAt(n.X, n.Y).Water() {
					wet = true
					break
				}
			}
			if !wet {
				orphans = append(orphans, Point{X: x, Y: y})
			}
		}
	}
	for _, p := range orphans {
		g.SetType(p.X, p.Y, Grassland)
	}
}

// growForests converts grassland to forest and hills to forested hills
// where the forest-density field is thick, within reach of water. The
// density threshold relaxes closer to the water's edge.
func growForests(g *Grid, cfg GenConfig, seed int64) {
	field := noise.New(seed+1000, noise.Params{
		Frequency:   cfg.ForestFrequency,
		Octaves:     cfg.ForestOctaves,
		Persistence: cfg.ForestPersistence,
	})

	dist := waterDistance(g, cfg.ForestWaterRange)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			d := dist[y*g.Width+x]
			if d < 0 {
				continue
			}
			t := g.TypeAt(x, y)
			if t != Grassland && t != Hills {
				continue
			}
			threshold := cfg.ForestThreshold - 0.2*(1.0-float64(d)/float64(cfg.ForestWaterRange))
			if field.Sample(float64(x), float64(y)) <= threshold {
				continue
			}
			if t == Grassland {
				g.SetType(x, y, Forest)
			} else {
				g.SetType(x, y, ForestedHills)
			}
		}
	}
}

// waterDistance returns the 4-neighbor BFS distance from every cell to the
// nearest river or shallow-water cell, or -1 beyond the given range.
func waterDistance(g *Grid, maxRange int) []int {
	dist := make([]int, g.Width*g.Height)
	for i := range dist {
		dist[i] = -1
	}

	var frontier []Point
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			t := g.TypeAt(x, y)
			if t == River || t == ShallowWater {
				dist[y*g.Width+x] = 0
				frontier = append(frontier, Point{X: x, Y: y})
			}
		}
	}

	for d := 1; d <= maxRange && len(frontier) > 0; d++ {
		var next []Point
		for _, p := range frontier {
			for _, n := range p.Neighbors4() {
				if !g.InBounds(n.X, n.Y) {
					continue
				}
				i := n.Y*g.Width + n.X
				if dist[i] == -1 {
					dist[i] = d
					next = append(next, n)
				}
			}
		}
		frontier = next
	}
	return dist
}
