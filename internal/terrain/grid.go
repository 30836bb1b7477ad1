package terrain

import (
	"fmt"
	"strings"
)

// Cell is one grid tile. Type and the cost derived from it carry all carved
// state; Elevation is the raw noise sample kept for line-of-sight and
// drainage decisions.
type Cell struct {
	Type      Type    `json:"type"`
	Cost      uint8   `json:"cost"` // derived from Type; 0 = impassable
	Elevation float64 `json:"elevation"`
}

// Grid is a dense width×height cell array addressed by integer (x, y).
// Seed records the effective generation seed, after any degenerate-map
// perturbation. Grids are immutable once generation finishes; SetType
// exists for generation, snapshot restore, and test fixtures.
type Grid struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Seed   int64 `json:"seed"`

	cells []Cell
}

// NewGrid allocates a grid of the given dimensions. Cells start as deep
// water at elevation zero.
func NewGrid(width, height int) *Grid {
	if width < 1 || height < 1 {
		panic(fmt.Sprintf("terrain: invalid grid dimensions %dx%d", width, height))
	}
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
}

func (g *Grid) index(x, y int) int {
	return y*g.Width + x
}

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the cell at (x, y) and whether the coordinate is in bounds.
func (g *Grid) At(x, y int) (Cell, bool) {
	if !g.InBounds(x, y) {
		return Cell{}, false
	}
	return g.cells[g.index(x, y)], true
}

// TypeAt returns the terrain type at (x, y); out-of-bounds coordinates read
// as Border.
func (g *Grid) TypeAt(x, y int) Type {
	if !g.InBounds(x, y) {
		return Border
	}
	return g.cells[g.index(x, y)].Type
}

// CostAt returns the movement cost of entering (x, y); 0 means impassable
// or out of bounds.
func (g *Grid) CostAt(x, y int) int {
	if !g.InBounds(x, y) {
		return 0
	}
	return int(g.cells[g.index(x, y)].Cost)
}

// PassableAt reports whether (x, y) is in bounds and enterable.
func (g *Grid) PassableAt(x, y int) bool {
	return g.CostAt(x, y) > 0
}

// ElevationAt returns the elevation sample at (x, y), 0 out of bounds.
func (g *Grid) ElevationAt(x, y int) float64 {
	if !g.InBounds(x, y) {
		return 0
	}
	return g.cells[g.index(x, y)].Elevation
}

// SetType classifies a cell and keeps its derived cost in sync.
func (g *Grid) SetType(x, y int, t Type) {
	i := g.index(x, y)
	g.cells[i].Type = t
	g.cells[i].Cost = uint8(t.MovementCost())
}

// SetElevation stores the elevation sample for a cell.
func (g *Grid) SetElevation(x, y int, e float64) {
	g.cells[g.index(x, y)].Elevation = e
}

// Counts tallies cells by terrain type.
func (g *Grid) Counts() map[Type]int {
	counts := make(map[Type]int)
	for i := range g.cells {
		counts[g.cells[i].Type]++
	}
	return counts
}

// PassableFraction returns the share of interior cells (border ring
// excluded) that can be entered.
func (g *Grid) PassableFraction() float64 {
	if g.Width <= 2 || g.Height <= 2 {
		return 0
	}
	passable := 0
	total := 0
	for y := 1; y < g.Height-1; y++ {
		for x := 1; x < g.Width-1; x++ {
			total++
			if g.cells[g.index(x, y)].Cost > 0 {
				passable++
			}
		}
	}
	return float64(passable) / float64(total)
}

// PackTypes serializes the per-cell types into one byte each, row-major.
// Together with the effective seed and generation parameters this is the
// full carved state of the grid.
func (g *Grid) PackTypes() []byte {
	packed := make([]byte, len(g.cells))
	for i := range g.cells {
		packed[i] = byte(g.cells[i].Type)
	}
	return packed
}

// Render draws the grid as one glyph per cell, rows separated by newlines.
// Intended for debugging and fixtures; impractical at full world size.
func (g *Grid) Render() string {
	var b strings.Builder
	b.Grow((g.Width + 1) * g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			b.WriteRune(g.cells[g.index(x, y)].Type.Glyph())
		}
		if y < g.Height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// ParseMap builds a grid from a glyph map (the Render legend), one line per
// row. Leading and trailing blank lines are ignored; all rows must have
// equal length. Elevation is filled with a flat per-type profile so that
// fixtures behave sensibly in drainage-free tests. Panics on malformed
// input; intended for fixtures only.
func ParseMap(s string) *Grid {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	if len(lines) == 0 || len(lines[0]) == 0 {
		panic("terrain: empty map literal")
	}
	width := len(lines[0])
	g := NewGrid(width, len(lines))
	for y, line := range lines {
		if len(line) != width {
			panic(fmt.Sprintf("terrain: ragged map literal at row %d", y))
		}
		for x, r := range line {
			t, ok := typeForGlyph(r)
			if !ok {
				panic(fmt.Sprintf("terrain: unknown map glyph %q at (%d, %d)", r, x, y))
			}
			g.SetType(x, y, t)
			g.SetElevation(x, y, fixtureElevation(t))
		}
	}
	return g
}

func typeForGlyph(r rune) (Type, bool) {
	for t := Type(0); t < typeCount; t++ {
		if t.Glyph() == r {
			return t, true
		}
	}
	return 0, false
}

// fixtureElevation gives ParseMap cells a plausible height for their type.
func fixtureElevation(t Type) float64 {
	switch t {
	case DeepWater:
		return 0.1
	case ShallowWater, River:
		return 0.3
	case Grassland, Forest:
		return 0.5
	case Hills, ForestedHills:
		return 0.7
	case Mountain, Border:
		return 0.9
	default:
		return 0.5
	}
}

// String returns a one-line summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, seed=%d)", g.Width, g.Height, g.Seed)
}
