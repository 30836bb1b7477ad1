// Package terrain provides the world grid: typed cells generated from
// coherent noise, carved rivers and lakes, sealed borders, and the A*
// path search caravans route over.
package terrain

// Point is an integer cell coordinate on the grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Manhattan returns the Manhattan distance between two points, matching the
// grid's 4-neighbor adjacency model.
func Manhattan(a, b Point) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// Neighbors4 returns the four orthogonally adjacent coordinates, in a fixed
// order (up, down, left, right). Callers bound-check the results.
func (p Point) Neighbors4() [4]Point {
	return [4]Point{
		{X: p.X, Y: p.Y - 1},
		{X: p.X, Y: p.Y + 1},
		{X: p.X - 1, Y: p.Y},
		{X: p.X + 1, Y: p.Y},
	}
}

// Neighbors8 returns the eight surrounding coordinates, row by row.
func (p Point) Neighbors8() [8]Point {
	return [8]Point{
		{X: p.X - 1, Y: p.Y - 1},
		{X: p.X, Y: p.Y - 1},
		{X: p.X + 1, Y: p.Y - 1},
		{X: p.X - 1, Y: p.Y},
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y + 1},
		{X: p.X, Y: p.Y + 1},
		{X: p.X + 1, Y: p.Y + 1},
	}
}

// Type classifies a grid cell. The first seven values are the elevation
// bands in ascending order; River and Border are carved or forced during
// post-processing.
type Type uint8

const (
	DeepWater     Type = iota // open water, impassable
	ShallowWater              // coastal shelf and lake rims
	Grassland                 // open land, cheapest to cross
	Forest                    // dense tree cover
	Hills                     // rough upland
	ForestedHills             // wooded upland
	Mountain                  // peaks, impassable
	River                     // carved drainage channels
	Border                    // sealed map edge
)

// typeCount tracks the number of Type values for validation.
const typeCount = 9

// MovementCost returns the cost of entering a cell of this type, or 0 when
// the type cannot be entered at all.
func (t Type) MovementCost() int {
	switch t {
	case Grassland:
		return 1
	case Forest, Hills, ForestedHills:
		return 2
	default:
		return 0
	}
}

// Passable reports whether ground units can enter this terrain.
func (t Type) Passable() bool {
	return t.MovementCost() > 0
}

// Water reports whether the type is a water body. Rivers count: they block
// movement and support fishing the same way lakes and coasts do.
func (t Type) Water() bool {
	return t == DeepWater || t == ShallowWater || t == River
}

// BlocksView reports whether the terrain interrupts line of sight.
func (t Type) BlocksView() bool {
	return t == Forest || t == ForestedHills || t == Mountain || t == Border
}

// Name returns a human-readable label for the type.
func (t Type) Name() string {
	switch t {
	case DeepWater:
		return "deep water"
	case ShallowWater:
		return "shallow water"
	case Grassland:
		return "grassland"
	case Forest:
		return "forest"
	case Hills:
		return "hills"
	case ForestedHills:
		return "forested hills"
	case Mountain:
		return "mountain"
	case River:
		return "river"
	case Border:
		return "border"
	default:
		return "unknown"
	}
}

// Glyph returns the single-rune map legend for the type, used by Render and
// ParseMap.
func (t Type) Glyph() rune {
	switch t {
	case DeepWater:
		return '~'
	case ShallowWater:
		return 'w'
	case Grassland:
		return '.'
	case Forest:
		return 'f'
	case Hills:
		return 'h'
	case ForestedHills:
		return 'F'
	case Mountain:
		return 'M'
	case River:
		return 'r'
	case Border:
		return '#'
	default:
		return '?'
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
