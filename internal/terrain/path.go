// A* path search over the grid's movement costs.
package terrain

import (
	"container/heap"
	"errors"
)

// ErrNoPath is returned when no passable route exists between two cells.
var ErrNoPath = errors.New("no passable route between endpoints")

// FindPath returns the cheapest route from start to goal. Edges are the
// four orthogonal neighbors, weighted by the movement cost of the cell
// being entered; the heuristic is Manhattan distance, which matches the
// adjacency model and never overestimates with a minimum step cost of 1.
// Ties resolve by lowest cumulative cost, then by (y, x) order, so equal
// inputs always produce the identical path. The returned path excludes
// start and ends with goal.
func FindPath(g *Grid, start, goal Point) ([]Point, error) {
	if !g.PassableAt(start.X, start.Y) || !g.PassableAt(goal.X, goal.Y) {
		return nil, ErrNoPath
	}
	if start == goal {
		return []Point{}, nil
	}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &pathNode{p: start, g: 0, f: Manhattan(start, goal)})

	gScore := map[Point]int{start: 0}
	cameFrom := make(map[Point]Point)
	closed := make(map[Point]bool)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if closed[cur.p] {
			continue // stale entry superseded by a cheaper one
		}
		closed[cur.p] = true

		if cur.p == goal {
			return rebuildPath(cameFrom, start, goal), nil
		}

		for _, n := range cur.p.Neighbors4() {
			cost := g.CostAt(n.X, n.Y)
			if cost == 0 || closed[n] {
				continue
			}
			tentative := cur.g + cost
			if prev, seen := gScore[n]; seen && tentative >= prev {
				continue
			}
			gScore[n] = tentative
			cameFrom[n] = cur.p
			heap.Push(open, &pathNode{p: n, g: tentative, f: tentative + Manhattan(n, goal)})
		}
	}

	return nil, ErrNoPath
}

// PathCost sums the entry costs along a path. Panics if the path crosses
// an impassable cell; callers only hold paths produced by FindPath over an
// immutable grid.
func PathCost(g *Grid, path []Point) int {
	total := 0
	for _, p := range path {
		c := g.CostAt(p.X, p.Y)
		if c == 0 {
			panic("terrain: path crosses impassable cell")
		}
		total += c
	}
	return total
}

func rebuildPath(cameFrom map[Point]Point, start, goal Point) []Point {
	var rev []Point
	for p := goal; p != start; p = cameFrom[p] {
		rev = append(rev, p)
	}
	path := make([]Point, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

type pathNode struct {
	p     Point
	g, f  int
	index int
}

// nodeHeap orders nodes by f, then g, then (y, x); the coordinate tail
// keeps expansion order deterministic across runs.
type nodeHeap []*pathNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g < h[j].g
	}
	if h[i].p.Y != h[j].p.Y {
		return h[i].p.Y < h[j].p.Y
	}
	return h[i].p.X < h[j].p.X
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}
