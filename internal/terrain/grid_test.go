package terrain

import (
	"strings"
	"testing"
)

func TestParseMapRenderRoundTrip(t *testing.T) {
	fixture := `
####
#.f#
#hr#
####
`
	g := ParseMap(fixture)
	if g.Width != 4 || g.Height != 4 {
		t.Fatalf("ParseMap() size = %dx%d, want 4x4", g.Width, g.Height)
	}
	if got, want := g.Render(), strings.Trim(fixture, "\n"); got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
	if g.TypeAt(1, 1) != Grassland {
		t.Fatalf("TypeAt(1,1) = %v, want Grassland", g.TypeAt(1, 1))
	}
	if g.TypeAt(2, 2) != River {
		t.Fatalf("TypeAt(2,2) = %v, want River", g.TypeAt(2, 2))
	}
}

func TestParseMapRejectsRaggedRows(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ParseMap() did not panic on ragged rows")
		}
	}()
	ParseMap("...\n....")
}

func TestAtBounds(t *testing.T) {
	g := NewGrid(3, 2)
	g.SetType(1, 1, Grassland)

	if c, ok := g.At(1, 1); !ok || c.Type != Grassland || c.Cost != 1 {
		t.Fatalf("At(1,1) = %+v, %v; want Grassland cell with cost 1", c, ok)
	}
	if _, ok := g.At(3, 0); ok {
		t.Fatal("At(3,0) reported in bounds on a 3x2 grid")
	}
	if _, ok := g.At(0, -1); ok {
		t.Fatal("At(0,-1) reported in bounds")
	}
	if g.TypeAt(-1, 0) != Border {
		t.Fatalf("TypeAt(-1,0) = %v, want Border", g.TypeAt(-1, 0))
	}
	if g.CostAt(99, 99) != 0 {
		t.Fatalf("CostAt(99,99) = %d, want 0", g.CostAt(99, 99))
	}
	if g.PassableAt(99, 99) {
		t.Fatal("PassableAt(99,99) = true outside the grid")
	}
}

func TestMovementCosts(t *testing.T) {
	cases := []struct {
		terrain Type
		cost    int
	}{
		{DeepWater, 0},
		{ShallowWater, 0},
		{Grassland, 1},
		{Forest, 2},
		{Hills, 2},
		{ForestedHills, 2},
		{Mountain, 0},
		{River, 0},
		{Border, 0},
	}
	for _, c := range cases {
		if got := c.terrain.MovementCost(); got != c.cost {
			t.Errorf("%s.MovementCost() = %d, want %d", c.terrain.Name(), got, c.cost)
		}
		if c.terrain.Passable() != (c.cost > 0) {
			t.Errorf("%s.Passable() = %v, inconsistent with cost %d", c.terrain.Name(), c.terrain.Passable(), c.cost)
		}
	}
}

func TestSetTypeSyncsCost(t *testing.T) {
	g := NewGrid(1, 1)
	g.SetType(0, 0, Forest)
	if g.CostAt(0, 0) != 2 {
		t.Fatalf("CostAt after SetType(Forest) = %d, want 2", g.CostAt(0, 0))
	}
	g.SetType(0, 0, Mountain)
	if g.CostAt(0, 0) != 0 {
		t.Fatalf("CostAt after SetType(Mountain) = %d, want 0", g.CostAt(0, 0))
	}
}

func TestPassableFractionIgnoresRing(t *testing.T) {
	g := ParseMap(`
####
#.M#
#..#
####
`)
	// 4 interior cells, 3 passable.
	if got := g.PassableFraction(); got != 0.75 {
		t.Fatalf("PassableFraction() = %v, want 0.75", got)
	}
}

func TestCountsAndPack(t *testing.T) {
	g := ParseMap(`
.~
.M
`)
	counts := g.Counts()
	if counts[Grassland] != 2 || counts[DeepWater] != 1 || counts[Mountain] != 1 {
		t.Fatalf("Counts() = %v", counts)
	}

	packed := g.PackTypes()
	want := []byte{byte(Grassland), byte(DeepWater), byte(Grassland), byte(Mountain)}
	if len(packed) != len(want) {
		t.Fatalf("PackTypes() length = %d, want %d", len(packed), len(want))
	}
	for i := range want {
		if packed[i] != want[i] {
			t.Fatalf("PackTypes()[%d] = %d, want %d", i, packed[i], want[i])
		}
	}
}

func TestNeighborOrderIsStable(t *testing.T) {
	p := Point{X: 5, Y: 5}
	want4 := [4]Point{{5, 4}, {5, 6}, {4, 5}, {6, 5}}
	if p.Neighbors4() != want4 {
		t.Fatalf("Neighbors4() = %v, want %v", p.Neighbors4(), want4)
	}
	if n := p.Neighbors8(); n[0] != (Point{4, 4}) || n[7] != (Point{6, 6}) {
		t.Fatalf("Neighbors8() order changed: %v", n)
	}
}

func TestManhattan(t *testing.T) {
	if d := Manhattan(Point{1, 2}, Point{4, 6}); d != 7 {
		t.Fatalf("Manhattan((1,2),(4,6)) = %d, want 7", d)
	}
	if d := Manhattan(Point{4, 6}, Point{1, 2}); d != 7 {
		t.Fatalf("Manhattan is not symmetric: %d", d)
	}
}
