// Package settlement defines the settlement hierarchy placed on the terrain
// grid: cities at the top, towns sworn to cities, villages sworn to towns.
package settlement

import (
	"fmt"

	"marchland/internal/terrain"
)

// ID is a unique identifier for a settlement. The zero value means "none"
// and is never allocated.
type ID = uint64

// Tier represents a settlement's rank in the hierarchy.
type Tier uint8

const (
	TierVillage Tier = iota // produces one raw resource
	TierTown                // stockpiles and converts resources
	TierCity                // terminal sink for trade goods
)

// Name returns the lowercase tier name.
func (t Tier) Name() string {
	switch t {
	case TierVillage:
		return "village"
	case TierTown:
		return "town"
	case TierCity:
		return "city"
	default:
		return "unknown"
	}
}

// Resource is one of the raw goods produced by villages.
type Resource uint8

const (
	Lumber Resource = iota
	FishAndFowl
	GrainAndLivestock
	Ore

	NumResources = 4
)

// Name returns the human-readable resource name.
func (r Resource) Name() string {
	switch r {
	case Lumber:
		return "lumber"
	case FishAndFowl:
		return "fish and fowl"
	case GrainAndLivestock:
		return "grain and livestock"
	case Ore:
		return "ore"
	default:
		return "unknown"
	}
}

// Resources lists all raw resources in their canonical order.
func Resources() [NumResources]Resource {
	return [NumResources]Resource{Lumber, FishAndFowl, GrainAndLivestock, Ore}
}

// Stock holds per-resource quantities, indexed by Resource.
type Stock [NumResources]int

// Amount returns the stored quantity of one resource.
func (s *Stock) Amount(r Resource) int {
	return s[r]
}

// Add adjusts one resource by delta and panics if the result goes negative;
// a negative stockpile means the caller's bookkeeping is broken.
func (s *Stock) Add(r Resource, delta int) {
	s[r] += delta
	if s[r] < 0 {
		panic(fmt.Sprintf("settlement: %s stock driven negative (%d)", r.Name(), s[r]))
	}
}

// AllAtLeast reports whether every resource meets the given floor.
func (s *Stock) AllAtLeast(n int) bool {
	for _, v := range s {
		if v < n {
			return false
		}
	}
	return true
}

// Total returns the summed quantity across all resources.
func (s *Stock) Total() int {
	sum := 0
	for _, v := range s {
		sum += v
	}
	return sum
}

// VillageState is the payload carried by village-tier settlements.
type VillageState struct {
	Produces Resource `json:"produces"`
	LiegeID  ID       `json:"liege_id"` // the town this village supplies
}

// TownState is the payload carried by town-tier settlements.
type TownState struct {
	Stock      Stock `json:"stock"`
	TradeGoods int   `json:"trade_goods"`
	LiegeID    ID    `json:"liege_id,omitempty"` // zero for a free town
}

// CityState is the payload carried by city-tier settlements.
type CityState struct {
	TradeGoods int `json:"trade_goods"`
}

// Settlement is one population center on the grid. Exactly one of the
// tier payloads is non-nil, matching Tier.
type Settlement struct {
	ID       ID            `json:"id"`
	Name     string        `json:"name"`
	Tier     Tier          `json:"tier"`
	Position terrain.Point `json:"position"`

	Village *VillageState `json:"village,omitempty"`
	Town    *TownState    `json:"town,omitempty"`
	City    *CityState    `json:"city,omitempty"`
}

// NewVillage builds a village producing the given resource for a liege town.
func NewVillage(id ID, name string, pos terrain.Point, produces Resource, liege ID) *Settlement {
	return &Settlement{
		ID:       id,
		Name:     name,
		Tier:     TierVillage,
		Position: pos,
		Village:  &VillageState{Produces: produces, LiegeID: liege},
	}
}

// NewTown builds a town. A zero liege makes it a free town.
func NewTown(id ID, name string, pos terrain.Point, liege ID) *Settlement {
	return &Settlement{
		ID:       id,
		Name:     name,
		Tier:     TierTown,
		Position: pos,
		Town:     &TownState{LiegeID: liege},
	}
}

// NewCity builds a city.
func NewCity(id ID, name string, pos terrain.Point) *Settlement {
	return &Settlement{
		ID:       id,
		Name:     name,
		Tier:     TierCity,
		Position: pos,
		City:     &CityState{},
	}
}

// LiegeID returns the settlement's liege and whether it has one. Cities
// and free towns have none.
func (s *Settlement) LiegeID() (ID, bool) {
	switch s.Tier {
	case TierVillage:
		if s.Village != nil && s.Village.LiegeID != 0 {
			return s.Village.LiegeID, true
		}
	case TierTown:
		if s.Town != nil && s.Town.LiegeID != 0 {
			return s.Town.LiegeID, true
		}
	}
	return 0, false
}

// Clone returns a deep copy that shares no state with the original.
func (s *Settlement) Clone() *Settlement {
	c := *s
	if s.Village != nil {
		v := *s.Village
		c.Village = &v
	}
	if s.Town != nil {
		t := *s.Town
		c.Town = &t
	}
	if s.City != nil {
		ct := *s.City
		c.City = &ct
	}
	return &c
}

// validate checks that the payload matches the tier.
func (s *Settlement) validate() error {
	if s.ID == 0 {
		return fmt.Errorf("settlement %q has a zero ID", s.Name)
	}
	hasV, hasT, hasC := s.Village != nil, s.Town != nil, s.City != nil
	ok := false
	switch s.Tier {
	case TierVillage:
		ok = hasV && !hasT && !hasC
	case TierTown:
		ok = !hasV && hasT && !hasC
	case TierCity:
		ok = !hasV && !hasT && hasC
	}
	if !ok {
		return fmt.Errorf("settlement %d (%s) payload does not match tier %s", s.ID, s.Name, s.Tier.Name())
	}
	return nil
}

// String returns a one-line summary.
func (s *Settlement) String() string {
	return fmt.Sprintf("%s %q (id=%d) at (%d,%d)", s.Tier.Name(), s.Name, s.ID, s.Position.X, s.Position.Y)
}
