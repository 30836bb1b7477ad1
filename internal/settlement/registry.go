package settlement

import (
	"fmt"

	"marchland/internal/terrain"
)

// Registry is the flat store of every settlement in the world. Hierarchy
// edges live on the settlements themselves as liege IDs; the registry
// answers lookups by ID, by position, and by liege. Iteration order is
// always creation order, so replays visit settlements identically.
//
// Registry is not safe for concurrent use; the simulation serializes
// access around it.
type Registry struct {
	byID   map[ID]*Settlement
	byPos  map[terrain.Point]ID
	order  []ID
	nextID ID
}

// NewRegistry returns an empty registry. IDs start at 1; zero is the
// "no settlement" sentinel.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[ID]*Settlement),
		byPos:  make(map[terrain.Point]ID),
		nextID: 1,
	}
}

// AllocateID hands out the next settlement ID.
func (r *Registry) AllocateID() ID {
	id := r.nextID
	r.nextID++
	return id
}

// NextID returns the next ID that AllocateID would hand out.
func (r *Registry) NextID() ID {
	return r.nextID
}

// SetNextID restores the allocation counter when loading a saved world.
func (r *Registry) SetNextID(id ID) {
	if id > r.nextID {
		r.nextID = id
	}
}

// Insert adds a fully built settlement. The ID and position must be unused.
func (r *Registry) Insert(s *Settlement) error {
	if err := s.validate(); err != nil {
		return err
	}
	if _, dup := r.byID[s.ID]; dup {
		return fmt.Errorf("settlement id %d already registered", s.ID)
	}
	if other, dup := r.byPos[s.Position]; dup {
		return fmt.Errorf("position (%d,%d) already held by settlement %d",
			s.Position.X, s.Position.Y, other)
	}
	r.byID[s.ID] = s
	r.byPos[s.Position] = s.ID
	r.order = append(r.order, s.ID)
	if s.ID >= r.nextID {
		r.nextID = s.ID + 1
	}
	return nil
}

// Get returns the settlement with the given ID.
func (r *Registry) Get(id ID) (*Settlement, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// At returns the settlement occupying a cell, if any.
func (r *Registry) At(p terrain.Point) (*Settlement, bool) {
	id, ok := r.byPos[p]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// All returns every settlement in creation order. The slice is fresh but
// the pointers are live; callers that mutate them mutate the world.
func (r *Registry) All() []*Settlement {
	out := make([]*Settlement, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// OfTier returns settlements of one tier in creation order.
func (r *Registry) OfTier(t Tier) []*Settlement {
	var out []*Settlement
	for _, id := range r.order {
		if s := r.byID[id]; s.Tier == t {
			out = append(out, s)
		}
	}
	return out
}

// Near returns settlements within a square box of the given radius around
// center, in creation order.
func (r *Registry) Near(center terrain.Point, radius int) []*Settlement {
	var out []*Settlement
	for _, id := range r.order {
		s := r.byID[id]
		dx := s.Position.X - center.X
		dy := s.Position.Y - center.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		if dx <= radius && dy <= radius {
			out = append(out, s)
		}
	}
	return out
}

// LiegeOf resolves a settlement's liege. Returns false for cities, free
// towns, and unknown IDs.
func (r *Registry) LiegeOf(id ID) (*Settlement, bool) {
	s, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	liege, ok := s.LiegeID()
	if !ok {
		return nil, false
	}
	l, ok := r.byID[liege]
	return l, ok
}

// VassalsOf returns the settlements sworn directly to the given liege, in
// creation order.
func (r *Registry) VassalsOf(id ID) []*Settlement {
	var out []*Settlement
	for _, vid := range r.order {
		s := r.byID[vid]
		if liege, ok := s.LiegeID(); ok && liege == id {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of registered settlements.
func (r *Registry) Len() int {
	return len(r.order)
}

// Counts returns the number of settlements per tier.
func (r *Registry) Counts() map[Tier]int {
	counts := make(map[Tier]int)
	for _, id := range r.order {
		counts[r.byID[id].Tier]++
	}
	return counts
}

// Validate checks cross-settlement consistency: payloads match tiers,
// every liege edge points at an existing settlement exactly one tier up,
// and positions are unique. Used after loading a saved world.
func (r *Registry) Validate() error {
	seen := make(map[terrain.Point]ID, len(r.order))
	for _, id := range r.order {
		s, ok := r.byID[id]
		if !ok {
			return fmt.Errorf("ordered id %d missing from index", id)
		}
		if err := s.validate(); err != nil {
			return err
		}
		if other, dup := seen[s.Position]; dup {
			return fmt.Errorf("settlements %d and %d share position (%d,%d)",
				other, id, s.Position.X, s.Position.Y)
		}
		seen[s.Position] = id

		liege, has := s.LiegeID()
		if !has {
			continue
		}
		l, ok := r.byID[liege]
		if !ok {
			return fmt.Errorf("settlement %d swears to unknown liege %d", id, liege)
		}
		want := s.Tier + 1
		if l.Tier != want {
			return fmt.Errorf("settlement %d (%s) swears to %d (%s); liege must be a %s",
				id, s.Tier.Name(), liege, l.Tier.Name(), want.Name())
		}
	}
	return nil
}
