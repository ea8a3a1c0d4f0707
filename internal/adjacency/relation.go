package adjacency

import (
	"math"
	"sort"

	"puzzled/internal/types"
)

type slot struct {
	id  int
	dir types.Direction
}

// Relation is the resolved adjacency: every ordered pair maps to exactly one
// direction. It is indexed by (anchor, direction) for forward walks and by
// (neighbour, direction) for backward walks.
type Relation struct {
	dirs     map[Pair]types.Direction
	mismatch map[Pair]float64
	forward  map[slot][]int // (anchor, dir) -> neighbours
	inverse  map[slot][]int // (neighbour, dir) -> anchors
}

func newRelation() *Relation {
	return &Relation{
		dirs:     make(map[Pair]types.Direction),
		mismatch: make(map[Pair]float64),
		forward:  make(map[slot][]int),
		inverse:  make(map[slot][]int),
	}
}

// set must be called in sorted pair order so the index slices stay sorted.
func (r *Relation) set(p Pair, d types.Direction, mismatch float64) {
	r.dirs[p] = d
	r.mismatch[p] = mismatch
	fk := slot{id: p.Anchor, dir: d}
	r.forward[fk] = append(r.forward[fk], p.Other)
	ik := slot{id: p.Other, dir: d}
	r.inverse[ik] = append(r.inverse[ik], p.Anchor)
}

// Len returns the number of resolved pairs.
func (r *Relation) Len() int { return len(r.dirs) }

// Direction returns the resolved direction of other relative to anchor.
func (r *Relation) Direction(anchor, other int) (types.Direction, bool) {
	d, ok := r.dirs[Pair{Anchor: anchor, Other: other}]
	return d, ok
}

// Mismatch returns the border mismatch recorded for a resolved pair.
func (r *Relation) Mismatch(anchor, other int) (float64, bool) {
	m, ok := r.mismatch[Pair{Anchor: anchor, Other: other}]
	return m, ok
}

// Neighbours returns every fragment resolved to lie in direction d of id.
func (r *Relation) Neighbours(id int, d types.Direction) []int {
	return append([]int(nil), r.forward[slot{id: id, dir: d}]...)
}

// Claimants returns every fragment that has id resolved in direction d.
func (r *Relation) Claimants(id int, d types.Direction) []int {
	return append([]int(nil), r.inverse[slot{id: id, dir: d}]...)
}

// Neighbour returns the fragment lying in direction d of id. When several
// fragments claim the slot the one with the lowest mismatch wins, then the
// lowest id.
func (r *Relation) Neighbour(id int, d types.Direction) (int, bool) {
	best, bestErr, found := 0, math.Inf(1), false
	for _, other := range r.forward[slot{id: id, dir: d}] {
		m := r.mismatch[Pair{Anchor: id, Other: other}]
		if !found || m < bestErr {
			best, bestErr, found = other, m, true
		}
	}
	return best, found
}

// Pairs returns the resolved pairs in (anchor, other) order.
func (r *Relation) Pairs() []Pair {
	out := make([]Pair, 0, len(r.dirs))
	for p := range r.dirs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return lessPair(out[i], out[j]) })
	return out
}

// Candidates turns the relation back into a single-direction candidate set.
func (r *Relation) Candidates() *CandidateSet {
	cs := NewCandidateSet()
	for p, d := range r.dirs {
		cs.Add(p.Anchor, p.Other, d)
	}
	return cs
}
