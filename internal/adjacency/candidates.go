// Package adjacency infers which fragments touch and in which direction.
//
// Discovery tests every ordered pair of fragments against the similarity
// metric and records the directions whose borders matched. Resolution then
// reduces pairs with two candidate directions to one, using the competing
// claims of the anchor's other pairs as evidence. The result is a Relation
// indexed for the forward and backward walks of grid reconstruction.
package adjacency

import (
	"fmt"
	"image"
	"sort"

	"puzzled/internal/edge"
	"puzzled/internal/types"
)

// Pair is an ordered (anchor, other) fragment pair.
type Pair struct {
	Anchor int
	Other  int
}

func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.Anchor, p.Other)
}

func lessPair(a, b Pair) bool {
	if a.Anchor != b.Anchor {
		return a.Anchor < b.Anchor
	}
	return a.Other < b.Other
}

// BorderSet holds the precomputed borders of every fragment, keyed by id.
type BorderSet map[int]edge.Borders

// NewBorderSet extracts the borders of each image once.
func NewBorderSet(images map[int]image.Image) (BorderSet, error) {
	set := make(BorderSet, len(images))
	for id, img := range images {
		b, err := edge.NewBorders(img)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", id, err)
		}
		set[id] = b
	}
	return set, nil
}

// IDs returns the fragment ids in ascending order.
func (bs BorderSet) IDs() []int {
	ids := make([]int, 0, len(bs))
	for id := range bs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// =============================================================================
// CANDIDATE SET
// =============================================================================

// CandidateSet maps ordered pairs to the directions whose borders matched.
// Directions are kept in canonical order.
type CandidateSet struct {
	entries map[Pair][]types.Direction
}

// NewCandidateSet returns an empty set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{entries: make(map[Pair][]types.Direction)}
}

// Add records that other matched anchor in direction d.
func (cs *CandidateSet) Add(anchor, other int, d types.Direction) {
	p := Pair{Anchor: anchor, Other: other}
	dirs := cs.entries[p]
	for _, have := range dirs {
		if have == d {
			return
		}
	}
	dirs = append(dirs, d)
	sort.Slice(dirs, func(i, j int) bool { return dirs[i] < dirs[j] })
	cs.entries[p] = dirs
}

// Directions returns the candidate directions of a pair.
func (cs *CandidateSet) Directions(anchor, other int) []types.Direction {
	return cs.entries[Pair{Anchor: anchor, Other: other}]
}

// Len returns the number of pairs with at least one candidate.
func (cs *CandidateSet) Len() int {
	return len(cs.entries)
}

// Pairs returns every pair in (anchor, other) order.
func (cs *CandidateSet) Pairs() []Pair {
	out := make([]Pair, 0, len(cs.entries))
	for p := range cs.entries {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return lessPair(out[i], out[j]) })
	return out
}

// byAnchor groups the sorted pairs by anchor.
func (cs *CandidateSet) byAnchor() map[int][]Pair {
	out := make(map[int][]Pair)
	for _, p := range cs.Pairs() {
		out[p.Anchor] = append(out[p.Anchor], p)
	}
	return out
}
