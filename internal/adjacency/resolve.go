package adjacency

import (
	"fmt"

	"puzzled/internal/edge"
	"puzzled/internal/logging"
	"puzzled/internal/types"
)

// Resolver reduces every candidate pair to one authoritative direction.
type Resolver struct {
	metric edge.Metric
}

// NewResolver returns a Resolver scoring borders with metric.
func NewResolver(metric edge.Metric) *Resolver {
	return &Resolver{metric: metric}
}

// Resolve builds the Relation. Pairs are processed in sorted order and
// the input is not modified, so resolving an already resolved set
// reproduces it.
func (r *Resolver) Resolve(cs *CandidateSet, borders BorderSet) (*Relation, error) {
	timer := logging.StartTimer(logging.CategoryResolver, "Resolve")
	defer timer.Stop()

	rel := newRelation()
	groups := cs.byAnchor()
	omitted := 0

	for _, p := range cs.Pairs() {
		dirs := cs.entries[p]

		var chosen types.Direction
		switch len(dirs) {
		case 1:
			chosen = dirs[0]
		case 2:
			d, ok, err := r.arbitrate(p, dirs, groups[p.Anchor], cs, borders)
			if err != nil {
				return nil, err
			}
			if !ok {
				omitted++
				logging.ResolverDebug("pair %s: every candidate slot is better claimed, omitted", p)
				continue
			}
			chosen = d
		default:
			return nil, fmt.Errorf("%w: pair %s has %d candidate directions %v",
				types.ErrPrecondition, p, len(dirs), dirs)
		}

		m, err := r.between(borders, p.Anchor, p.Other, chosen)
		if err != nil {
			return nil, err
		}
		rel.set(p, chosen, m)
	}

	logging.Resolver("resolved %d of %d candidate pairs (%d omitted)", rel.Len(), cs.Len(), omitted)
	return rel, nil
}

// arbitrate picks one of two candidate directions for p, using the anchor's
// other pairs as competing evidence for each slot.
func (r *Resolver) arbitrate(p Pair, dirs []types.Direction, siblings []Pair, cs *CandidateSet, borders BorderSet) (types.Direction, bool, error) {
	error1 := make(map[types.Direction]float64, len(dirs))
	for _, d := range dirs {
		m, err := r.between(borders, p.Anchor, p.Other, d)
		if err != nil {
			return 0, false, err
		}
		error1[d] = m
	}

	// Best competing mismatch per contested direction.
	error2 := make(map[types.Direction]float64)
	for _, q := range siblings {
		if q.Other == p.Other {
			continue
		}
		theirs := cs.entries[q]
		var d3 types.Direction
		if len(theirs) == 1 {
			d3 = theirs[0]
		} else {
			common := intersect(theirs, dirs)
			if len(common) > 1 {
				return 0, false, fmt.Errorf("%w: pairs %s and %s share directions %v",
					types.ErrPrecondition, p, q, common)
			}
			if len(common) == 0 {
				continue
			}
			d3 = common[0]
		}
		if _, contested := error1[d3]; !contested {
			continue
		}

		m, err := r.between(borders, q.Anchor, q.Other, d3)
		if err != nil {
			return 0, false, err
		}
		if prev, ok := error2[d3]; !ok || m < prev {
			error2[d3] = m
		}
	}

	var survivors []types.Direction
	for _, d := range dirs {
		if e2, ok := error2[d]; ok && error1[d] > e2 {
			logging.ResolverDebug("pair %s: %s lost to competitor (%.4f > %.4f)", p, d, error1[d], e2)
			continue
		}
		survivors = append(survivors, d)
	}

	switch len(survivors) {
	case 0:
		return 0, false, nil
	case 1:
		return survivors[0], true, nil
	default:
		// Canonical order breaks ties.
		if error1[survivors[1]] < error1[survivors[0]] {
			return survivors[1], true, nil
		}
		return survivors[0], true, nil
	}
}

func (r *Resolver) between(borders BorderSet, anchor, other int, d types.Direction) (float64, error) {
	a, ok := borders[anchor]
	if !ok {
		return 0, fmt.Errorf("%w: no borders for fragment %d", types.ErrPrecondition, anchor)
	}
	b, ok := borders[other]
	if !ok {
		return 0, fmt.Errorf("%w: no borders for fragment %d", types.ErrPrecondition, other)
	}
	return r.metric.Between(a, b, d)
}

func intersect(a, b []types.Direction) []types.Direction {
	var out []types.Direction
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
				break
			}
		}
	}
	return out
}
