package adjacency

import (
	"context"
	"fmt"
	"runtime/debug"

	"puzzled/internal/edge"
	"puzzled/internal/logging"
	"puzzled/internal/types"

	"golang.org/x/sync/errgroup"
)

// Discoverer computes candidate directions for every ordered pair of fragments.
type Discoverer struct {
	metric     edge.Metric
	maxWorkers int // 0 = one goroutine per fragment
}

// NewDiscoverer returns a Discoverer using metric. maxWorkers bounds the
// number of concurrent anchor tasks; zero or less means unbounded.
func NewDiscoverer(metric edge.Metric, maxWorkers int) *Discoverer {
	if maxWorkers < 0 {
		maxWorkers = 0
	}
	return &Discoverer{metric: metric, maxWorkers: maxWorkers}
}

type match struct {
	other int
	dir   types.Direction
}

// Discover runs one task per anchor fragment. Each task fills only its own
// result slot; slots are merged in anchor order once every task succeeded,
// so the output does not depend on scheduling. Any failure, panic or
// cancellation discards all partial results.
func (d *Discoverer) Discover(ctx context.Context, borders BorderSet) (*CandidateSet, error) {
	timer := logging.StartTimer(logging.CategoryDiscovery, "Discover")
	defer timer.Stop()

	ids := borders.IDs()
	slots := make([][]match, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if d.maxWorkers > 0 {
		g.SetLimit(d.maxWorkers)
	}

	for i := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					logging.Get(logging.CategoryDiscovery).Error("task for fragment %d panicked: %v\n%s", ids[i], r, debug.Stack())
					err = fmt.Errorf("%w: discovery task for fragment %d panicked: %v", types.ErrPrecondition, ids[i], r)
				}
			}()
			found, err := d.scanAnchor(gctx, ids[i], ids, borders)
			if err != nil {
				return err
			}
			slots[i] = found
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logging.Get(logging.CategoryDiscovery).Warn("discovery aborted: %v", err)
		return nil, err
	}
	// A cancellation that landed after the last task still aborts.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cs := NewCandidateSet()
	for i, anchor := range ids {
		for _, m := range slots[i] {
			cs.Add(anchor, m.other, m.dir)
		}
	}

	logging.Discovery("discovered %d candidate pairs among %d fragments", cs.Len(), len(ids))
	return cs, nil
}

// scanAnchor compares one anchor against every other fragment.
func (d *Discoverer) scanAnchor(ctx context.Context, anchor int, ids []int, borders BorderSet) ([]match, error) {
	a := borders[anchor]
	var found []match
	for _, other := range ids {
		if other == anchor {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := borders[other]
		for _, dir := range types.Directions {
			ok, err := d.metric.MatchBetween(a, b, dir)
			if err != nil {
				return nil, fmt.Errorf("fragments %d/%d %s: %w", anchor, other, dir, err)
			}
			if ok {
				found = append(found, match{other: other, dir: dir})
			}
		}
	}
	return found, nil
}
