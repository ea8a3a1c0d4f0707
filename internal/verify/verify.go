// Package verify checks client-proposed arrangements for edge consistency.
package verify

import (
	"fmt"
	"sort"

	"puzzled/internal/adjacency"
	"puzzled/internal/edge"
	"puzzled/internal/logging"
	"puzzled/internal/types"
)

// Verifier checks that every row and column seam of a proposed layout
// matches under the metric. It never consults the adjacency relation.
type Verifier struct {
	metric edge.Metric
}

// New returns a Verifier using metric.
func New(metric edge.Metric) *Verifier {
	return &Verifier{metric: metric}
}

// Verify reports whether placements form a consistent cols x rows grid of
// the instance's fragments. An id the instance does not know is an error
// wrapping types.ErrNotFound; a wrong count or a repeated id is simply false.
func (v *Verifier) Verify(inst *types.Instance, borders adjacency.BorderSet, placements []types.Placement) (bool, error) {
	seen := make(map[int]bool, len(placements))
	duplicate := false
	for _, p := range placements {
		if _, err := inst.Fragment(p.ID); err != nil {
			return false, err
		}
		if _, ok := borders[p.ID]; !ok {
			return false, fmt.Errorf("borders of fragment %d: %w", p.ID, types.ErrNotFound)
		}
		if seen[p.ID] {
			duplicate = true
		}
		seen[p.ID] = true
	}

	want := inst.Cols * inst.Rows
	if len(placements) != want {
		logging.VerifyDebug("session %s: %d placements for %d cells", inst.Session, len(placements), want)
		return false, nil
	}
	if duplicate {
		logging.VerifyDebug("session %s: repeated fragment in placements", inst.Session)
		return false, nil
	}

	grid := Arrange(placements, inst.Cols, inst.FragmentHeight)

	for row := 0; row < inst.Rows; row++ {
		for col := 0; col < inst.Cols; col++ {
			cur := borders[grid[row][col]]
			if col > 0 {
				ok, err := v.metric.MatchBetween(borders[grid[row][col-1]], cur, types.Right)
				if err != nil {
					return false, err
				}
				if !ok {
					v.explain(inst.Session, grid[row][col-1], grid[row][col], types.Right, borders)
					return false, nil
				}
			}
			if row > 0 {
				ok, err := v.metric.MatchBetween(borders[grid[row-1][col]], cur, types.Bottom)
				if err != nil {
					return false, err
				}
				if !ok {
					v.explain(inst.Session, grid[row-1][col], grid[row][col], types.Bottom, borders)
					return false, nil
				}
			}
		}
	}

	logging.Verify("session %s: arrangement verified", inst.Session)
	return true, nil
}

// explain logs which pixels broke a seam when verify debugging is on.
func (v *Verifier) explain(session string, a, b int, d types.Direction, borders adjacency.BorderSet) {
	if !logging.Get(logging.CategoryVerify).Enabled() {
		return
	}
	idx, err := v.metric.Mismatches(borders[a].Side(d), borders[b].Side(d.Opposite()))
	if err != nil {
		return
	}
	logging.VerifyDebug("session %s: seam %d -%s-> %d mismatched at %v", session, a, d, b, idx)
}

// Arrange sorts placements into row-major order and partitions them into
// rows of cols ids. Placements whose y differ by less than half a fragment
// height are treated as the same row and ordered by x.
func Arrange(placements []types.Placement, cols, fragmentHeight int) [][]int {
	sorted := append([]types.Placement(nil), placements...)
	band := fragmentHeight / 2
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if abs(a.Y-b.Y) < band {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	var grid [][]int
	for start := 0; start < len(sorted); start += cols {
		end := start + cols
		if end > len(sorted) {
			end = len(sorted)
		}
		row := make([]int, 0, cols)
		for _, p := range sorted[start:end] {
			row = append(row, p.ID)
		}
		grid = append(grid, row)
	}
	return grid
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
