// Package assembly rebuilds the fragment grid from a resolved adjacency relation.
package assembly

import (
	"fmt"
	"image"
	"sort"

	"puzzled/internal/adjacency"
	"puzzled/internal/edge"
	"puzzled/internal/logging"
	"puzzled/internal/types"
)

// Layout is a reconstructed row-major grid of fragment ids.
type Layout struct {
	Cols           int
	Rows           int
	FragmentWidth  int
	FragmentHeight int
	Grid           [][]int // [row][col]
	Report         Report
}

// Reconstructor walks a Relation into a Layout.
type Reconstructor struct {
	metric edge.Metric
}

// NewReconstructor returns a Reconstructor that scores seams with metric.
func NewReconstructor(metric edge.Metric) *Reconstructor {
	return &Reconstructor{metric: metric}
}

// Reconstruct finds the top-left fragment and walks the relation row by row.
// Missing neighbours leave the walk where it is, so a weak relation yields a
// layout with repeated fragments; the Report lists them.
func (rc *Reconstructor) Reconstruct(rel *adjacency.Relation, borders adjacency.BorderSet, cols, rows, w, h int) (*Layout, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: grid %dx%d", types.ErrPrecondition, cols, rows)
	}
	ids := borders.IDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no fragments to assemble", types.ErrPrecondition)
	}

	timer := logging.StartTimer(logging.CategoryAssembly, "Reconstruct")
	defer timer.Stop()

	start := TopLeft(rel, ids)

	layout := &Layout{
		Cols:           cols,
		Rows:           rows,
		FragmentWidth:  w,
		FragmentHeight: h,
		Grid:           make([][]int, rows),
	}

	rowAnchor := start
	for row := 0; row < rows; row++ {
		layout.Grid[row] = make([]int, cols)
		cur := rowAnchor
		for col := 0; col < cols; col++ {
			layout.Grid[row][col] = cur
			if col == cols-1 {
				break
			}
			if next, ok := rel.Neighbour(cur, types.Right); ok {
				cur = next
			} else {
				logging.Get(logging.CategoryAssembly).Debug("row %d: no right neighbour for %d", row, cur)
			}
		}
		if row == rows-1 {
			break
		}
		if next, ok := rel.Neighbour(rowAnchor, types.Bottom); ok {
			rowAnchor = next
		} else {
			logging.Get(logging.CategoryAssembly).Debug("no bottom neighbour for row anchor %d", rowAnchor)
		}
	}

	report, err := rc.report(layout, borders, ids)
	if err != nil {
		return nil, err
	}
	layout.Report = report

	if report.Complete() {
		logging.Assembly("assembled %dx%d grid from top-left %d (seam mismatch mean %.4f, max %.4f)",
			cols, rows, start, report.MeanMismatch, report.MaxMismatch)
	} else {
		logging.AssemblyWarn("assembled %dx%d grid with %d repeated and %d missing fragments",
			cols, rows, len(report.Repeated), len(report.Missing))
	}
	return layout, nil
}

// TopLeft picks the fragment the layout starts from. The walk begins at the
// lowest id nobody claims as a Right or Bottom neighbour (else the lowest
// id), then follows Left and then Top as far as they go.
func TopLeft(rel *adjacency.Relation, ids []int) int {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	start := sorted[0]
	for _, id := range sorted {
		if len(rel.Claimants(id, types.Right)) == 0 && len(rel.Claimants(id, types.Bottom)) == 0 {
			start = id
			break
		}
	}

	visited := map[int]bool{start: true}
	cur := start
	for _, d := range []types.Direction{types.Left, types.Top} {
		for {
			next, ok := rel.Neighbour(cur, d)
			if !ok || visited[next] {
				break
			}
			visited[next] = true
			cur = next
		}
	}
	return cur
}

// Positions returns the canonical top-left pixel of every fragment in the
// grid. A fragment repeated by a degraded walk keeps its last cell.
func (l *Layout) Positions() map[int]image.Point {
	out := make(map[int]image.Point)
	for row, ids := range l.Grid {
		for col, id := range ids {
			out[id] = image.Pt(col*l.FragmentWidth, row*l.FragmentHeight)
		}
	}
	return out
}

// Apply writes the canonical coordinates into inst.
func (l *Layout) Apply(inst *types.Instance) error {
	for id, p := range l.Positions() {
		f, err := inst.Fragment(id)
		if err != nil {
			return err
		}
		f.X, f.Y = p.X, p.Y
		inst.Fragments[id] = f
	}
	return nil
}
