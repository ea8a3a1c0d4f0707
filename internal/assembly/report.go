package assembly

import (
	"math"
	"sort"

	"puzzled/internal/adjacency"
	"puzzled/internal/types"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Report summarises how well a layout fits together.
type Report struct {
	Seams          int     `json:"seams"`
	MeanMismatch   float64 `json:"mean_mismatch"`
	StdDevMismatch float64 `json:"stddev_mismatch"`
	MaxMismatch    float64 `json:"max_mismatch"`
	Repeated       []int   `json:"repeated,omitempty"` // ids placed more than once
	Missing        []int   `json:"missing,omitempty"`  // ids never placed
}

// Complete reports whether every fragment was placed exactly once.
func (r Report) Complete() bool {
	return len(r.Repeated) == 0 && len(r.Missing) == 0
}

func (rc *Reconstructor) report(l *Layout, borders adjacency.BorderSet, ids []int) (Report, error) {
	var seams []float64
	for row := 0; row < l.Rows; row++ {
		for col := 0; col < l.Cols; col++ {
			cur := borders[l.Grid[row][col]]
			if col+1 < l.Cols {
				m, err := rc.metric.Between(cur, borders[l.Grid[row][col+1]], types.Right)
				if err != nil {
					return Report{}, err
				}
				seams = append(seams, m)
			}
			if row+1 < l.Rows {
				m, err := rc.metric.Between(cur, borders[l.Grid[row+1][col]], types.Bottom)
				if err != nil {
					return Report{}, err
				}
				seams = append(seams, m)
			}
		}
	}

	r := Report{Seams: len(seams)}
	if len(seams) > 0 {
		r.MeanMismatch, r.StdDevMismatch = stat.MeanStdDev(seams, nil)
		if math.IsNaN(r.StdDevMismatch) {
			r.StdDevMismatch = 0
		}
		r.MaxMismatch = floats.Max(seams)
	}

	count := make(map[int]int, len(ids))
	for _, row := range l.Grid {
		for _, id := range row {
			count[id]++
		}
	}
	for id, n := range count {
		if n > 1 {
			r.Repeated = append(r.Repeated, id)
		}
	}
	for _, id := range ids {
		if count[id] == 0 {
			r.Missing = append(r.Missing, id)
		}
	}
	sort.Ints(r.Repeated)
	return r, nil
}
