package edge

import (
	"fmt"

	"puzzled/internal/types"
)

// Metric scores border alignment. It is the single source of truth for every
// adjacency judgement and must stay deterministic and side-effect free.
type Metric struct {
	// ColorThreshold is the largest per-channel difference still counted as equal (0-255).
	ColorThreshold int
	// MeanErrorThreshold is the largest mismatch ratio still counted as a match (0.0-1.0).
	MeanErrorThreshold float64
}

// NewMetric validates thresholds and returns a Metric.
func NewMetric(colorThreshold int, meanErrorThreshold float64) (Metric, error) {
	if colorThreshold < 0 || colorThreshold > 255 {
		return Metric{}, fmt.Errorf("color threshold %d outside [0,255]", colorThreshold)
	}
	if meanErrorThreshold < 0 || meanErrorThreshold > 1 {
		return Metric{}, fmt.Errorf("mean error threshold %v outside [0,1]", meanErrorThreshold)
	}
	return Metric{ColorThreshold: colorThreshold, MeanErrorThreshold: meanErrorThreshold}, nil
}

// MeanMismatch returns the fraction of positions whose pixels differ by more
// than ColorThreshold on any channel.
func (m Metric) MeanMismatch(a, b Edge) (float64, error) {
	if err := checkLengths(a, b); err != nil {
		return 0, err
	}
	mismatched := 0
	for i := range a {
		if !m.pixelsMatch(a[i], b[i]) {
			mismatched++
		}
	}
	return float64(mismatched) / float64(len(a)), nil
}

// Match reports whether two edges line up within MeanErrorThreshold.
func (m Metric) Match(a, b Edge) (bool, error) {
	mm, err := m.MeanMismatch(a, b)
	if err != nil {
		return false, err
	}
	return mm <= m.MeanErrorThreshold, nil
}

// Mismatches returns the indexes of mismatched pixel pairs. Used for
// diagnostics only.
func (m Metric) Mismatches(a, b Edge) ([]int, error) {
	if err := checkLengths(a, b); err != nil {
		return nil, err
	}
	var idx []int
	for i := range a {
		if !m.pixelsMatch(a[i], b[i]) {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

// Between scores fragment b placed in direction d of fragment a:
// Right compares right(a) with left(b), Left compares left(a) with right(b),
// Bottom compares bottom(a) with top(b), Top compares top(a) with bottom(b).
func (m Metric) Between(a, b Borders, d types.Direction) (float64, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("score direction %s: %w", d, types.ErrPrecondition)
	}
	return m.MeanMismatch(a.Side(d), b.Side(d.Opposite()))
}

// MatchBetween reports whether b fits in direction d of a.
func (m Metric) MatchBetween(a, b Borders, d types.Direction) (bool, error) {
	mm, err := m.Between(a, b, d)
	if err != nil {
		return false, err
	}
	return mm <= m.MeanErrorThreshold, nil
}

func (m Metric) pixelsMatch(p, q uint32) bool {
	r1, g1, b1 := Unpack(p)
	r2, g2, b2 := Unpack(q)
	return abs(r1-r2) <= m.ColorThreshold &&
		abs(g1-g2) <= m.ColorThreshold &&
		abs(b1-b2) <= m.ColorThreshold
}

func checkLengths(a, b Edge) error {
	if len(a) != len(b) {
		return fmt.Errorf("edge lengths differ (%d vs %d): %w", len(a), len(b), types.ErrPrecondition)
	}
	if len(a) == 0 {
		return fmt.Errorf("empty edge: %w", types.ErrPrecondition)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
