// Package types provides shared type definitions used across puzzled packages.
// This package exists to break import cycles between the slicer, the adjacency
// pipeline, the stores and the service layer.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"image"
	"sort"
	"time"
)

// =============================================================================
// DIRECTIONS
// =============================================================================

// Direction is a relative spatial relation between two fragments.
// R(a, b, d) reads "b lies immediately in direction d relative to a".
type Direction int

const (
	Left Direction = iota
	Right
	Top
	Bottom
)

// Directions lists every direction in canonical order.
var Directions = [...]Direction{Left, Right, Top, Bottom}

func (d Direction) String() string {
	switch d {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	case Top:
		return "TOP"
	case Bottom:
		return "BOTTOM"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the direction pointing back from the neighbour.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Top:
		return Bottom
	default:
		return Top
	}
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= Left && d <= Bottom
}

// =============================================================================
// FRAGMENTS
// =============================================================================

// Cell is a column/row coordinate in the puzzle grid.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Fragment is one rectangular piece of a sliced source image.
type Fragment struct {
	ID     int `json:"id"`
	X      int `json:"x"` // Current top-left position
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// ImageName is the image store key holding the fragment pixels.
	ImageName string `json:"-"`

	// Home is the grid cell the pixels were cut from. Only the slicer and
	// ground-truth tooling read it; reconstruction never does.
	Home Cell `json:"-"`
}

// Bounds returns the fragment rectangle at its current position.
func (f Fragment) Bounds() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.Width, f.Y+f.Height)
}

// Placement is a client-proposed position for a fragment.
type Placement struct {
	ID     int `json:"id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// =============================================================================
// PUZZLE INSTANCES
// =============================================================================

// Instance is the puzzle owned by one session.
type Instance struct {
	Session        string
	Asset          string
	Cols           int
	Rows           int
	FragmentWidth  int
	FragmentHeight int
	Fragments      map[int]Fragment
	CreatedAt      time.Time
}

// Len returns the number of fragments.
func (in *Instance) Len() int {
	return len(in.Fragments)
}

// Fragment returns the fragment with the given id.
func (in *Instance) Fragment(id int) (Fragment, error) {
	f, ok := in.Fragments[id]
	if !ok {
		return Fragment{}, fmt.Errorf("fragment %d in session %s: %w", id, in.Session, ErrNotFound)
	}
	return f, nil
}

// Sorted returns the fragments ordered by id.
func (in *Instance) Sorted() []Fragment {
	out := make([]Fragment, 0, len(in.Fragments))
	for _, f := range in.Fragments {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clone returns a deep copy safe to mutate.
func (in *Instance) Clone() *Instance {
	cp := *in
	cp.Fragments = make(map[int]Fragment, len(in.Fragments))
	for id, f := range in.Fragments {
		cp.Fragments[id] = f
	}
	return &cp
}
