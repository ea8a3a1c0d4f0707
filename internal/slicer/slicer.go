// Package slicer cuts a source image into a shuffled grid of fragments.
package slicer

import (
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"puzzled/internal/logging"
	"puzzled/internal/types"

	"golang.org/x/image/draw"
)

// Shuffler produces a permutation of [0, n).
type Shuffler interface {
	Perm(n int) []int
}

// RandomShuffle is a uniform shuffler. Safe for concurrent use.
type RandomShuffle struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomShuffle returns a shuffler seeded with seed. A zero seed draws
// a fresh seed so every process shuffles differently.
func NewRandomShuffle(seed uint64) *RandomShuffle {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomShuffle{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Perm implements Shuffler.
func (s *RandomShuffle) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Perm(n)
}

// Identity leaves fragments in source order.
type Identity struct{}

// Perm implements Shuffler.
func (Identity) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}

// Piece is one cut fragment with its pixels.
type Piece struct {
	Fragment types.Fragment
	Image    *image.RGBA
}

// Result is the output of one slicing pass, pieces ordered by id.
type Result struct {
	Cols           int
	Rows           int
	FragmentWidth  int
	FragmentHeight int
	Pieces         []Piece
}

// Slicer cuts images into Cols x Rows fragments.
type Slicer struct {
	cols    int
	rows    int
	shuffle Shuffler
}

// New returns a Slicer. A nil shuffler means Identity.
func New(cols, rows int, shuffle Shuffler) (*Slicer, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("%w: grid %dx%d", types.ErrPrecondition, cols, rows)
	}
	if shuffle == nil {
		shuffle = Identity{}
	}
	return &Slicer{cols: cols, rows: rows, shuffle: shuffle}, nil
}

// Slot returns the top-left pixel of the grid slot that belongs to id.
func Slot(id, cols, w, h int) image.Point {
	return image.Pt((id%cols)*w, (id/cols)*h)
}

// Slice cuts src. Any remainder strip on the right or bottom is dropped.
func (s *Slicer) Slice(src image.Image) (*Result, error) {
	b := src.Bounds()
	w, h := b.Dx()/s.cols, b.Dy()/s.rows
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: %dx%d image too small for %dx%d grid",
			types.ErrPrecondition, b.Dx(), b.Dy(), s.cols, s.rows)
	}

	n := s.cols * s.rows
	perm := s.shuffle.Perm(n)
	if len(perm) != n {
		return nil, fmt.Errorf("%w: shuffler returned %d ids for %d cells", types.ErrPrecondition, len(perm), n)
	}

	res := &Result{
		Cols:           s.cols,
		Rows:           s.rows,
		FragmentWidth:  w,
		FragmentHeight: h,
		Pieces:         make([]Piece, n),
	}
	seen := make([]bool, n)

	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			id := perm[row*s.cols+col]
			if id < 0 || id >= n || seen[id] {
				return nil, fmt.Errorf("%w: shuffler produced invalid id %d", types.ErrPrecondition, id)
			}
			seen[id] = true

			cell := image.Rect(b.Min.X+col*w, b.Min.Y+row*h, b.Min.X+(col+1)*w, b.Min.Y+(row+1)*h)
			dst := image.NewRGBA(image.Rect(0, 0, w, h))
			draw.Copy(dst, image.Point{}, src, cell, draw.Src, nil)

			slot := Slot(id, s.cols, w, h)
			res.Pieces[id] = Piece{
				Fragment: types.Fragment{
					ID:     id,
					X:      slot.X,
					Y:      slot.Y,
					Width:  w,
					Height: h,
					Home:   types.Cell{Col: col, Row: row},
				},
				Image: dst,
			}
		}
	}

	logging.Slicer("sliced %dx%d image into %dx%d fragments of %dx%d",
		b.Dx(), b.Dy(), s.cols, s.rows, w, h)
	return res, nil
}

// Truth returns the ground-truth layout: ids indexed by [row][col] of the
// cell their pixels came from.
func (r *Result) Truth() [][]int {
	grid := make([][]int, r.Rows)
	for i := range grid {
		grid[i] = make([]int, r.Cols)
	}
	for _, p := range r.Pieces {
		grid[p.Fragment.Home.Row][p.Fragment.Home.Col] = p.Fragment.ID
	}
	return grid
}
