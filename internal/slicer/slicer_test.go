package slicer

import (
	"image"
	"image/color"
	"sort"
	"testing"

	"puzzled/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// source returns an image whose every pixel is unique.
func source(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func TestSlice_RoundTrip(t *testing.T) {
	src := source(50, 40)
	for name, sh := range map[string]Shuffler{
		"identity": Identity{},
		"random":   NewRandomShuffle(42),
	} {
		t.Run(name, func(t *testing.T) {
			s, err := New(5, 4, sh)
			require.NoError(t, err)
			res, err := s.Slice(src)
			require.NoError(t, err)

			require.Len(t, res.Pieces, 20)
			assert.Equal(t, 10, res.FragmentWidth)
			assert.Equal(t, 10, res.FragmentHeight)

			// Writing each piece back at its home cell recreates the source.
			out := image.NewRGBA(src.Bounds())
			for _, p := range res.Pieces {
				home := p.Fragment.Home
				for y := 0; y < res.FragmentHeight; y++ {
					for x := 0; x < res.FragmentWidth; x++ {
						out.Set(home.Col*10+x, home.Row*10+y, p.Image.At(x, y))
					}
				}
			}
			assert.Equal(t, src.Pix, out.Pix)
		})
	}
}

func TestSlice_PermutationProperty(t *testing.T) {
	s, err := New(4, 3, NewRandomShuffle(7))
	require.NoError(t, err)
	res, err := s.Slice(source(40, 30))
	require.NoError(t, err)

	ids := make([]int, 0, len(res.Pieces))
	cells := map[types.Cell]bool{}
	for i, p := range res.Pieces {
		assert.Equal(t, i, p.Fragment.ID, "pieces are ordered by id")
		ids = append(ids, p.Fragment.ID)
		cells[p.Fragment.Home] = true

		slot := Slot(p.Fragment.ID, 4, 10, 10)
		assert.Equal(t, slot.X, p.Fragment.X)
		assert.Equal(t, slot.Y, p.Fragment.Y)
	}
	sort.Ints(ids)
	want := Identity{}.Perm(12)
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("ids not a permutation (-want +got):\n%s", diff)
	}
	assert.Len(t, cells, 12, "every cell is used exactly once")
}

func TestSlice_IdentityKeepsHomeAtSlot(t *testing.T) {
	s, err := New(3, 2, nil)
	require.NoError(t, err)
	res, err := s.Slice(source(30, 20))
	require.NoError(t, err)

	for _, p := range res.Pieces {
		assert.Equal(t, p.Fragment.ID%3, p.Fragment.Home.Col)
		assert.Equal(t, p.Fragment.ID/3, p.Fragment.Home.Row)
	}
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}}, res.Truth())
}

func TestSlice_DropsRemainder(t *testing.T) {
	s, err := New(3, 2, nil)
	require.NoError(t, err)
	res, err := s.Slice(source(32, 21))
	require.NoError(t, err)

	assert.Equal(t, 10, res.FragmentWidth)
	assert.Equal(t, 10, res.FragmentHeight)
	last := res.Pieces[5]
	assert.Equal(t, image.Rect(0, 0, 10, 10), last.Image.Bounds())
	assert.Equal(t, color.RGBA{R: 20, G: 10, B: 20 ^ 10, A: 255}, last.Image.At(0, 0))
}

func TestSlice_HonoursSourceOrigin(t *testing.T) {
	full := source(40, 40)
	sub := full.SubImage(image.Rect(10, 10, 30, 30))

	s, err := New(2, 2, nil)
	require.NoError(t, err)
	res, err := s.Slice(sub)
	require.NoError(t, err)
	assert.Equal(t, full.At(10, 10), res.Pieces[0].Image.At(0, 0))
	assert.Equal(t, full.At(20, 20), res.Pieces[3].Image.At(0, 0))
}

func TestSlice_ZeroFragmentIsPrecondition(t *testing.T) {
	s, err := New(5, 4, nil)
	require.NoError(t, err)
	_, err = s.Slice(source(4, 40))
	assert.ErrorIs(t, err, types.ErrPrecondition)
}

func TestNew_RejectsEmptyGrid(t *testing.T) {
	_, err := New(0, 3, nil)
	assert.ErrorIs(t, err, types.ErrPrecondition)
}

type badShuffle struct{ perm []int }

func (b badShuffle) Perm(int) []int { return b.perm }

func TestSlice_RejectsBrokenShuffler(t *testing.T) {
	for name, perm := range map[string][]int{
		"short":     {0, 1, 2},
		"duplicate": {0, 0, 1, 2},
		"range":     {0, 1, 2, 9},
	} {
		t.Run(name, func(t *testing.T) {
			s, err := New(2, 2, badShuffle{perm})
			require.NoError(t, err)
			_, err = s.Slice(source(10, 10))
			assert.ErrorIs(t, err, types.ErrPrecondition)
		})
	}
}

func TestRandomShuffle_SeedIsReproducible(t *testing.T) {
	a := NewRandomShuffle(99).Perm(20)
	b := NewRandomShuffle(99).Perm(20)
	assert.Equal(t, a, b)
}
