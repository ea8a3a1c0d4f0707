package edge

import (
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"puzzled/internal/types"
)

// gradient builds a w×h image where every pixel is unique-ish.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func randomEdge(r *rand.Rand, n int) Edge {
	e := make(Edge, n)
	for i := range e {
		e[i] = r.Uint32() & 0xFFFFFF
	}
	return e
}

func TestPackUnpack(t *testing.T) {
	p := Pack(color.RGBA{R: 1, G: 2, B: 3, A: 255})
	assert.Equal(t, uint32(0x010203), p)

	r, g, b := Unpack(p)
	assert.Equal(t, []int{1, 2, 3}, []int{r, g, b})
}

func TestExtractSides(t *testing.T) {
	img := gradient(3, 2)

	left, err := Extract(img, types.Left)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, Pack(img.At(0, 1)), left[1])

	right, err := Extract(img, types.Right)
	require.NoError(t, err)
	assert.Equal(t, Pack(img.At(2, 0)), right[0])

	top, err := Extract(img, types.Top)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, Pack(img.At(2, 0)), top[2])

	bottom, err := Extract(img, types.Bottom)
	require.NoError(t, err)
	assert.Equal(t, Pack(img.At(1, 1)), bottom[1])
}

func TestExtractHonoursSubImageBounds(t *testing.T) {
	src := gradient(6, 6)
	sub := src.SubImage(image.Rect(2, 3, 5, 6))

	left, err := Extract(sub, types.Left)
	require.NoError(t, err)
	require.Len(t, left, 3)
	assert.Equal(t, Pack(src.At(2, 3)), left[0])
	assert.Equal(t, Pack(src.At(2, 5)), left[2])
}

func TestExtractRejectsEmptyImage(t *testing.T) {
	_, err := Extract(image.NewRGBA(image.Rect(0, 0, 0, 4)), types.Top)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrPrecondition))

	_, err = NewBorders(image.NewRGBA(image.Rect(0, 0, 4, 0)))
	assert.True(t, errors.Is(err, types.ErrPrecondition))
}

func TestMeanMismatchCountsChannelDifferences(t *testing.T) {
	m := Metric{ColorThreshold: 9, MeanErrorThreshold: 0.13}

	a := Edge{0x000000, 0x000000, 0x000000, 0x000000}
	b := Edge{0x090909, 0x0A0000, 0x00000A, 0x000000}

	mm, err := m.MeanMismatch(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mm, 1e-9)

	idx, err := m.Mismatches(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, idx)

	ok, err := m.Match(a, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMeanMismatchRejectsLengthMismatch(t *testing.T) {
	m := Metric{ColorThreshold: 9, MeanErrorThreshold: 0.13}

	_, err := m.MeanMismatch(Edge{1, 2}, Edge{1})
	assert.True(t, errors.Is(err, types.ErrPrecondition))

	_, err = m.MeanMismatch(Edge{}, Edge{})
	assert.True(t, errors.Is(err, types.ErrPrecondition))
}

func TestMeanMismatchIsSymmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	m := Metric{ColorThreshold: 30, MeanErrorThreshold: 0.13}

	for i := 0; i < 200; i++ {
		a, b := randomEdge(r, 16), randomEdge(r, 16)
		ab, err := m.MeanMismatch(a, b)
		require.NoError(t, err)
		ba, err := m.MeanMismatch(b, a)
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
	}
}

func TestThresholdMonotonicity(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	thresholds := []float64{0, 0.05, 0.13, 0.3, 0.6, 1}

	for i := 0; i < 100; i++ {
		a, b := randomEdge(r, 12), randomEdge(r, 12)
		// Make some positions agree so ratios spread across [0,1].
		same := r.IntN(13)
		for j := 0; j < same; j++ {
			b[j] = a[j]
		}

		matched := false
		for _, th := range thresholds {
			ok, err := Metric{ColorThreshold: 20, MeanErrorThreshold: th}.Match(a, b)
			require.NoError(t, err)
			if matched {
				assert.True(t, ok, "raising threshold to %v turned a match into a non-match", th)
			}
			matched = ok
		}
	}
}

func TestBetweenPairsOppositeSides(t *testing.T) {
	m := Metric{ColorThreshold: 0, MeanErrorThreshold: 0}
	a := Borders{Left: Edge{1, 1}, Right: Edge{2, 2}, Top: Edge{3, 3}, Bottom: Edge{4, 4}}
	b := Borders{Left: Edge{2, 2}, Right: Edge{1, 1}, Top: Edge{4, 4}, Bottom: Edge{3, 3}}

	for _, d := range types.Directions {
		ok, err := m.MatchBetween(a, b, d)
		require.NoError(t, err)
		assert.True(t, ok, "direction %s", d)
	}

	c := Borders{Left: Edge{9, 9}, Right: Edge{9, 9}, Top: Edge{9, 9}, Bottom: Edge{9, 9}}
	mm, err := m.Between(a, c, types.Right)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mm)
}

func TestNewMetricValidatesRanges(t *testing.T) {
	_, err := NewMetric(256, 0.1)
	assert.Error(t, err)
	_, err = NewMetric(9, 1.5)
	assert.Error(t, err)
	m, err := NewMetric(9, 0.13)
	require.NoError(t, err)
	assert.Equal(t, 9, m.ColorThreshold)
}
