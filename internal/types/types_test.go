package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionOpposite(t *testing.T) {
	for _, d := range Directions {
		assert.Equal(t, d, d.Opposite().Opposite(), "double opposite of %s", d)
		assert.NotEqual(t, d, d.Opposite())
	}
	assert.Equal(t, Right, Left.Opposite())
	assert.Equal(t, Bottom, Top.Opposite())
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "LEFT", Left.String())
	assert.Equal(t, "BOTTOM", Bottom.String())
	assert.Equal(t, "Direction(9)", Direction(9).String())
	assert.False(t, Direction(9).Valid())
}

func TestInstanceFragmentLookup(t *testing.T) {
	in := &Instance{
		Session:   "s1",
		Fragments: map[int]Fragment{2: {ID: 2}, 0: {ID: 0}, 1: {ID: 1}},
	}

	f, err := in.Fragment(1)
	require.NoError(t, err)
	assert.Equal(t, 1, f.ID)

	_, err = in.Fragment(7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	sorted := in.Sorted()
	require.Len(t, sorted, 3)
	for i, f := range sorted {
		assert.Equal(t, i, f.ID)
	}
}

func TestInstanceCloneIsIndependent(t *testing.T) {
	in := &Instance{Fragments: map[int]Fragment{0: {ID: 0, X: 5}}}
	cp := in.Clone()

	f := cp.Fragments[0]
	f.X = 99
	cp.Fragments[0] = f

	assert.Equal(t, 5, in.Fragments[0].X)
}
