package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"puzzled/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// BACKEND MATRIX
// =============================================================================

func backends(t *testing.T) map[string]Sessions {
	t.Helper()
	dir := t.TempDir()

	cgo, err := NewSQLite("sqlite3", filepath.Join(dir, "cgo", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cgo.Close() })

	pure, err := NewSQLite("sqlite", filepath.Join(dir, "pure", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pure.Close() })

	return map[string]Sessions{
		"memory":         NewMemory(),
		"sqlite/sqlite3": cgo,
		"sqlite/modernc": pure,
	}
}

func instance(session string, n int) *types.Instance {
	inst := &types.Instance{
		Session:        session,
		Asset:          "image",
		Cols:           n,
		Rows:           1,
		FragmentWidth:  10,
		FragmentHeight: 8,
		Fragments:      make(map[int]types.Fragment),
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
	}
	for i := 0; i < n; i++ {
		inst.Fragments[i] = types.Fragment{
			ID: i, X: i * 10, Width: 10, Height: 8,
			ImageName: session + "/image_" + string(rune('0'+i)),
			Home:      types.Cell{Col: n - 1 - i},
		}
	}
	return inst
}

func TestSessions_PutGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			want := instance("s1", 3)
			require.NoError(t, s.Put(ctx, want))

			got, err := s.Get(ctx, "s1")
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("instance mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSessions_PutReplaces(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, instance("s1", 4)))
			require.NoError(t, s.Put(ctx, instance("s1", 2)))

			got, err := s.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 2, got.Len(), "stale fragments must not survive a replace")
		})
	}
}

func TestSessions_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, instance("s1", 2)))

			got, err := s.Get(ctx, "s1")
			require.NoError(t, err)
			f := got.Fragments[0]
			f.X = 999
			got.Fragments[0] = f

			again, err := s.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, 0, again.Fragments[0].X)
		})
	}
}

func TestSessions_DeleteIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, instance("a", 2)))
			require.NoError(t, s.Put(ctx, instance("b", 3)))

			require.NoError(t, s.Delete(ctx, "a"))
			require.NoError(t, s.Delete(ctx, "never-existed"))

			_, err := s.Get(ctx, "a")
			assert.ErrorIs(t, err, types.ErrNotFound)

			b, err := s.Get(ctx, "b")
			require.NoError(t, err)
			assert.Equal(t, 3, b.Len())
		})
	}
}

func TestSessions_UnknownIsNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, types.ErrNotFound)
		})
	}
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.db")
	s, err := NewSQLite("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), instance("s1", 2)))
	require.NoError(t, s.Close())

	s, err = NewSQLite("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open("redis", "", "")
	assert.Error(t, err)

	_, err = NewSQLite("postgres", filepath.Join(t.TempDir(), "x.db"))
	assert.Error(t, err)
}
