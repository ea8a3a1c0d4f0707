// Package puzzle exposes the puzzle lifecycle of a session: upload, list,
// fetch fragment pixels, check an arrangement, assemble and reset.
package puzzle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"puzzled/internal/adjacency"
	"puzzled/internal/assembly"
	"puzzled/internal/config"
	"puzzled/internal/edge"
	"puzzled/internal/imagestore"
	"puzzled/internal/logging"
	"puzzled/internal/slicer"
	"puzzled/internal/store"
	"puzzled/internal/types"
	"puzzled/internal/verify"
)

// Options configures a Service.
type Options struct {
	Puzzle     config.PuzzleConfig
	MaxWorkers int           // Discovery concurrency, 0 = unbounded
	Timeout    time.Duration // Discovery deadline, 0 = none
	Shuffler   slicer.Shuffler
}

// Service runs puzzle operations against the image and session stores.
// Operations on different sessions are independent; callers must not
// overlap operations on the same session.
type Service struct {
	images   imagestore.Store
	sessions store.Sessions

	mu     sync.RWMutex
	puzzle config.PuzzleConfig
	metric edge.Metric

	shuffle    slicer.Shuffler
	maxWorkers int
	timeout    time.Duration
}

// New returns a Service. A nil Shuffler means a uniform shuffle seeded
// from Puzzle.ShuffleSeed.
func New(images imagestore.Store, sessions store.Sessions, opts Options) (*Service, error) {
	if images == nil || sessions == nil {
		return nil, fmt.Errorf("puzzle service needs an image store and a session store")
	}
	s := &Service{
		images:     images,
		sessions:   sessions,
		shuffle:    opts.Shuffler,
		maxWorkers: opts.MaxWorkers,
		timeout:    opts.Timeout,
	}
	if s.shuffle == nil {
		s.shuffle = slicer.NewRandomShuffle(opts.Puzzle.ShuffleSeed)
	}
	if err := s.SetPuzzleConfig(opts.Puzzle); err != nil {
		return nil, err
	}
	return s, nil
}

// SetPuzzleConfig swaps the grid and thresholds. Existing puzzles keep the
// grid they were sliced with; new thresholds apply to the next check or
// assemble.
func (s *Service) SetPuzzleConfig(pc config.PuzzleConfig) error {
	if err := pc.Validate(); err != nil {
		return err
	}
	metric, err := edge.NewMetric(pc.ColorThreshold, pc.MeanErrorThreshold)
	if err != nil {
		return err
	}
	if pc.AssetName == "" {
		pc.AssetName = "image"
	}

	s.mu.Lock()
	s.puzzle = pc
	s.metric = metric
	s.mu.Unlock()
	return nil
}

func (s *Service) settings() (config.PuzzleConfig, edge.Metric) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puzzle, s.metric
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Upload slices img into a new puzzle for session, replacing any previous
// one and deleting its stored fragments. name is the client file name and
// only shapes the storage keys.
func (s *Service) Upload(ctx context.Context, session, name string, img image.Image) (frags []types.Fragment, err error) {
	start := time.Now()
	defer func() {
		logging.AuditWithSession(session).Operation(logging.AuditPuzzleUpload, start, err,
			map[string]interface{}{"name": name, "fragments": len(frags)})
	}()

	pc, _ := s.settings()
	sl, err := slicer.New(pc.Cols, pc.Rows, s.shuffle)
	if err != nil {
		return nil, err
	}
	res, err := sl.Slice(img)
	if err != nil {
		return nil, err
	}

	if err := s.discard(ctx, session); err != nil {
		return nil, err
	}

	asset := assetName(name, pc.AssetName)
	inst := &types.Instance{
		Session:        session,
		Asset:          asset,
		Cols:           res.Cols,
		Rows:           res.Rows,
		FragmentWidth:  res.FragmentWidth,
		FragmentHeight: res.FragmentHeight,
		Fragments:      make(map[int]types.Fragment, len(res.Pieces)),
		CreatedAt:      time.Now().UTC(),
	}
	for _, p := range res.Pieces {
		f := p.Fragment
		f.ImageName = imagestore.FragmentName(session, asset, f.ID)
		if err := s.images.Put(ctx, f.ImageName, p.Image); err != nil {
			s.cleanup(session)
			return nil, err
		}
		inst.Fragments[f.ID] = f
	}

	if err := s.sessions.Put(ctx, inst); err != nil {
		s.cleanup(session)
		return nil, err
	}

	logging.Session("session %s: uploaded %q as %dx%d puzzle of %dx%d fragments",
		session, name, inst.Cols, inst.Rows, inst.FragmentWidth, inst.FragmentHeight)
	return inst.Sorted(), nil
}

// Fragments returns the session's fragments ordered by id.
func (s *Service) Fragments(ctx context.Context, session string) ([]types.Fragment, error) {
	inst, err := s.sessions.Get(ctx, session)
	if err != nil {
		return nil, err
	}
	return inst.Sorted(), nil
}

// FragmentImage returns the stored bytes of one fragment and their content type.
func (s *Service) FragmentImage(ctx context.Context, session string, id int) ([]byte, string, error) {
	inst, err := s.sessions.Get(ctx, session)
	if err != nil {
		return nil, "", err
	}
	f, err := inst.Fragment(id)
	if err != nil {
		return nil, "", err
	}
	data, err := s.images.Raw(ctx, f.ImageName)
	if err != nil {
		return nil, "", err
	}
	return data, s.images.ContentType(), nil
}

// Check verifies a client arrangement. A session without a puzzle never verifies.
func (s *Service) Check(ctx context.Context, session string, placements []types.Placement) (ok bool, err error) {
	start := time.Now()
	defer func() {
		logging.AuditWithSession(session).Operation(logging.AuditPuzzleCheck, start, err,
			map[string]interface{}{"placements": len(placements), "ok": ok})
	}()

	inst, err := s.sessions.Get(ctx, session)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	borders, err := s.loadBorders(ctx, inst)
	if err != nil {
		return false, err
	}
	_, metric := s.settings()
	return verify.New(metric).Verify(inst, borders, placements)
}

// Assemble reconstructs the session's puzzle and stores the canonical
// coordinates. Nothing is written unless the whole pipeline succeeds.
func (s *Service) Assemble(ctx context.Context, session string) (frags []types.Fragment, layout *assembly.Layout, err error) {
	start := time.Now()
	defer func() {
		fields := map[string]interface{}{}
		if layout != nil {
			fields["complete"] = layout.Report.Complete()
			fields["mean_mismatch"] = layout.Report.MeanMismatch
		}
		logging.AuditWithSession(session).Operation(logging.AuditPuzzleAssemble, start, err, fields)
	}()

	inst, err := s.sessions.Get(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	work := inst.Clone()

	borders, err := s.loadBorders(ctx, work)
	if err != nil {
		return nil, nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, metric := s.settings()
	cs, err := adjacency.NewDiscoverer(metric, s.maxWorkers).Discover(ctx, borders)
	if err != nil {
		return nil, nil, err
	}
	rel, err := adjacency.NewResolver(metric).Resolve(cs, borders)
	if err != nil {
		return nil, nil, err
	}
	layout, err = assembly.NewReconstructor(metric).
		Reconstruct(rel, borders, work.Cols, work.Rows, work.FragmentWidth, work.FragmentHeight)
	if err != nil {
		return nil, nil, err
	}
	if err := layout.Apply(work); err != nil {
		return nil, nil, err
	}

	if err := s.sessions.Put(ctx, work); err != nil {
		return nil, nil, err
	}
	return work.Sorted(), layout, nil
}

// Reset drops the session's puzzle and its stored fragments.
func (s *Service) Reset(ctx context.Context, session string) (err error) {
	start := time.Now()
	defer func() {
		logging.AuditWithSession(session).Operation(logging.AuditPuzzleReset, start, err, nil)
	}()

	if err := s.discard(ctx, session); err != nil {
		return err
	}
	logging.Session("session %s: reset", session)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) discard(ctx context.Context, session string) error {
	if err := s.images.DeleteTree(ctx, session); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, session)
}

// cleanup removes a half-written upload.
func (s *Service) cleanup(session string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.discard(ctx, session); err != nil {
		logging.Get(logging.CategorySession).Error("session %s: cleanup after failed upload: %v", session, err)
	}
}

func (s *Service) loadBorders(ctx context.Context, inst *types.Instance) (adjacency.BorderSet, error) {
	borders := make(adjacency.BorderSet, inst.Len())
	for _, f := range inst.Sorted() {
		img, err := s.images.Get(ctx, f.ImageName)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", f.ID, err)
		}
		b, err := edge.NewBorders(img)
		if err != nil {
			return nil, fmt.Errorf("fragment %d: %w", f.ID, err)
		}
		borders[f.ID] = b
	}
	return borders, nil
}

// assetName derives a storage-safe stem from a client file name.
func assetName(name, fallback string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fallback
	}
	return b.String()
}
