package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"puzzled/internal/imagestore"
	"puzzled/internal/puzzle"
	"puzzled/internal/slicer"
	"puzzled/internal/store"
	"puzzled/internal/types"
)

var (
	// Offline shuffling flags
	seed      uint64
	identity  bool
	showTruth bool
)

// offlineSession keys the single puzzle the offline commands work on.
const offlineSession = "offline"

// shuffler picks the shuffle for offline commands: --identity, then
// --seed, then puzzle.shuffle_seed (0 = random).
func shuffler() slicer.Shuffler {
	if identity {
		return slicer.Identity{}
	}
	s := seed
	if s == 0 {
		s = cfg.Puzzle.ShuffleSeed
	}
	return slicer.NewRandomShuffle(s)
}

// reproducible reports whether two runs shuffle the same way.
func reproducible() bool {
	return identity || seed != 0 || cfg.Puzzle.ShuffleSeed != 0
}

// offlineService wires the puzzle service over in-memory stores.
func offlineService(sh slicer.Shuffler) (*puzzle.Service, *store.Memory, error) {
	sessions := store.NewMemory()
	svc, err := puzzle.New(imagestore.NewMemory(imagestore.PNG()), sessions, puzzle.Options{
		Puzzle:     cfg.Puzzle,
		MaxWorkers: cfg.Discovery.MaxWorkers,
		Timeout:    cfg.GetDiscoveryTimeout(),
		Shuffler:   sh,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, sessions, nil
}

func toPlacements(frags []types.Fragment) []types.Placement {
	out := make([]types.Placement, 0, len(frags))
	for _, f := range frags {
		out = append(out, types.Placement{ID: f.ID, X: f.X, Y: f.Y, Width: f.Width, Height: f.Height})
	}
	return out
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func readPlacements(path string) ([]types.Placement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout: %w", err)
	}
	var placements []types.Placement
	if err := json.Unmarshal(data, &placements); err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}
	return placements, nil
}
