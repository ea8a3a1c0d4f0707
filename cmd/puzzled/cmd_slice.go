package main

import (
	"context"
	"fmt"
	"path/filepath"

	"puzzled/internal/imagestore"
	"puzzled/internal/slicer"
	"puzzled/internal/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// sliceCmd cuts an image into fragment files
var sliceCmd = &cobra.Command{
	Use:   "slice <image> <outdir>",
	Short: "Cut an image into shuffled fragment files",
	Long: `Writes one file per fragment (<asset>_<id>.<ext>) plus two layouts:
  fragments.json  the shuffled starting positions
  solution.json   the ground-truth positions (verifies with "puzzled check")`,
	Args: cobra.ExactArgs(2),
	RunE: runSlice,
}

func runSlice(cmd *cobra.Command, args []string) error {
	src, outDir := args[0], args[1]

	img, err := imagestore.DecodeFile(src)
	if err != nil {
		return err
	}
	sl, err := slicer.New(cfg.Puzzle.Cols, cfg.Puzzle.Rows, shuffler())
	if err != nil {
		return err
	}
	res, err := sl.Slice(img)
	if err != nil {
		return err
	}

	codec, err := imagestore.NewCodec(cfg.Storage.Codec, cfg.Storage.JPEGQuality)
	if err != nil {
		return err
	}
	files, err := imagestore.NewFS(outDir, codec)
	if err != nil {
		return err
	}

	ctx := context.Background()
	frags := make([]types.Fragment, 0, len(res.Pieces))
	solution := make([]types.Placement, 0, len(res.Pieces))
	for _, p := range res.Pieces {
		name := fmt.Sprintf("%s_%d", cfg.Puzzle.AssetName, p.Fragment.ID)
		if err := files.Put(ctx, name, p.Image); err != nil {
			return err
		}
		frags = append(frags, p.Fragment)
		solution = append(solution, types.Placement{
			ID:     p.Fragment.ID,
			X:      p.Fragment.Home.Col * res.FragmentWidth,
			Y:      p.Fragment.Home.Row * res.FragmentHeight,
			Width:  res.FragmentWidth,
			Height: res.FragmentHeight,
		})
	}

	if err := writeJSONFile(filepath.Join(outDir, "fragments.json"), frags); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(outDir, "solution.json"), solution); err != nil {
		return err
	}

	logger.Info("sliced image",
		zap.String("source", src),
		zap.String("out", outDir),
		zap.Int("fragments", len(frags)),
		zap.Bool("reproducible", reproducible()))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d fragments of %dx%d to %s\n",
		len(frags), res.FragmentWidth, res.FragmentHeight, outDir)
	return nil
}
