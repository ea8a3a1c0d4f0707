package main

import (
	"context"
	"fmt"

	"puzzled/internal/imagestore"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCmd verifies a layout file against a re-sliced image
var checkCmd = &cobra.Command{
	Use:   "check <image> <layout.json>",
	Short: "Verify an arrangement of an image's fragments",
	Long: `Re-slices the image with the same --seed (or --identity) used by "slice"
and checks that the placements in layout.json line up edge to edge.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	if !reproducible() {
		return fmt.Errorf("check needs --seed, --identity or puzzle.shuffle_seed to reproduce the fragments")
	}

	img, err := imagestore.DecodeFile(args[0])
	if err != nil {
		return err
	}
	placements, err := readPlacements(args[1])
	if err != nil {
		return err
	}

	svc, _, err := offlineService(shuffler())
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := svc.Upload(ctx, offlineSession, args[0], img); err != nil {
		return err
	}

	ok, err := svc.Check(ctx, offlineSession, placements)
	if err != nil {
		return err
	}
	logger.Debug("checked layout", zap.String("layout", args[1]), zap.Bool("ok", ok))
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}
