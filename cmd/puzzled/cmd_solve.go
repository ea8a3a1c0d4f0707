package main

import (
	"context"
	"fmt"

	"puzzled/internal/assembly"
	"puzzled/internal/imagestore"
	"puzzled/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// solveCmd slices and reassembles an image offline
var solveCmd = &cobra.Command{
	Use:   "solve <image>",
	Short: "Shuffle an image and reconstruct it",
	Long: `Runs the whole pipeline in memory: slice, discover adjacency, resolve
conflicts, rebuild the grid. Prints the reconstructed layout and seam report.`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func runSolve(cmd *cobra.Command, args []string) error {
	img, err := imagestore.DecodeFile(args[0])
	if err != nil {
		return err
	}

	svc, sessions, err := offlineService(shuffler())
	if err != nil {
		return err
	}
	ctx := context.Background()
	if _, err := svc.Upload(ctx, offlineSession, args[0], img); err != nil {
		return err
	}
	_, layout, err := svc.Assemble(ctx, offlineSession)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderGrid("Reconstructed layout", layout.Grid, layout.Report.Repeated))
	fmt.Fprintln(out, renderReport(layout.Report))

	inst, err := sessions.Get(ctx, offlineSession)
	if err != nil {
		return err
	}
	truth := truthGrid(inst)
	solved := cmp.Equal(truth, layout.Grid)
	if showTruth {
		fmt.Fprintln(out, renderGrid("Ground truth", truth, nil))
	}
	fmt.Fprintln(out, renderVerdict(solved))

	logger.Info("solved image",
		zap.String("source", args[0]),
		zap.Bool("complete", layout.Report.Complete()),
		zap.Bool("matches_truth", solved),
		zap.Float64("mean_mismatch", layout.Report.MeanMismatch))
	return nil
}

// truthGrid lays out fragment ids by the cell their pixels came from.
func truthGrid(inst *types.Instance) [][]int {
	grid := make([][]int, inst.Rows)
	for i := range grid {
		grid[i] = make([]int, inst.Cols)
	}
	for _, f := range inst.Fragments {
		grid[f.Home.Row][f.Home.Col] = f.ID
	}
	return grid
}

func reportRows(r assembly.Report) [][]string {
	rows := [][]string{
		{"seams", fmt.Sprint(r.Seams)},
		{"mean mismatch", fmt.Sprintf("%.4f", r.MeanMismatch)},
		{"std dev", fmt.Sprintf("%.4f", r.StdDevMismatch)},
		{"max mismatch", fmt.Sprintf("%.4f", r.MaxMismatch)},
	}
	if len(r.Repeated) > 0 {
		rows = append(rows, []string{"repeated", fmt.Sprint(r.Repeated)})
	}
	if len(r.Missing) > 0 {
		rows = append(rows, []string{"missing", fmt.Sprint(r.Missing)})
	}
	return rows
}
