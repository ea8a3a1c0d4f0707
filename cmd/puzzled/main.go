// Command puzzled reconstructs shuffled image puzzles from border similarity.
package main

import (
	"fmt"
	"os"

	"puzzled/internal/config"
	"puzzled/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Loaded in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "puzzled",
	Short: "puzzled - jigsaw reconstruction from fragment borders",
	Long: `puzzled cuts an image into a shuffled grid of fragments and puts it back
together using nothing but the similarity of fragment borders.

Run "puzzled serve" for the HTTP API, or use slice/solve/check offline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", cfgPath, err)
		}

		if err := logging.Initialize(cfg.Logging.Options()); err != nil {
			logger.Warn("file logging disabled", zap.Error(err))
		}
		logging.Boot("config loaded from %s", cfgPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
		logging.CloseAudit()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "puzzled.yaml", "Config file (missing file = defaults)")

	// Offline shuffling flags
	for _, c := range []*cobra.Command{sliceCmd, solveCmd, checkCmd} {
		c.Flags().Uint64Var(&seed, "seed", 0, "Shuffle seed (0 = puzzle.shuffle_seed from config)")
		c.Flags().BoolVar(&identity, "identity", false, "Skip the shuffle")
	}
	solveCmd.Flags().BoolVar(&showTruth, "truth", false, "Also print the ground-truth layout")
	serveCmd.Flags().BoolVar(&watch, "watch", false, "Reload puzzle thresholds when the config file changes")

	configCmd.AddCommand(configInitCmd)

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sliceCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
