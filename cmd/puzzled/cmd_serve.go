package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"puzzled/internal/config"
	"puzzled/internal/imagestore"
	"puzzled/internal/puzzle"
	"puzzled/internal/server"
	"puzzled/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watch bool

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the puzzle HTTP API",
	Long: `Starts the JSON API:
  POST /api/puzzles/upload      multipart field "image"
  GET  /api/puzzles             fragments of the caller's puzzle
  GET  /api/puzzles/{id}/image  stored fragment pixels
  POST /api/puzzles/check       verify a proposed arrangement
  POST /api/puzzles/assemble    reconstruct the puzzle
  POST /api/puzzles/reset       drop the caller's puzzle`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	codec, err := imagestore.NewCodec(cfg.Storage.Codec, cfg.Storage.JPEGQuality)
	if err != nil {
		return err
	}
	images, err := imagestore.NewFS(cfg.Storage.ImageDir, codec)
	if err != nil {
		return err
	}
	sessions, err := store.Open(cfg.Storage.SessionBackend, cfg.Storage.SQLiteDriver, cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer sessions.Close()

	svc, err := puzzle.New(images, sessions, puzzle.Options{
		Puzzle:     cfg.Puzzle,
		MaxWorkers: cfg.Discovery.MaxWorkers,
		Timeout:    cfg.GetDiscoveryTimeout(),
	})
	if err != nil {
		return err
	}

	if watch {
		w, err := config.NewWatcher(cfgPath, func(next *config.Config) {
			if err := svc.SetPuzzleConfig(next.Puzzle); err != nil {
				logger.Warn("config reload rejected", zap.Error(err))
				return
			}
			logger.Info("puzzle config reloaded",
				zap.Int("color_threshold", next.Puzzle.ColorThreshold),
				zap.Float64("mean_error_threshold", next.Puzzle.MeanErrorThreshold))
		})
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		defer w.Stop()
	}

	logger.Info("starting puzzled",
		zap.String("addr", cfg.Server.Addr),
		zap.String("image_dir", cfg.Storage.ImageDir),
		zap.String("sessions", cfg.Storage.SessionBackend),
		zap.Int("cols", cfg.Puzzle.Cols),
		zap.Int("rows", cfg.Puzzle.Rows))

	srv := server.New(svc, logger, server.Options{
		Addr:           cfg.Server.Addr,
		CookieName:     cfg.Server.CookieName,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxConnections: cfg.Server.MaxConnections,
		ReadTimeout:    cfg.GetReadTimeout(),
		WriteTimeout:   cfg.GetWriteTimeout(),
	})
	return srv.ListenAndServe(ctx)
}
