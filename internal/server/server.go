// Package server exposes the puzzle service over HTTP.
package server

import (
	"context"
	"errors"
	"image"
	"net"
	"net/http"
	"time"

	"puzzled/internal/assembly"
	"puzzled/internal/logging"
	"puzzled/internal/types"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Puzzles is the service the HTTP layer drives.
type Puzzles interface {
	Upload(ctx context.Context, session, name string, img image.Image) ([]types.Fragment, error)
	Fragments(ctx context.Context, session string) ([]types.Fragment, error)
	FragmentImage(ctx context.Context, session string, id int) ([]byte, string, error)
	Check(ctx context.Context, session string, placements []types.Placement) (bool, error)
	Assemble(ctx context.Context, session string) ([]types.Fragment, *assembly.Layout, error)
	Reset(ctx context.Context, session string) error
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	CookieName     string
	MaxUploadBytes int64
	MaxConnections int // 0 = unlimited
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server serves the puzzle API.
type Server struct {
	puzzles Puzzles
	logger  *zap.Logger
	opts    Options
	mux     *http.ServeMux
}

// New builds the server and its routes.
func New(puzzles Puzzles, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CookieName == "" {
		opts.CookieName = "puzzle_session"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}

	s := &Server{puzzles: puzzles, logger: logger, opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /api/puzzles/upload", s.handleUpload)
	s.mux.HandleFunc("GET /api/puzzles", s.handleList)
	s.mux.HandleFunc("GET /api/puzzles/{id}/image", s.handleImage)
	s.mux.HandleFunc("POST /api/puzzles/check", s.handleCheck)
	s.mux.HandleFunc("POST /api/puzzles/assemble", s.handleAssemble)
	s.mux.HandleFunc("POST /api/puzzles/reset", s.handleReset)
	return s
}

// Handler returns the routed handler wrapped in access logging.
func (s *Server) Handler() http.Handler {
	return s.accessLog(s.mux)
}

// ListenAndServe listens on Options.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.opts.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.opts.MaxConnections)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("puzzle API listening", zap.String("addr", ln.Addr().String()),
		zap.Int("max_connections", s.opts.MaxConnections))
	logging.Server("listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		logging.Server("server stopped")
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("elapsed", time.Since(start)))
	})
}
