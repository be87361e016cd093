package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/waghmarepb/consolidate/internal/config"
	"github.com/waghmarepb/consolidate/internal/exceldata"
	"github.com/waghmarepb/consolidate/internal/logging"
)

// Server runs the ingestion HTTP API on top of an exceldata store.
type Server struct {
	cfg      *config.Config
	store    *exceldata.Store
	logger   *slog.Logger
	lock     *flock.Flock
	lockPath string
	now      func() time.Time
}

// New creates a server bound to cfg and store. The store remains owned by
// the caller.
func New(cfg *config.Config, store *exceldata.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "server.lock")
	return &Server{
		cfg:      cfg,
		store:    store,
		logger:   logging.WithComponent(logger, "server"),
		lock:     flock.New(lockPath),
		lockPath: lockPath,
		now:      time.Now,
	}
}

// Run serves the API until ctx is cancelled, then shuts down gracefully. It
// refuses to start when another instance already holds the server lock.
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure data directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire server lock: %w", err)
	}
	if !ok {
		return errors.New("another consolidate server instance is already running")
	}
	defer func() {
		_ = s.lock.Unlock()
		_ = os.Remove(s.lockPath)
	}()

	httpServer := &http.Server{
		Addr:              s.cfg.Server.Bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ingestion server listening", logging.String("bind", s.cfg.Server.Bind))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
