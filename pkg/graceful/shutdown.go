package graceful

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/royal-empire/club_service/pkg/logger"
)

// Stopper is anything that can halt on shutdown: workers, schedulers,
// connection pools.
type Stopper interface {
	Stop()
}

// ShutdownManager drains the HTTP server and stops registered components on
// SIGINT or SIGTERM.
type ShutdownManager struct {
	server   *http.Server
	stoppers []Stopper
	closers  []func() error
	logger   *logger.Logger
}

func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:   server,
		stoppers: make([]Stopper, 0),
		logger:   logger,
	}
}

// Register adds a component stopped before the HTTP server drains.
func (sm *ShutdownManager) Register(s Stopper) {
	sm.stoppers = append(sm.stoppers, s)
}

// RegisterCloser adds a cleanup function run after the server has drained.
func (sm *ShutdownManager) RegisterCloser(fn func() error) {
	sm.closers = append(sm.closers, fn)
}

func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Workers first, so no new settlements start mid-drain.
	for _, s := range sm.stoppers {
		s.Stop()
	}

	if err := sm.server.Shutdown(ctx); err != nil {
		sm.logger.Error("Server forced shutdown", "error", err)
	}

	for _, closeFn := range sm.closers {
		if err := closeFn(); err != nil {
			sm.logger.Warn("Component close error", "error", err)
		}
	}

	sm.logger.Info("Shutdown complete")
}
