// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiredSessions removes session tokens past their expiry.
type ExpiredSessions interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExpiredStates removes OAuth states past their expiry.
type ExpiredStates interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// SessionCleanup is a background worker that removes expired session tokens
// and OAuth states. The TTL indexes do the same lazily; this keeps the
// collections tight between TTL monitor passes.
type SessionCleanup struct {
	sessions ExpiredSessions
	states   ExpiredStates
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionCleanup creates a new session cleanup worker. states may be nil.
func NewSessionCleanup(sessions ExpiredSessions, states ExpiredStates, logger *zap.Logger, interval time.Duration) *SessionCleanup {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SessionCleanup{
		sessions: sessions,
		states:   states,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *SessionCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session cleanup worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. Safe to call
// more than once.
func (w *SessionCleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("session cleanup worker stopped")
	})
}

func (w *SessionCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.cleanup()
		}
	}
}

func (w *SessionCleanup) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if n, err := w.sessions.DeleteExpired(ctx); err != nil {
		w.log.Error("failed to delete expired sessions", zap.Error(err))
	} else if n > 0 {
		w.log.Info("deleted expired sessions", zap.Int64("count", n))
	}

	if w.states == nil {
		return
	}
	if n, err := w.states.CleanupExpired(ctx); err != nil {
		w.log.Error("failed to delete expired oauth states", zap.Error(err))
	} else if n > 0 {
		w.log.Info("deleted expired oauth states", zap.Int64("count", n))
	}
}
