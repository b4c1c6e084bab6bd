package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cleaner is the part of a backend the sweeper needs: a way to drop entries
// whose TTL has passed. InMemoryStorage satisfies it for any state type.
type Cleaner interface {
	Cleanup(now time.Time) int
}

// Sweeper evicts expired window state on a cron schedule. Backends spawn no
// goroutines on their own; hosts that want automatic eviction run a Sweeper
// next to the backend.
type Sweeper struct {
	cleaner  Cleaner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a sweeper for the given backend. The schedule uses
// standard cron syntax, e.g. "*/5 * * * *" for every five minutes. A nil
// logger falls back to slog.Default.
func NewSweeper(cleaner Cleaner, schedule string, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cleaner:  cleaner,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "ratelimit.sweeper"),
	}
}

// Start begins scheduled eviction. An empty schedule is a no-op. The sweeper
// stops when the context is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if s.schedule == "" {
		s.logger.Info("eviction schedule not configured, skipping sweeper")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid eviction schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("failed to schedule eviction: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.stopCh = make(chan struct{})

	s.logger.Info("eviction sweeper started", "schedule", s.schedule)

	// The watcher exits on Stop too, so a long-lived context does not
	// strand a goroutine per Start.
	stop := s.stopCh
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()

	return nil
}

// Stop halts scheduled eviction. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	close(s.stopCh)
	s.stopCh = nil
	s.logger.Info("eviction sweeper stopped")
}

// Running reports whether the sweeper is currently scheduled.
func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// sweep runs one eviction cycle.
func (s *Sweeper) sweep() {
	deleted := s.cleaner.Cleanup(time.Now())
	if deleted > 0 {
		s.logger.Info("evicted expired limiter state", "deleted", deleted)
	}
}
