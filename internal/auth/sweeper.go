package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically closes expired sessions.
type Sweeper struct {
	sessions *SessionStore
	interval time.Duration
	logger   *zap.Logger
	ticker   *time.Ticker
	done     chan struct{}
}

func NewSweeper(sessions *SessionStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{sessions: sessions, interval: interval, logger: logger}
}

// Start begins the background ticker. A non-positive interval leaves the
// sweeper idle.
func (s *Sweeper) Start() {
	if s.interval <= 0 {
		return
	}
	s.done = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)
	go s.run(s.done)
	s.logger.Info("session sweeper started", zap.Duration("interval", s.interval))
}

func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
}

func (s *Sweeper) run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case <-s.ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep runs one pass and returns the number of sessions closed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.sessions.ExpireStale(ctx)
	if err != nil {
		s.logger.Error("session sweep", zap.Error(err))
		return 0
	}
	if n > 0 {
		s.logger.Info("session sweep closed expired sessions", zap.Int64("count", n))
	}
	return n
}
