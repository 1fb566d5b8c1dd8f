package sweeper

import (
	"carbid/utils"
	"context"
	"time"
)

// ExpiredCloser ends all active auctions past their end time and reports
// how many were closed. Implemented by the auction service.
type ExpiredCloser interface {
	CloseExpired(now time.Time) (int, error)
}

// Sweeper periodically closes expired auctions. It is the authoritative
// active->ended transition; lazy expiry at bid time is only
// defense-in-depth.
type Sweeper struct {
	closer   ExpiredCloser
	interval time.Duration
	now      func() time.Time
}

// New creates a sweeper with the given tick interval.
func New(closer ExpiredCloser, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		closer:   closer,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. A failed sweep is logged and retried on the next tick; it
// never takes the process down.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Info("sweeper: stopped", map[string]any{"reason": ctx.Err().Error()})
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	ended, err := s.closer.CloseExpired(s.now())
	if err != nil {
		utils.Error("sweeper: sweep failed, will retry next tick", map[string]any{"error": err.Error()})
		return
	}
	if ended > 0 {
		utils.Info("sweeper: ended expired auctions", map[string]any{"count": ended})
	}
}
