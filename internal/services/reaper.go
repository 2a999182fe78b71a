package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/session"
)

// Reaper periodically reclaims abandoned assessment sessions so their
// slot (and the frame source it represents) becomes available again.
type Reaper struct {
	log      *zap.Logger
	sessions *session.Manager
	maxIdle  time.Duration
}

func NewReaper(log *zap.Logger, sessions *session.Manager, maxIdle time.Duration) *Reaper {
	if maxIdle <= 0 {
		maxIdle = 10 * time.Minute
	}
	return &Reaper{log: log, sessions: sessions, maxIdle: maxIdle}
}

// Start runs the reaper in a goroutine.
func (r *Reaper) Start() {
	r.log.Info("Starting session reaper...", zap.Duration("maxIdle", r.maxIdle))
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			<-ticker.C
			if n := r.sessions.ReapIdle(r.maxIdle); n > 0 {
				r.log.Info("Reclaimed idle sessions", zap.Int("count", n))
			}
		}
	}()
}
