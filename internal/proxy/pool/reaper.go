package pool

import (
	"context"
	"time"

	"github.com/kart-io/logger"
)

// Reaper periodically evicts sessions unused beyond the idle threshold.
// It runs independently of request handling and operates only through the
// manager's guarded registry interface, so sweeps never block new connects.
type Reaper struct {
	manager  *Manager
	interval time.Duration
	idleTTL  time.Duration
}

// NewReaper creates a Reaper sweeping every interval and evicting sessions
// idle for longer than idleTTL.
func NewReaper(manager *Manager, interval, idleTTL time.Duration) *Reaper {
	return &Reaper{
		manager:  manager,
		interval: interval,
		idleTTL:  idleTTL,
	}
}

// Run sweeps on a fixed ticker until the context is canceled. Intended to
// run as its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	logger.Infow("Idle reaper started", "interval", r.interval, "idle_ttl", r.idleTTL)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Idle reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep evicts all currently idle-expired sessions once.
func (r *Reaper) Sweep() {
	evicted := r.manager.EvictIdle(r.idleTTL)
	if len(evicted) > 0 {
		logger.Infow("Evicted idle connections", "count", len(evicted), "connection_ids", evicted)
	}
}
