package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweep unloads every Ready model that has no holders and has not been used for
// IdleTimeout. Entries are claimed under the lock, so a concurrent Acquire either
// wins and keeps the model or waits for the free to finish. Returns the number unloaded.
func (m *Manager) Sweep() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	now := m.clock.Now()

	m.mu.Lock()
	var victims []*entry
	for _, e := range m.entries {
		if e.state != StateReady || e.refs > 0 {
			continue
		}
		if now.Sub(e.lastUsed) >= m.cfg.IdleTimeout {
			e.state = StateUnloading
			victims = append(victims, e)
		}
	}
	m.mu.Unlock()

	for _, e := range victims {
		m.logger.Info("model idle",
			zap.Stringer("model", e.key),
			zap.Duration("idle", now.Sub(e.lastUsed)))
		m.free(e, ReasonIdle)
	}
	return len(victims)
}

// SweepInterval returns how often Run sweeps, or zero when eviction is disabled
func (m *Manager) SweepInterval() time.Duration {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	if m.cfg.SweepInterval > 0 {
		return m.cfg.SweepInterval
	}
	if half := m.cfg.IdleTimeout / 2; half > 0 {
		return half
	}
	return m.cfg.IdleTimeout
}

// Run sweeps periodically until ctx is done or Shutdown is called.
// It returns immediately when idle eviction is disabled.
func (m *Manager) Run(ctx context.Context) {
	interval := m.SweepInterval()
	if interval == 0 {
		return
	}
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	m.logger.Info("idle sweep started",
		zap.Duration("idle_timeout", m.cfg.IdleTimeout),
		zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
